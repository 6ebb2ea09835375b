package flatindex

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// FileSource загружает индекс из локального файла.
type FileSource struct {
	path   string
	logger logger.Logger
}

func NewFileSource(path string, logger logger.Logger) *FileSource {
	return &FileSource{
		path:   path,
		logger: logger,
	}
}

// LoadIndex читает файл индекса. Отсутствующий файл возвращается как e.ErrArtifactNotFound.
func (s *FileSource) LoadIndex(ctx context.Context) (usecase.VectorIndex, error) {
	idx, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	return idx, nil
}

// Load возвращает конкретный *Index (используется CLI-командами).
func (s *FileSource) Load(ctx context.Context) (*Index, error) {
	const op = "FileSource.LoadIndex"

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, e.Wrap(op+": "+s.path, e.ErrArtifactNotFound)
		}
		return nil, e.Wrap(op, err)
	}
	defer f.Close()

	idx, err := Read(f)
	if err != nil {
		s.logger.Errorf(err, "failed to read index file %s", s.path)
		return nil, e.Wrap(op, err)
	}

	s.logger.Infof("flat index loaded from %s: size=%d dim=%d", s.path, idx.Size(), idx.Dimension())
	return idx, nil
}
