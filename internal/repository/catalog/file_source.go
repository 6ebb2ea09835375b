package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// record — одна запись JSON-маппинга.
type record struct {
	Index       *int64 `json:"index,omitempty"`
	BrandName   string `json:"brand_name"`
	ProductName string `json:"product_name"`
	Link        string `json:"link"`
	ImageURL    string `json:"image_url"`
	ProductSpec string `json:"product_spec"`
	PostID      *int64 `json:"post_id,omitempty"`
}

func (r record) toDomain(index int64) domain.CatalogEntry {
	return domain.CatalogEntry{
		Index:       index,
		BrandName:   r.BrandName,
		ProductName: r.ProductName,
		Link:        r.Link,
		ImageURL:    r.ImageURL,
		ProductSpec: r.ProductSpec,
		PostID:      r.PostID,
	}
}

// FileSource читает маппинг из JSON-файла.
// Поддерживаются объект {"0": {...}, "1": {...}} и массив [{...}, {...}],
// где позиция в массиве (или поле "index") — это позиция вектора в индексе.
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

func (s *FileSource) LoadCatalog(ctx context.Context) (usecase.Catalog, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Load возвращает конкретный *Catalog. Отсутствующий файл возвращается как e.ErrArtifactNotFound.
func (s *FileSource) Load(ctx context.Context) (*Catalog, error) {
	const op = "FileSource.LoadCatalog"

	if err := ctx.Err(); err != nil {
		return nil, e.Wrap(op, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, e.Wrap(op+": "+s.path, e.ErrArtifactNotFound)
		}
		return nil, e.Wrap(op, err)
	}

	entries, err := Parse(data)
	if err != nil {
		s.logger.Errorf(err, "failed to parse mapping file %s", s.path)
		return nil, e.Wrap(op, err)
	}

	c, err := New(entries)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	s.logger.Infof("catalog mapping loaded from %s: %d entries", s.path, c.Len())
	return c, nil
}

// Parse разбирает JSON-маппинг в записи каталога.
func Parse(data []byte) ([]domain.CatalogEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, e.ErrEmptyCatalog
	}

	switch data[0] {
	case '[':
		var records []record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", e.ErrInvalidCatalog, err)
		}

		entries := make([]domain.CatalogEntry, 0, len(records))
		for i, r := range records {
			index := int64(i)
			if r.Index != nil {
				index = *r.Index
			}
			entries = append(entries, r.toDomain(index))
		}
		return entries, nil

	case '{':
		var records map[string]record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", e.ErrInvalidCatalog, err)
		}

		entries := make([]domain.CatalogEntry, 0, len(records))
		for key, r := range records {
			index, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, e.Wrap(fmt.Sprintf("mapping key %q", key), e.ErrInvalidCatalog)
			}
			entries = append(entries, r.toDomain(index))
		}
		return entries, nil

	default:
		return nil, e.Wrap("mapping must be a JSON object or array", e.ErrInvalidCatalog)
	}
}
