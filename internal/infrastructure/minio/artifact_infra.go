package minio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

const (
	downloadAttempts = 3
	downloadTimeout  = 5 * time.Minute
)

// ArtifactObject связывает ключ объекта в бакете с локальным путём.
type ArtifactObject struct {
	ObjectKey string
	LocalPath string
}

// ArtifactInfrastructure скачивает файлы артефактов из MinIO перед их загрузкой в память.
type ArtifactInfrastructure struct {
	repo    usecase.ArtifactRepository
	objects []ArtifactObject
	backoff *jitter.Backoff
	logger  logger.Logger
}

func NewArtifactInfrastructure(
	repo usecase.ArtifactRepository,
	objects []ArtifactObject,
	backoff *jitter.Backoff,
	logger logger.Logger,
) *ArtifactInfrastructure {
	return &ArtifactInfrastructure{
		repo:    repo,
		objects: objects,
		backoff: backoff,
		logger:  logger,
	}
}

// FetchArtifacts параллельно скачивает все объекты. Сетевые ошибки повторяются
// с экспоненциальной задержкой и jitter, отсутствующий объект не повторяется.
func (m *ArtifactInfrastructure) FetchArtifacts(ctx context.Context) error {
	const op = "ArtifactInfrastructure.FetchArtifacts"

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	errCh := make(chan error, len(m.objects))

	var wg sync.WaitGroup
	for _, obj := range m.objects {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.download(ctx, obj); err != nil {
				errCh <- fmt.Errorf("download %s failed: %w", obj.ObjectKey, err)
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return e.Wrap(op, errors.Join(errs...))
	}

	m.logger.Infof("%d artifact(s) downloaded from object storage", len(m.objects))
	return nil
}

func (m *ArtifactInfrastructure) download(ctx context.Context, obj ArtifactObject) error {
	var err error
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		if err = m.repo.Download(ctx, obj.ObjectKey, obj.LocalPath); err == nil {
			m.logger.Debugf("artifact %s saved to %s", obj.ObjectKey, obj.LocalPath)
			return nil
		}
		if errors.Is(err, e.ErrArtifactNotFound) {
			return err
		}

		if attempt < downloadAttempts-1 {
			select {
			case <-time.After(m.backoff.Next(attempt)):
			case <-ctx.Done():
				m.logger.Warnf("artifact download interrupted, key=%v", obj.ObjectKey)
				return errors.Join(err, ctx.Err())
			}
		}
	}

	return err
}
