package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

// ArtifactLoader загружает индекс и маппинг каталога при старте и, пока сервис
// в состоянии degraded, повторяет попытки в фоне.
type ArtifactLoader struct {
	state         *ArtifactState
	indexSource   IndexSource
	catalogSource CatalogSource
	fetcher       ArtifactFetcher // может быть nil
	backoff       *jitter.Backoff
	logger        logger.Logger
}

func NewArtifactLoader(
	state *ArtifactState,
	indexSource IndexSource,
	catalogSource CatalogSource,
	fetcher ArtifactFetcher,
	backoff *jitter.Backoff,
	logger logger.Logger,
) *ArtifactLoader {
	return &ArtifactLoader{
		state:         state,
		indexSource:   indexSource,
		catalogSource: catalogSource,
		fetcher:       fetcher,
		backoff:       backoff,
		logger:        logger,
	}
}

// Load делает одну попытку загрузки. Уже загруженные артефакты повторно не читаются.
// Возвращает nil, если после попытки сервис готов, иначе ошибку с причиной.
// Ошибка не должна останавливать процесс: сервис продолжает работу в состоянии degraded.
func (l *ArtifactLoader) Load(ctx context.Context) error {
	const op = "ArtifactLoader.Load"

	current := l.state.Current()
	if current.Ready() {
		return nil
	}

	next := &Artifacts{}
	if current != nil {
		next.Index = current.Index
		next.Catalog = current.Catalog
	}

	if l.fetcher != nil {
		if err := l.fetcher.FetchArtifacts(ctx); err != nil {
			l.logger.Warnf("artifact download failed, falling back to local files: %v", e.Wrap(op, err))
		}
	}

	var loadErr error
	if next.Catalog == nil || next.Catalog.Len() == 0 {
		catalog, err := l.catalogSource.LoadCatalog(ctx)
		if err != nil {
			loadErr = errors.Join(loadErr, e.Wrap("catalog", err))
		} else {
			next.Catalog = catalog
		}
	}

	if next.Index == nil || next.Index.Size() == 0 {
		index, err := l.indexSource.LoadIndex(ctx)
		if err != nil {
			loadErr = errors.Join(loadErr, e.Wrap("index", err))
		} else {
			next.Index = index
		}
	}

	next.LoadedAt = time.Now().UTC()
	l.state.Publish(next)

	if next.Ready() {
		if next.Index.Size() != next.Catalog.Len() {
			l.logger.Warnf(
				"index size %d does not match catalog size %d, out-of-range neighbors will be skipped",
				next.Index.Size(), next.Catalog.Len(),
			)
		}
		l.logger.Infof("artifacts loaded: index_size=%d catalog_size=%d dim=%d",
			next.Index.Size(), next.Catalog.Len(), next.Index.Dimension())
		return nil
	}

	if loadErr == nil {
		loadErr = e.ErrEmptyCatalog
		if next.CatalogSize() > 0 {
			loadErr = e.Wrap("index is empty", e.ErrArtifactNotFound)
		}
	}

	return e.Wrap(op, errors.Join(e.ErrServiceUnavailable, loadErr))
}

// Watch повторяет Load с экспоненциальной задержкой и джиттером до готовности или отмены ctx.
func (l *ArtifactLoader) Watch(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		if l.state.Current().Ready() {
			return
		}

		delay := l.backoff.Next(attempt)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := l.Load(ctx); err != nil {
			if errors.Is(err, e.ErrArtifactNotFound) {
				l.logger.Debugf("artifacts still missing (attempt %d): %v", attempt+1, err)
			} else {
				l.logger.Warnf("artifact reload failed (attempt %d): %v", attempt+1, err)
			}
			continue
		}

		l.logger.Infof("service is ready after %d background attempt(s)", attempt+1)
		return
	}
}
