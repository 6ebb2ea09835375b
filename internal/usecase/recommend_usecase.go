package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jchangwan/campus-closet-share/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// RecommendUseCase реализует конвейер: изображение → эмбеддинг → k-NN → записи каталога.
type RecommendUseCase struct {
	state   *ArtifactState
	decoder ImageDecoder
	encoder ImageEncoder
	fetcher ImageFetcher
	cache   ResultCache
	events  SearchEventProducer
	topK    TopKPolicy
	logger  logger.Logger
}

func NewRecommendUC(
	state *ArtifactState,
	decoder ImageDecoder,
	encoder ImageEncoder,
	fetcher ImageFetcher,
	cache ResultCache,
	events SearchEventProducer,
	topK TopKPolicy,
	logger logger.Logger,
) *RecommendUseCase {
	return &RecommendUseCase{
		state:   state,
		decoder: decoder,
		encoder: encoder,
		fetcher: fetcher,
		cache:   cache,
		events:  events,
		topK:    topK,
		logger:  logger,
	}
}

// SearchByImage ищет товары, похожие на загруженное изображение.
func (r *RecommendUseCase) SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchRes, error) {
	const op = "RecommendUseCase.SearchByImage"

	ctx, span := tracing.Start(ctx, op)
	defer span.End()

	res, err := r.search(ctx, req.Data, req.TopK, req.Mode, SourceUpload)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// SearchByURL скачивает изображение по URL и ищет похожие товары.
// Скачивание выполняется один раз, без повторов: ошибка скачивания завершает запрос.
func (r *RecommendUseCase) SearchByURL(ctx context.Context, req *SearchByURLReq) (*SearchRes, error) {
	const op = "RecommendUseCase.SearchByURL"

	ctx, span := tracing.Start(ctx, op)
	defer span.End()

	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, e.Wrap(op, e.ErrImageURLRequired)
	}

	if !r.state.Current().Ready() {
		return nil, e.Wrap(op, e.ErrServiceUnavailable)
	}

	data, err := r.fetcher.Fetch(ctx, req.ImageURL)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, e.Wrap(op, err)
	}

	res, err := r.search(ctx, data, req.TopN, req.Mode, SourceURL)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// Health возвращает состояние готовности. Метод не имеет побочных эффектов.
func (r *RecommendUseCase) Health(ctx context.Context) *HealthRes {
	artifacts := r.state.Current()

	status := HealthStatusDegraded
	if artifacts.Ready() {
		status = HealthStatusOK
	}

	return &HealthRes{
		Status:      status,
		Device:      r.encoder.Device(ctx),
		IndexSize:   artifacts.IndexSize(),
		CatalogSize: artifacts.CatalogSize(),
	}
}

func (r *RecommendUseCase) search(ctx context.Context, data []byte, requestedK int, mode domain.ResponseMode, source string) (*SearchRes, error) {
	started := time.Now()

	artifacts := r.state.Current()
	if !artifacts.Ready() {
		return nil, e.ErrServiceUnavailable
	}

	k := r.topK.Resolve(mode, requestedK)
	cacheKey := resultCacheKey(artifacts, k, data)

	neighbors, cacheHit := r.cache.GetNeighbors(ctx, cacheKey)
	if !cacheHit {
		var err error
		neighbors, err = r.embedAndSearch(ctx, artifacts.Index, data, k)
		if err != nil {
			return nil, err
		}
		r.cache.SetNeighbors(ctx, cacheKey, neighbors)
	}

	items := resolveNeighbors(neighbors, artifacts.Catalog, k)

	r.events.PublishSearchEvent(ctx, &SearchEvent{
		EventID:     uuid.NewString(),
		Source:      source,
		Mode:        mode,
		TopK:        k,
		ResultCount: len(items),
		CacheHit:    cacheHit,
		TookMs:      time.Since(started).Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	})

	r.logger.Debugf("search done: source=%s mode=%s k=%d results=%d cache_hit=%t", source, mode, k, len(items), cacheHit)
	return NewSearchRes(mode, k, items), nil
}

// embedAndSearch декодирует изображение, получает эмбеддинг и выполняет k-NN запрос.
func (r *RecommendUseCase) embedAndSearch(ctx context.Context, index VectorIndex, data []byte, k int) ([]domain.Neighbor, error) {
	ctx, span := tracing.Start(ctx, "RecommendUseCase.embedAndSearch")
	defer span.End()

	img, err := r.decoder.Decode(data)
	if err != nil {
		return nil, err
	}

	embedding, err := r.encoder.Encode(ctx, img)
	if err != nil {
		return nil, err
	}

	if len(embedding.Vector) == 0 {
		return nil, e.ErrVectorEmbeddingEmpty
	}
	if dim := index.Dimension(); dim > 0 && len(embedding.Vector) != dim {
		return nil, e.Wrap(fmt.Sprintf("embedding dim %d, index dim %d", len(embedding.Vector), dim), e.ErrDimensionMismatch)
	}

	span.SetAttributes(
		attribute.Int("search.k", k),
		attribute.String("encoder.model", embedding.Model),
	)

	return index.Search(ctx, embedding.Vector, k)
}

// resolveNeighbors сопоставляет соседей с записями каталога.
// Сигнальные индексы и индексы вне каталога пропускаются, результат не длиннее k
// и упорядочен по неубыванию расстояния.
func resolveNeighbors(neighbors []domain.Neighbor, catalog Catalog, k int) []Recommendation {
	sorted := make([]domain.Neighbor, len(neighbors))
	copy(sorted, neighbors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	size := int64(catalog.Len())
	items := make([]Recommendation, 0, min(k, len(sorted)))
	for _, n := range sorted {
		if len(items) == k {
			break
		}
		if n.IsSentinel() || n.Index < 0 || n.Index >= size {
			continue
		}

		entry, ok := catalog.Get(n.Index)
		if !ok {
			continue
		}

		items = append(items, NewRecommendation(entry, n.Distance))
	}

	return items
}

// resultCacheKey строит ключ кэша из версии индекса, k и хэша исходных байт.
func resultCacheKey(artifacts *Artifacts, k int, data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%d:%s", artifacts.Version(), k, hex.EncodeToString(sum[:]))
}
