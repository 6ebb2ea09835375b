package qdrant

import (
	"context"
	"fmt"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/qdrant/go-client/qdrant"
)

// Поля payload, которые записывает sync-qdrant.
const (
	payloadBrandName   = "brand_name"
	payloadProductName = "product_name"
	payloadLink        = "link"
	payloadImageURL    = "image_url"
	payloadProductSpec = "product_spec"
	payloadPostID      = "post_id"
)

const upsertBatchSize = 256

// IndexRepo — векторный индекс поверх коллекции Qdrant с евклидовой метрикой.
// ID точки совпадает с позицией записи в каталоге.
type IndexRepo struct {
	client *qdrant.Client
	cfg    *cfg.QdrantCfg
	logger logger.Logger
	size   int
	dim    int
}

func NewIndexRepo(client *qdrant.Client, cfg *cfg.QdrantCfg, logger logger.Logger) *IndexRepo {
	return &IndexRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// LoadIndex проверяет коллекцию и фиксирует её размер и размерность.
// Отсутствующая или пустая коллекция возвращается как e.ErrArtifactNotFound.
func (q *IndexRepo) LoadIndex(ctx context.Context) (usecase.VectorIndex, error) {
	collection := q.cfg.QdrantCollectionName

	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return nil, e.Wrap("qdrant collection "+collection, e.ErrArtifactNotFound)
	}

	info, err := q.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return nil, e.Wrap("qdrant collection without a single unnamed vector", e.ErrUnsupportedIndex)
	}
	if params.GetDistance() != qdrant.Distance_Euclid {
		return nil, e.Wrap(fmt.Sprintf("qdrant distance %s", params.GetDistance()), e.ErrUnsupportedIndex)
	}

	count, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if count == 0 {
		return nil, e.Wrap("qdrant collection "+collection+" is empty", e.ErrArtifactNotFound)
	}

	loaded := &IndexRepo{
		client: q.client,
		cfg:    q.cfg,
		logger: q.logger,
		size:   int(count),
		dim:    int(params.GetSize()),
	}

	q.logger.Infof("qdrant index attached: collection=%s size=%d dim=%d", collection, loaded.size, loaded.dim)
	return loaded, nil
}

func (q *IndexRepo) Size() int {
	return q.size
}

func (q *IndexRepo) Dimension() int {
	return q.dim
}

// Search возвращает k ближайших точек. Qdrant отдаёт евклидово расстояние,
// поэтому оно возводится в квадрат, чтобы score совпадал с плоским индексом.
// Недостающие позиции заполняются domain.SentinelIndex.
func (q *IndexRepo) Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.QdrantCollectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	neighbors := make([]domain.Neighbor, 0, k)
	for _, p := range points {
		id, ok := p.GetId().GetPointIdOptions().(*qdrant.PointId_Num)
		if !ok {
			q.logger.Warnf("qdrant point with non-numeric id %s skipped", p.GetId().String())
			continue
		}
		neighbors = append(neighbors, domain.NewNeighbor(int64(id.Num), p.GetScore()*p.GetScore()))
	}
	for len(neighbors) < k {
		neighbors = append(neighbors, domain.NewSentinelNeighbor())
	}

	return neighbors, nil
}

// Upsert записывает векторы вместе с payload каталога пачками по upsertBatchSize.
// vectors[i] соответствует позиции i, запись каталога для позиции может отсутствовать.
func (q *IndexRepo) Upsert(ctx context.Context, vectors [][]float32, catalog usecase.Catalog) (int, error) {
	written := 0
	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(vectors))

		points := make([]*qdrant.PointStruct, 0, end-start)
		for pos := start; pos < end; pos++ {
			point := &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(pos)),
				Vectors: qdrant.NewVectors(vectors[pos]...),
			}
			if entry, ok := catalog.Get(int64(pos)); ok {
				point.Payload = qdrant.NewValueMap(toPayload(entry))
			}
			points = append(points, point)
		}

		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.QdrantCollectionName,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return written, e.Wrap(whereami.WhereAmI(), err)
		}

		written += len(points)
		q.logger.Debugf("qdrant upsert: %d/%d points", written, len(vectors))
	}

	return written, nil
}

func toPayload(entry domain.CatalogEntry) map[string]any {
	payload := map[string]any{
		payloadBrandName:   entry.BrandName,
		payloadProductName: entry.ProductName,
		payloadLink:        entry.Link,
		payloadImageURL:    entry.ImageURL,
		payloadProductSpec: entry.ProductSpec,
	}
	if entry.PostID != nil {
		payload[payloadPostID] = *entry.PostID
	}

	return payload
}
