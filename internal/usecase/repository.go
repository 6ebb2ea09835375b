package usecase

import (
	"context"

	"github.com/jchangwan/campus-closet-share/internal/domain"
)

// VectorIndex — загруженный индекс ближайших соседей.
// Search возвращает до k соседей по возрастанию расстояния; позиции без совпадения
// помечаются domain.SentinelIndex.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
	Size() int
	Dimension() int
}

// Catalog — маппинг позиции индекса в запись каталога.
type Catalog interface {
	Get(index int64) (domain.CatalogEntry, bool)
	Len() int
}

// IndexSource загружает векторный индекс. Отсутствующий артефакт возвращается как e.ErrArtifactNotFound.
type IndexSource interface {
	LoadIndex(ctx context.Context) (VectorIndex, error)
}

// CatalogSource загружает маппинг каталога. Отсутствующий артефакт возвращается как e.ErrArtifactNotFound.
type CatalogSource interface {
	LoadCatalog(ctx context.Context) (Catalog, error)
}

// ResultCache хранит результаты k-NN по хэшу нормализованного изображения.
// Ошибки кэша не должны ломать запрос, поэтому методы их не возвращают.
type ResultCache interface {
	GetNeighbors(ctx context.Context, key string) ([]domain.Neighbor, bool)
	SetNeighbors(ctx context.Context, key string, neighbors []domain.Neighbor)
}

// ArtifactRepository — объектное хранилище файлов артефактов (S3/MinIO).
// Отсутствующий объект возвращается как e.ErrArtifactNotFound.
type ArtifactRepository interface {
	Download(ctx context.Context, objectKey, dstPath string) error
	Upload(ctx context.Context, srcPath, objectKey string) error
}
