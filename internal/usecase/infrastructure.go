package usecase

import (
	"context"
	"image"

	"github.com/jchangwan/campus-closet-share/internal/domain"
)

// ImageEncoder превращает изображение в эмбеддинг с помощью предобученной модели.
type ImageEncoder interface {
	Encode(ctx context.Context, img image.Image) (*domain.Embedding, error)
	Device(ctx context.Context) domain.Device
}

// ImageFetcher скачивает изображение по URL (с таймаутом и без повторов).
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// ImageDecoder декодирует байты в 3-канальное RGB-изображение.
type ImageDecoder interface {
	Decode(data []byte) (image.Image, error)
}

// ArtifactFetcher подготавливает файлы артефактов перед загрузкой (например, скачивает из S3).
type ArtifactFetcher interface {
	FetchArtifacts(ctx context.Context) error
}

// SearchEventProducer публикует события о выполненных поисках.
type SearchEventProducer interface {
	PublishSearchEvent(ctx context.Context, event *SearchEvent)
}
