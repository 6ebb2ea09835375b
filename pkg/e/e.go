package e

import "fmt"

var (
	// 400 Bad Request
	ErrStatusBadRequest  = fmt.Errorf("bad request")
	ErrNoImage           = fmt.Errorf("no image uploaded")
	ErrEmptyFilename     = fmt.Errorf("empty filename")
	ErrImageURLRequired  = fmt.Errorf("imageUrl is required")
	ErrInvalidJSON       = fmt.Errorf("invalid json body")
	ErrInvalidTopK       = fmt.Errorf("invalid k")
	ErrExpectedMultipart = fmt.Errorf("expected multipart/form-data")

	// 503 Service Unavailable
	ErrServiceUnavailable = fmt.Errorf("index or mapping not loaded")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Ошибки артефактов (индекс и маппинг каталога)
	ErrArtifactNotFound    = fmt.Errorf("artifact not found")
	ErrUnsupportedIndex    = fmt.Errorf("unsupported index format")
	ErrCorruptedIndex      = fmt.Errorf("corrupted index file")
	ErrDimensionMismatch   = fmt.Errorf("vector dimension mismatch")
	ErrEmptyCatalog        = fmt.Errorf("catalog mapping is empty")
	ErrDuplicateCatalogKey = fmt.Errorf("duplicate catalog key")
	ErrInvalidCatalog      = fmt.Errorf("invalid catalog mapping")

	// Ошибки изображений и энкодера
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrImageDecode          = fmt.Errorf("cannot decode image")
	ErrVectorEmbeddingEmpty = fmt.Errorf("vector embedding is empty")
	ErrImageTooLarge        = fmt.Errorf("image too large")
	ErrFetchFailed          = fmt.Errorf("image fetch failed")
	ErrInvalidImageURL      = fmt.Errorf("invalid image url")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
