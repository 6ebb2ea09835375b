package infrastructure

import (
	"net/http"

	"github.com/jchangwan/campus-closet-share/pkg/e"
)

const sniffLen = 512

// DetectImageMIME определяет MIME-тип изображения по первым байтам.
// Поддерживает jpeg, png, gif, webp и bmp; для остальных возвращает e.ErrUnsupportedMediaType.
func DetectImageMIME(data []byte) (string, error) {
	mime := http.DetectContentType(data[:min(len(data), sniffLen)])
	if _, err := GetExtensionFromMIME(mime); err != nil {
		return mime, e.Wrap(mime, err)
	}

	return mime, nil
}

// GetExtensionFromMIME возвращает расширение файла по MIME-типу изображения.
func GetExtensionFromMIME(mime string) (string, error) {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	case "image/bmp":
		return "bmp", nil
	default:
		return "bin", e.ErrUnsupportedMediaType
	}
}
