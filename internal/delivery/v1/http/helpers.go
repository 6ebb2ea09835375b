package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jimlawless/whereami"
)

// ErrorResponse — тело ответа с ошибкой. Для 500 содержит диагностическое сообщение.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Error: message}
}

// ToHTTPResponse сопоставляет ошибку с HTTP-статусом и сообщением для клиента.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrNoImage):
		return http.StatusBadRequest, e.ErrNoImage.Error()
	case errors.Is(err, e.ErrEmptyFilename):
		return http.StatusBadRequest, e.ErrEmptyFilename.Error()
	case errors.Is(err, e.ErrImageURLRequired):
		return http.StatusBadRequest, e.ErrImageURLRequired.Error()
	case errors.Is(err, e.ErrInvalidJSON):
		return http.StatusBadRequest, e.ErrInvalidJSON.Error()
	case errors.Is(err, e.ErrInvalidTopK):
		return http.StatusBadRequest, e.ErrInvalidTopK.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, e.ErrServiceUnavailable.Error()
	case err == nil:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	WriteSuccess(w, code, NewErrorResponse(msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// mediaType возвращает тип содержимого запроса без параметров.
func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}

	return strings.ToLower(mt)
}

func ensureMultipartForm(r *http.Request, maxMemory int64) error {
	if mediaType(r) != "multipart/form-data" {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return e.Wrap(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), e.ErrStatusBadRequest)
		}
		return e.Wrap(err.Error(), e.ErrStatusBadRequest)
	}

	return nil
}

// readUploadedImage читает файл из поля field multipart-формы.
func readUploadedImage(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", e.Wrap("field "+field, e.ErrNoImage)
		}
		return nil, "", e.Wrap(whereami.WhereAmI(), err)
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		return nil, "", e.Wrap("field "+field, e.ErrEmptyFilename)
	}

	data, err := readFile(file)
	if err != nil {
		return nil, "", err
	}

	return data, header.Filename, nil
}

func readFile(src multipart.File) ([]byte, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if len(data) == 0 {
		return nil, e.Wrap("uploaded file is empty", e.ErrNoImage)
	}

	return data, nil
}

// parseTopK читает необязательный параметр k. Отсутствие параметра даёт 0 (значение по умолчанию).
func parseTopK(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("k"))
	if raw == "" {
		return 0, nil
	}

	k, err := strconv.Atoi(raw)
	if err != nil || k <= 0 {
		return 0, e.Wrap("k="+raw, e.ErrInvalidTopK)
	}

	return k, nil
}
