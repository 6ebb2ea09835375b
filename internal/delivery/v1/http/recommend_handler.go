package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jchangwan/campus-closet-share/internal/domain"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
)

const indexPage = `<h1>Campus Closet Share AI Server</h1><p>The server is up and running.</p>`

const (
	maxMultipartMemory = 32 << 20
	maxJSONBodyBytes   = 1 << 20
)

type RecommendHandler struct {
	recommendUsecase usecase.RecommendUC
	maxUploadBytes   int64
	logger           logger.Logger
}

func NewRecommendHandler(recommendUsecase usecase.RecommendUC, maxUploadBytes int64, logger logger.Logger) *RecommendHandler {
	return &RecommendHandler{
		recommendUsecase: recommendUsecase,
		maxUploadBytes:   maxUploadBytes,
		logger:           logger,
	}
}

// index
//
//	@Summary	Информационная страница
//	@Tags		service
//	@Produce	html
//	@Success	200	{string}	string	"HTML"
//	@Router		/ [get]
func (h *RecommendHandler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, indexPage)
}

// health
//
//	@Summary		Состояние сервиса
//	@Description	ok, если индекс и маппинг каталога загружены и не пусты, иначе degraded
//	@Tags			service
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (h *RecommendHandler) health(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, toHealthResponse(h.recommendUsecase.Health(r.Context())))
}

// recommend
//
//	@Summary		Похожие товары по изображению
//	@Description	multipart/form-data с полем image возвращает полные метаданные товаров.
//	@Description	application/json с imageUrl возвращает только идентификаторы.
//	@Description	score — L2-расстояние: чем меньше значение, тем больше сходство.
//	@Tags			recommend
//	@Accept			multipart/form-data
//	@Accept			json
//	@Produce		json
//	@Param			image	formData	file					false	"Изображение"
//	@Param			k		query		int						false	"Число результатов для загруженного файла"
//	@Param			body	body		RecommendByURLRequest	false	"URL изображения"
//	@Success		200		{object}	RecommendResponse
//	@Success		200		{object}	SimilarIDsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/recommend [post]
func (h *RecommendHandler) recommend(w http.ResponseWriter, r *http.Request) {
	if mediaType(r) == "application/json" {
		h.recommendByURL(w, r)
		return
	}

	data, filename, topK, err := h.parseUpload(w, r, "image")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.recommendUsecase.SearchByImage(r.Context(), usecase.NewSearchByImageReq(data, filename, topK, domain.ModeFull))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendResponse(res))
}

func (h *RecommendHandler) recommendByURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var req RecommendByURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.fail(w, r, e.ErrImageURLRequired)
			return
		}
		h.fail(w, r, e.Wrap(err.Error(), e.ErrInvalidJSON))
		return
	}

	topN := 0
	if req.TopN != nil {
		if *req.TopN <= 0 {
			h.fail(w, r, e.ErrInvalidTopK)
			return
		}
		topN = *req.TopN
	}

	res, err := h.recommendUsecase.SearchByURL(r.Context(), usecase.NewSearchByURLReq(req.ImageURL, topN, domain.ModeIDs))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSimilarIDsResponse(res))
}

// search
//
//	@Summary		Поиск похожих товаров по загруженному файлу
//	@Description	score — L2-расстояние: чем меньше значение, тем больше сходство.
//	@Tags			recommend
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Изображение"
//	@Param			k		query		int		false	"Число результатов"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/search [post]
func (h *RecommendHandler) search(w http.ResponseWriter, r *http.Request) {
	data, filename, topK, err := h.parseUpload(w, r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.recommendUsecase.SearchByImage(r.Context(), usecase.NewSearchByImageReq(data, filename, topK, domain.ModeResults))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toSearchResponse(res))
}

func (h *RecommendHandler) parseUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, int, error) {
	topK, err := parseTopK(r)
	if err != nil {
		return nil, "", 0, err
	}

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	if err := ensureMultipartForm(r, maxMultipartMemory); err != nil {
		return nil, "", 0, err
	}

	data, filename, err := readUploadedImage(r, field)
	if err != nil {
		return nil, "", 0, err
	}

	return data, filename, topK, nil
}

// fail пишет ошибку в ответ: клиентские ошибки логируются как предупреждения, серверные как ошибки.
func (h *RecommendHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, _ := ToHTTPResponse(err)
	reqID := middleware.GetReqID(r.Context())

	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		h.logger.Errorf(err, "%s %s failed: request_id=%s", r.Method, r.URL.Path, reqID)
	} else {
		h.logger.Warnf("%s %s: %d %v request_id=%s", r.Method, r.URL.Path, code, err, reqID)
	}

	WriteError(w, err)
}
