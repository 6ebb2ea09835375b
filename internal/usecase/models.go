package usecase

import (
	"time"

	"github.com/jchangwan/campus-closet-share/internal/domain"
)

// RECOMMEND USECASE

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

const (
	SourceUpload = "upload"
	SourceURL    = "url"
)

// SearchByImageReq — поиск по загруженному файлу.
type SearchByImageReq struct {
	Data     []byte
	Filename string
	TopK     int // 0 означает значение по умолчанию для Mode
	Mode     domain.ResponseMode
}

// SearchByURLReq — поиск по изображению, доступному по URL.
type SearchByURLReq struct {
	ImageURL string
	TopN     int
	Mode     domain.ResponseMode
}

// SearchRes — найденные товары по возрастанию расстояния.
type SearchRes struct {
	Mode  domain.ResponseMode
	TopK  int
	Items []Recommendation
}

// Recommendation — товар каталога и расстояние до запроса.
// Score — это расстояние: меньшее значение означает большее сходство.
type Recommendation struct {
	Entry domain.CatalogEntry
	Score float32
}

// HealthRes — текущее состояние готовности сервиса.
type HealthRes struct {
	Status      string
	Device      domain.Device
	IndexSize   int
	CatalogSize int
}

// SearchEvent — событие о выполненном поиске для аналитики.
type SearchEvent struct {
	EventID     string              `json:"event_id"`
	Source      string              `json:"source"`
	Mode        domain.ResponseMode `json:"mode"`
	TopK        int                 `json:"top_k"`
	ResultCount int                 `json:"result_count"`
	CacheHit    bool                `json:"cache_hit"`
	TookMs      int64               `json:"took_ms"`
	CreatedAt   time.Time           `json:"created_at"`
}

// MAPPERS

func NewSearchByImageReq(data []byte, filename string, topK int, mode domain.ResponseMode) *SearchByImageReq {
	return &SearchByImageReq{
		Data:     data,
		Filename: filename,
		TopK:     topK,
		Mode:     mode,
	}
}

func NewSearchByURLReq(imageURL string, topN int, mode domain.ResponseMode) *SearchByURLReq {
	return &SearchByURLReq{
		ImageURL: imageURL,
		TopN:     topN,
		Mode:     mode,
	}
}

func NewSearchRes(mode domain.ResponseMode, topK int, items []Recommendation) *SearchRes {
	return &SearchRes{
		Mode:  mode,
		TopK:  topK,
		Items: items,
	}
}

func NewRecommendation(entry domain.CatalogEntry, score float32) Recommendation {
	return Recommendation{
		Entry: entry,
		Score: score,
	}
}
