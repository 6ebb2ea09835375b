package http

import (
	"github.com/jchangwan/campus-closet-share/internal/usecase"
)

// RESPONSES

// RecommendResponse — ответ POST /recommend для загруженного файла.
type RecommendResponse struct {
	Status          string               `json:"status" example:"success"`
	Count           int                  `json:"count" example:"3"`
	Recommendations []RecommendationItem `json:"recommendations"`
}

// RecommendationItem — товар из каталога. Score — L2-расстояние: чем меньше, тем больше сходство.
type RecommendationItem struct {
	Brand    string  `json:"brand"`
	Name     string  `json:"name"`
	Link     string  `json:"link"`
	Image    string  `json:"image"`
	Category string  `json:"category"`
	Score    float32 `json:"score" example:"0.42"`
}

// SearchResponse — ответ POST /search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

type SearchResultItem struct {
	ProductID int64   `json:"product_id"`
	Brand     string  `json:"brand"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Link      string  `json:"link"`
	Score     float32 `json:"score"`
}

// SimilarIDsResponse — ответ POST /recommend для JSON-запроса с imageUrl.
type SimilarIDsResponse struct {
	SimilarIDs []int64 `json:"similarIds"`
}

type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Device    string `json:"device" example:"cpu"`
	IndexSize int    `json:"index_size" example:"1024"`
}

// REQUESTS

// RecommendByURLRequest — JSON-тело POST /recommend.
type RecommendByURLRequest struct {
	ImageURL string `json:"imageUrl" example:"https://example.com/image.jpg"`
	TopN     *int   `json:"topN,omitempty" example:"5"`
}

// MAPPERS

func toRecommendResponse(res *usecase.SearchRes) *RecommendResponse {
	items := make([]RecommendationItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, RecommendationItem{
			Brand:    it.Entry.BrandName,
			Name:     it.Entry.ProductName,
			Link:     it.Entry.Link,
			Image:    it.Entry.ImageURL,
			Category: it.Entry.Category(),
			Score:    it.Score,
		})
	}

	return &RecommendResponse{
		Status:          "success",
		Count:           len(items),
		Recommendations: items,
	}
}

func toSearchResponse(res *usecase.SearchRes) *SearchResponse {
	items := make([]SearchResultItem, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, SearchResultItem{
			ProductID: it.Entry.ExternalID(),
			Brand:     it.Entry.BrandName,
			Name:      it.Entry.ProductName,
			Image:     it.Entry.ImageURL,
			Link:      it.Entry.Link,
			Score:     it.Score,
		})
	}

	return &SearchResponse{Results: items}
}

func toSimilarIDsResponse(res *usecase.SearchRes) *SimilarIDsResponse {
	ids := make([]int64, 0, len(res.Items))
	for _, it := range res.Items {
		ids = append(ids, it.Entry.ExternalID())
	}

	return &SimilarIDsResponse{SimilarIDs: ids}
}

func toHealthResponse(res *usecase.HealthRes) *HealthResponse {
	return &HealthResponse{
		Status:    res.Status,
		Device:    string(res.Device),
		IndexSize: res.IndexSize,
	}
}
