package usecase

import (
	"context"

	"github.com/jchangwan/campus-closet-share/internal/domain"
)

// NopResultCache используется, когда Redis не настроен.
type NopResultCache struct{}

func (NopResultCache) GetNeighbors(context.Context, string) ([]domain.Neighbor, bool) {
	return nil, false
}

func (NopResultCache) SetNeighbors(context.Context, string, []domain.Neighbor) {}

// NopEventProducer используется, когда Kafka не настроена.
type NopEventProducer struct{}

func (NopEventProducer) PublishSearchEvent(context.Context, *SearchEvent) {}
