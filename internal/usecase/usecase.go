package usecase

import "context"

type RecommendUC interface {
	SearchByImage(ctx context.Context, req *SearchByImageReq) (*SearchRes, error)
	SearchByURL(ctx context.Context, req *SearchByURLReq) (*SearchRes, error)
	Health(ctx context.Context) *HealthRes
}
