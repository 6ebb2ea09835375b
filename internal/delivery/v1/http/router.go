package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jchangwan/campus-closet-share/docs" // Импорт описания API для swagger
	"github.com/jchangwan/campus-closet-share/internal/cfg"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	cfg    *cfg.HTTPConfig
	logger logger.Logger
}

func NewRouter(router *chi.Mux, cfg *cfg.HTTPConfig, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, logger: logger}
}

func (r *Router) Init(recUC usecase.RecommendUC) {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.RealIP)
	r.router.Use(middleware.Recoverer)

	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(r.cfg.SwaggerURL),
	))

	recHandler := NewRecommendHandler(recUC, r.cfg.MaxUploadBytes, r.logger)
	registerRecommendRoutes(r.router, recHandler)
}

func registerRecommendRoutes(router chi.Router, recHandler *RecommendHandler) {
	router.Get("/", recHandler.index)
	router.Get("/health", recHandler.health)
	router.Post("/recommend", recHandler.recommend)
	router.Post("/search", recHandler.search)
}
