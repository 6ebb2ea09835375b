package http

import (
	"context"
	"net"
	"net/http"

	"github.com/jchangwan/campus-closet-share/internal/cfg"
)

// Server — HTTP API сервиса рекомендаций. Лимит тела запроса применяется в обработчиках
// (cfg.MaxUploadBytes), лимиты заголовков задаются здесь.
type Server struct {
	httpServer *http.Server
}

func NewServer(handler http.Handler, cfg *cfg.HTTPConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadHeaderTimeout: cfg.HeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Serve обслуживает готовый listener.
func (s *Server) Serve(lis net.Listener) error {
	return s.httpServer.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
