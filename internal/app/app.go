package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	config "github.com/jchangwan/campus-closet-share/internal/cfg"
	v1Grpc "github.com/jchangwan/campus-closet-share/internal/delivery/v1/grpc"
	v1Http "github.com/jchangwan/campus-closet-share/internal/delivery/v1/http"
	"github.com/jchangwan/campus-closet-share/internal/infrastructure/fetcher"
	"github.com/jchangwan/campus-closet-share/internal/infrastructure/imaging"
	"github.com/jchangwan/campus-closet-share/internal/usecase"
	"github.com/jchangwan/campus-closet-share/pkg/closer"
	"github.com/jchangwan/campus-closet-share/pkg/e"
	"github.com/jchangwan/campus-closet-share/pkg/jitter"
	"github.com/jchangwan/campus-closet-share/pkg/logger"
	"github.com/jchangwan/campus-closet-share/pkg/tracing"
	"github.com/jimlawless/whereami"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// App — собранный сервис рекомендаций: HTTP API, необязательный gRPC API и фоновая загрузка артефактов.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	loader  *usecase.ArtifactLoader
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
}

// NewApp собирает зависимости. Отсутствие артефактов не считается ошибкой:
// сервис стартует в состоянии degraded.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	cl := closer.NewCloser(0, log)

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SampleRate:     cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	cl.Add("tracing", tp.Shutdown)
	if tp.Enabled() {
		log.Infof("tracing enabled, exporting to %s", cfg.Tracing.OTLPEndpoint)
	}

	encoder, err := newEncoder(ctx, cfg, log, cl)
	if err != nil {
		closeQuietly(cl, log)
		return nil, err
	}

	sources, err := newArtifactSources(ctx, cfg, log, cl)
	if err != nil {
		closeQuietly(cl, log)
		return nil, err
	}

	state := usecase.NewArtifactState()
	loader := usecase.NewArtifactLoader(
		state,
		sources.index,
		sources.catalog,
		sources.fetcher,
		jitter.NewBackoff(cfg.Artifacts.WatchBaseInterval, cfg.Artifacts.WatchMaxInterval),
		log,
	)

	recommendUC := usecase.NewRecommendUC(
		state,
		imaging.NewDecoder(imaging.DefaultMaxPixels),
		encoder,
		fetcher.NewHTTPFetcher(cfg.Fetch, log),
		newResultCache(ctx, cfg, log, cl),
		newEventProducer(cfg, log, cl),
		usecase.NewTopKPolicy(cfg.Search.FullTopK, cfg.Search.ResultsTopK, cfg.Search.IDsTopK, cfg.Search.MaxTopK),
		log,
	)

	r := chi.NewRouter()
	v1Http.NewRouter(r, cfg.Http, log).Init(recommendUC)

	var grpcSrv *v1Grpc.GRPCServer
	if cfg.Grpc.Port != "" {
		grpcSrv = v1Grpc.NewGRPCServer(cfg.Grpc, log)
		grpcSrv.RegisterServices(recommendUC)
	}

	return &App{
		cfg:     cfg,
		logger:  log,
		closer:  cl,
		loader:  loader,
		httpSrv: v1Http.NewServer(r, cfg.Http),
		grpcSrv: grpcSrv,
	}, nil
}

// Run загружает артефакты, запускает серверы и блокируется до сигнала остановки или фатальной ошибки.
func (a *App) Run() error {
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()

	loadCtx, loadCancel := context.WithTimeout(watchCtx, startupTimeout)
	err := a.loader.Load(loadCtx)
	loadCancel()
	if err != nil {
		a.logger.Warnf("starting in degraded state: %v", err)
		if a.cfg.Artifacts.WatchEnabled {
			go a.loader.Watch(watchCtx)
		}
	}

	errCh := make(chan error, 2)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- e.Wrap("http server", err)
		}
	}()

	if a.grpcSrv != nil {
		go func() {
			a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
			if err := a.grpcSrv.Start(); err != nil {
				errCh <- e.Wrap("grpc server", err)
			}
		}()
	}

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "server fatal error")
	case <-shutdown:
		a.logger.Infof("received shutdown signal, stopping gracefully...")
	}

	stopWatch()
	a.stop()

	return appErr
}

func (a *App) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Stop(ctx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if a.grpcSrv != nil {
		if err := a.grpcSrv.Stop(ctx); err != nil {
			a.logger.Warnf("gRPC server shutdown: %v", err)
		}
	}

	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "resources shutdown error")
	}

	a.logger.Infof("application shutdown complete")
}

func closeQuietly(cl *closer.Closer, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := cl.Close(ctx); err != nil {
		log.Warnf("cleanup after failed start: %v", err)
	}
}
