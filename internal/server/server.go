// Package server exposes the engine over HTTP: POST /embed ingests a
// document and POST /search queries the index.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"docindex/config"
	"docindex/internal/domain"
)

// Engine is the part of usecase.Engine the HTTP layer needs.
type Engine interface {
	Ingest(ctx context.Context, req domain.IngestRequest) (domain.IngestResult, error)
	Query(ctx context.Context, req domain.QueryRequest) ([]domain.Result, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

type Server struct {
	engine  Engine
	cfg     *config.Config
	logger  *slog.Logger
	router  *gin.Engine
	started time.Time
}

func New(engine Engine, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(cfg.Server.Mode)

	s := &Server{
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		started: time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(s.cfg.Telemetry.ServiceName))
	router.Use(requestID())
	router.Use(requestLogger(s.logger))
	router.Use(corsMiddleware(s.cfg.Server.CORSOrigins))
	router.Use(requestTimeout(s.cfg.Server.RequestTimeout()))

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.POST("/embed", s.bodyLimit(), s.handleEmbed)
	router.POST("/search", s.bodyLimit(), s.handleSearch)
	return router
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
