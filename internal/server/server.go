// Package server is the HTTP adapter over the listing pipeline.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/pipeline"
)

const shutdownTimeout = 10 * time.Second

// Pipeline is the part of pipeline.Processor the handlers need.
type Pipeline interface {
	Generate(ctx context.Context, req pipeline.GenerateRequest) (entity.GenerateResult, error)
	OCR(ctx context.Context, images []entity.Image) (entity.OCRResult, error)
}

type Server struct {
	echo     *echo.Echo
	pipeline Pipeline
	cfg      common.ServerConfig
	logger   *slog.Logger
}

func New(p Pipeline, cfg common.ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadFiles <= 0 {
		cfg.MaxUploadFiles = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, pipeline: p, cfg: cfg, logger: logger}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(common.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http.request",
				"req_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"elapsed_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	e.GET("/health", s.health)
	// total body bound; per-file limits are checked while reading the form
	bodyLimit := int64(cfg.MaxUploadFiles)*cfg.MaxUploadBytes + 1<<20
	api := e.Group("/api", middleware.BodyLimit(strconv.FormatInt(bodyLimit>>10, 10)+"K"))
	api.POST("/listings/generate", s.generate)
	api.POST("/listings/ocr", s.ocr)
	api.POST("/generate", s.gone)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until ctx ends, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Addr()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.start", "addr", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server.shutdown")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
