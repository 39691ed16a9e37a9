// Package server exposes a design repository over the /designs/ REST contract.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fiberonix/netdesign/codec"
	"github.com/fiberonix/netdesign/domain"
	"github.com/fiberonix/netdesign/logger"
	"github.com/fiberonix/netdesign/observability"
	"github.com/gin-gonic/gin"
)

// DefaultPrefix is the collection path served when no prefix option is given.
const DefaultPrefix = "/designs"

// Server is a gin engine bound to one repository.
type Server struct {
	Engine *gin.Engine

	repo            domain.DesignRepository
	decoder         *codec.Decoder
	log             *logger.Logger
	metrics         *observability.Collector
	prefix          string
	patchOnly       bool
	shutdownTimeout time.Duration
}

// New builds the engine and registers the design routes. options are applied before routing.
func New(repo domain.DesignRepository, options ...func(*Server) error) (*Server, error) {
	if repo == nil {
		return nil, errors.New("server requires a design repository")
	}
	s := &Server{
		repo:            repo,
		log:             logger.NewNop(),
		prefix:          DefaultPrefix,
		shutdownTimeout: 5 * time.Second,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, fmt.Errorf("applying option on server : %w", err)
		}
	}
	if s.decoder == nil {
		s.decoder = codec.NewDecoder(s.log)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery(), requestLogger(s.log), metrics(s.metrics))
	engine.NoMethod(func(c *gin.Context) {
		respondError(c, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Errorf("%s not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})
	engine.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", fmt.Errorf("no route for %s", c.Request.URL.Path))
	})

	h := &designHandler{repo: s.repo, decoder: s.decoder, log: s.log}
	designs := engine.Group(s.prefix)
	designs.GET("/", h.list)
	designs.POST("/", h.create)
	designs.GET("/:id/", h.get)
	designs.PATCH("/:id/", h.patch)
	designs.DELETE("/:id/", h.delete)
	if !s.patchOnly {
		designs.PUT("/:id/", h.replace)
	}

	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	s.Engine = engine
	return s, nil
}

// WithLogger sets the request and handler logger.
func WithLogger(l *logger.Logger) func(*Server) error {
	return func(s *Server) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		s.log = l
		return nil
	}
}

// WithDecoder replaces the decoder used for request bodies.
func WithDecoder(d *codec.Decoder) func(*Server) error {
	return func(s *Server) error {
		s.decoder = d
		return nil
	}
}

// WithMetrics instruments every route and serves m on /metrics.
func WithMetrics(m *observability.Collector) func(*Server) error {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

// WithPrefix mounts the collection at prefix, e.g. "/api/network-device/designs".
func WithPrefix(prefix string) func(*Server) error {
	return func(s *Server) error {
		prefix = "/" + strings.Trim(prefix, "/")
		if prefix == "/" {
			return errors.New("prefix must name a collection")
		}
		s.prefix = prefix
		return nil
	}
}

// WithPatchOnly answers PUT with 405, like backends that only accept partial updates.
func WithPatchOnly() func(*Server) error {
	return func(s *Server) error {
		s.patchOnly = true
		return nil
	}
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) func(*Server) error {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("invalid shutdown timeout %s", d)
		}
		s.shutdownTimeout = d
		return nil
	}
}

// Run serves on address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("design server listening", "address", address, "prefix", s.prefix)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server : %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s : %w", address, err)
	}
}
