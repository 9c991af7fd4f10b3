// Package server exposes the URL conversion pipeline and platform catalog
// over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/codymoss/hopgate/convert"
	"github.com/codymoss/hopgate/logger"
	"github.com/codymoss/hopgate/registry"
)

// Config holds configuration for the API server.
type Config struct {
	// GatewayDomain is the accelerating gateway URLs are rewritten to.
	GatewayDomain string
	// PublicSuffix enables public-suffix-aware base-domain matching.
	PublicSuffix bool
	// RateLimitRequests is the number of requests allowed per window (default: 100).
	RateLimitRequests int
	// RateLimitWindow is the time window for rate limiting (default: 1 minute).
	RateLimitWindow time.Duration
	// RedisClient enables distributed rate limiting (optional).
	RedisClient *redis.Client
}

// Server is the HTTP server for the gateway URL API.
type Server struct {
	store   *registry.Store
	source  *registry.Source // nil when the registry is file-based
	gateway string
	opts    []convert.MatcherOption
	logger  logger.Logger
	router  *chi.Mux

	// The converter is rebuilt only when the registry snapshot changes.
	mu      sync.Mutex
	conv    *convert.Converter
	convReg *registry.Registry
}

// New creates the API server. source may be nil when the registry comes
// from a local file; the refresh endpoint then reports that no remote
// source is configured.
func New(store *registry.Store, source *registry.Source, log logger.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("registry store is required")
	}
	if log == nil {
		log = logger.Noop()
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.GatewayDomain == "" {
		return nil, fmt.Errorf("gateway domain is required")
	}

	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 100
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}

	s := &Server{
		store:   store,
		source:  source,
		gateway: cfg.GatewayDomain,
		opts: []convert.MatcherOption{
			convert.WithPublicSuffix(cfg.PublicSuffix),
			convert.WithLogger(log),
		},
		logger: log,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(RateLimit(RateLimitConfig{
		RequestLimit:   cfg.RateLimitRequests,
		WindowDuration: cfg.RateLimitWindow,
		RedisClient:    cfg.RedisClient,
	}))

	r.Post("/v1/convert", s.handleConvert)
	r.Get("/v1/platforms", s.handlePlatforms)
	r.Post("/v1/registry/refresh", s.handleRefresh)
	r.Get("/catalog", s.handleCatalog)
	r.Get("/health", s.handleHealth)

	s.router = r

	return s, nil
}

// Router returns the underlying router, for mounting into an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// StartWithShutdown starts the HTTP server and shuts it down gracefully
// when the context is cancelled.
func (s *Server) StartWithShutdown(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// converter returns a converter bound to the current registry snapshot,
// rebuilding it only after a reload swapped the snapshot.
func (s *Server) converter() *convert.Converter {
	reg := s.store.Current()
	if reg == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if reg != s.convReg {
		s.conv = convert.New(reg, s.gateway, s.opts...)
		s.convReg = reg
	}
	return s.conv
}
