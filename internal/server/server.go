// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rhyolite Contributors

// Package server exposes the graph store over HTTP. Structured
// operations go through huma for schema'd request/response handling and
// OpenAPI generation; attachment byte streams use raw chi routes.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rhyolite-dev/rhyolite/internal/blob"
	"github.com/rhyolite-dev/rhyolite/internal/store"
	rherr "github.com/rhyolite-dev/rhyolite/pkg/errors"
	"github.com/rhyolite-dev/rhyolite/pkg/health"
)

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wraps a chi router with the huma API and the store bundle.
type Server struct {
	router chi.Router
	api    huma.API
	cfg    Config
	stores store.Stores
	blobs  blob.Store
	logger *slog.Logger
}

// New creates a Server with chi router, huma API, health endpoint, CORS
// and all graph routes registered.
func New(cfg Config, stores store.Stores, blobs blob.Store) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, rherr.New(rherr.CodeServerStartFailure, "listen address is required")
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	humaConfig := huma.DefaultConfig("Rhyolite", "0.1.0")
	humaConfig.Info.Description = "Schema-governed property-graph store API"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router: r,
		api:    api,
		cfg:    cfg,
		stores: stores,
		blobs:  blobs,
		logger: slog.Default(),
	}

	srv.registerHealthRoute()
	srv.registerRoutes()
	srv.registerAttachmentRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API for registering additional operations.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until the context is
// cancelled, then performs graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return rherr.Errorf(rherr.CodeServerStartFailure, "listening on %s: %w", s.cfg.ListenAddr, err)
	}

	s.logger.Info("server listening", "addr", s.cfg.ListenAddr)

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return rherr.Errorf(rherr.CodeServerInternalFailure, "shutting down: %w", err)
	}

	return <-errCh
}

// healthOutput wraps the health check response.
type healthOutput struct {
	Body health.Status
}

func (s *Server) registerHealthRoute() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, func(ctx context.Context, _ *struct{}) (*healthOutput, error) {
		if err := s.stores.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "health check failed", "error", err)
			return nil, huma.Error503ServiceUnavailable("database schema not ready")
		}
		return &healthOutput{Body: health.Status{
			OK:             true,
			DBSchemaReady:  true,
			AllowedOrigins: allowedOrigins(s.cfg.CORSOrigins),
			Time:           time.Now().UTC(),
		}}, nil
	})
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:10000"}
	}
	return origins
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(origins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
