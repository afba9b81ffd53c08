// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the player controller over a small local HTTP API.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/jellyplay/internal/api/middleware"
	"github.com/ManuGH/jellyplay/internal/health"
	"github.com/ManuGH/jellyplay/internal/playback"
	"github.com/ManuGH/jellyplay/internal/player"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolver turns an item id into a playable target.
type Resolver interface {
	Resolve(ctx context.Context, itemID string) (playback.Target, error)
}

// Controller is the subset of *player.Controller the API drives.
type Controller interface {
	Configure(ctx context.Context, target playback.Target) error
	TogglePlayPause() error
	Seek(seconds float64) error
	Close() error
	Snapshot() player.Snapshot
	Subscribe() (<-chan player.Snapshot, func())
}

// Config tunes the HTTP surface.
type Config struct {
	// ServiceName names server spans; empty disables tracing.
	ServiceName string
	// RateLimit is the number of control requests per minute and client.
	RateLimit int
}

// Server routes control requests to the resolver and controller.
type Server struct {
	cfg        Config
	resolver   Resolver
	controller Controller
	health     *health.Manager
	router     chi.Router
}

// New builds the router. health may be nil, in which case /healthz and
// /readyz are not mounted.
func New(cfg Config, resolver Resolver, controller Controller, hm *health.Manager) *Server {
	s := &Server{
		cfg:        cfg,
		resolver:   resolver,
		controller: controller,
		health:     hm,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.ServiceName,
		EnableLogging:  true,
	})

	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ControlRateLimit(s.cfg.RateLimit))

		r.Get("/player", s.handleGetPlayer)
		r.Get("/player/events", s.handlePlayerEvents)
		r.Post("/player/open", s.handleOpen)
		r.Post("/player/toggle", s.handleToggle)
		r.Post("/player/seek", s.handleSeek)
		r.Post("/player/close", s.handleClose)

		r.Get("/items/{itemID}/stream", s.handleResolveStream)
	})
	return r
}
