// Package server exposes the recorder over HTTP and websockets.
//
// Controllers connect to /ws/controller, pages to /ws/page/{tabID}, and the
// browser extension that can capture the visible tab to /ws/bridge. The JSON
// endpoints under /api accept the same commands for scripted use.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/bus"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/metrics"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/persistence"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/recorder"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

const shutdownTimeout = 5 * time.Second

// Config describes the collaborators a Server needs.
type Config struct {
	Recorder api.Recorder

	// Bus carries STEPS_UPDATED broadcasts and annotation requests.
	Bus bus.MessageBus

	// Bridge receives the extension connection from /ws/bridge. When nil,
	// the bridge socket is not served.
	Bridge *capture.Bridge

	// Catalog archives exported plans. Defaults to an in-memory catalog.
	Catalog persistence.Catalog

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	Logger *zap.Logger
}

type Server struct {
	rec        api.Recorder
	dispatcher *recorder.Dispatcher
	bus        bus.MessageBus
	bridge     *capture.Bridge
	catalog    persistence.Catalog
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	hub      *hub
	stepsSub bus.Subscription
}

// New creates a Server and subscribes it to step broadcasts on cfg.Bus.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Recorder == nil {
		return nil, errors.New("server: recorder is required")
	}
	if cfg.Bus == nil {
		return nil, errors.New("server: bus is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = persistence.NewInMemoryCatalog()
	}

	s := &Server{
		rec:        cfg.Recorder,
		dispatcher: recorder.NewDispatcher(cfg.Recorder, cfg.Logger),
		bus:        cfg.Bus,
		bridge:     cfg.Bridge,
		catalog:    cfg.Catalog,
		gatherer:   cfg.Gatherer,
		logger:     cfg.Logger,
		hub:        newHub(),
	}

	sub, err := cfg.Bus.Subscribe(ctx, bus.SubjectSteps, s.hub.handleSteps)
	if err != nil {
		return nil, err
	}
	s.stepsSub = sub
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/commands", s.handleCommand)
		r.Get("/state", s.handleState)
		r.Get("/export/{format}", s.handleExport)
		r.Get("/plans", s.handleListPlans)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/controller", s.handleController)
		r.Get("/page/{tabID}", s.handlePage)
		r.Get("/bridge", s.handleBridge)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
// Websocket handlers observe ctx through their request contexts.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops forwarding broadcasts and disconnects controllers.
func (s *Server) Close() error {
	s.hub.closeAll()
	if err := s.stepsSub.Unsubscribe(); err != nil && !errors.Is(err, bus.ErrClosed) {
		return err
	}
	return nil
}
