// Package server exposes billing, attribution and synthetic usage over a
// local JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
)

const defaultMaxSpanDays = 366

// Service is the GitHub-facing dependency of the server.
type Service interface {
	copilot.Fetcher
	AuthStatus(ctx context.Context) copilot.AuthStatus
	UsageSummary(ctx context.Context, org string, year, month int) (copilot.UsageSummary, error)
	UserPremiumUsage(ctx context.Context, user string, year, month int) (copilot.PremiumUsage, error)
	Org(ctx context.Context, org string) (copilot.Org, error)
}

var _ Service = (*copilot.Client)(nil)

type Config struct {
	Org         string
	Seed        string
	Listen      string
	Range       core.RangePreset
	Mode        core.ViewMode
	MaxSpanDays int
}

type Server struct {
	svc     Service
	metrics *metrics
	router  chi.Router
	now     func() time.Time

	mu  sync.RWMutex
	cfg Config
}

func New(svc Service, cfg Config) *Server {
	s := &Server{
		svc:     svc,
		metrics: newMetrics(),
		now:     time.Now,
		cfg:     normalizeConfig(cfg),
	}
	s.router = s.routes()
	return s
}

func normalizeConfig(cfg Config) Config {
	cfg.Org = strings.TrimSpace(cfg.Org)
	if cfg.MaxSpanDays <= 0 {
		cfg.MaxSpanDays = defaultMaxSpanDays
	}
	if cfg.Range == "" {
		cfg.Range = core.Range14d
	}
	if cfg.Mode == "" {
		cfg.Mode = core.ModeCost
	}
	return cfg
}

// UpdateConfig swaps the defaults used by subsequent requests.
func (s *Server) UpdateConfig(cfg Config) {
	cfg = normalizeConfig(cfg)
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Server) config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/auth/status", s.handleAuthStatus)
		r.Get("/billing/premium", s.handlePremium)
		r.Get("/billing/usage/summary/org/{org}", s.handleUsageSummary)
		r.Get("/billing/premium-request/user/{user}", s.handleUserPremium)
		r.Get("/org/{org}", s.handleOrg)
		r.Get("/attribution", s.handleAttribution)
		r.Get("/synthetic", s.handleSynthetic)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Run serves on the configured listen address until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config().Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config().Listen, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Event("server_listening", "addr", listener.Addr().String())
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Event("server_shutdown", "reason", "context_done")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	}
}
