package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/careloop/telehealth-client/internal/admin"
	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/internal/state"
	syncpkg "github.com/careloop/telehealth-client/internal/sync"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// Engine is the slice of the sync engine the ops surface exposes.
type Engine interface {
	Health() []syncpkg.Health
	Refresh(ctx context.Context, name string) error
}

// Config wires the ops server's dependencies.
type Config struct {
	Addr            string
	Logger          *logging.Logger
	Store           *state.Store
	Engine          Engine
	Growth          *admin.GrowthService
	Gatherer        prometheus.Gatherer
	AdminAuthSecret string
	StreamConnected func() bool
}

// Server is the daemon's own HTTP surface: health, metrics, and a small
// JWT-protected control API.
type Server struct {
	cfg    Config
	logger *logging.Logger
	http   *http.Server
}

// NewServer builds the ops server and its router.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("ops: state store required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("ops: sync engine required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{cfg: cfg, logger: cfg.Logger.Component("ops")}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/status", s.handleStatus)

	r.Group(func(protected chi.Router) {
		protected.Use(AdminJWT(s.cfg.AdminAuthSecret))
		protected.Post("/api/refresh/{slice}", s.handleRefresh)
		protected.Get("/api/growth", s.handleGrowth)
		protected.Post("/api/snapshot", s.handleSnapshot)
	})

	return r
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ops: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	for _, h := range s.cfg.Engine.Health() {
		if !h.Paused && !h.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"poller": h.Name,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusResponse summarizes the daemon for operators.
type statusResponse struct {
	Authenticated   bool               `json:"authenticated"`
	User            *portal.User       `json:"user,omitempty"`
	StreamConnected bool               `json:"stream_connected"`
	Pollers         []syncpkg.Health   `json:"pollers"`
	CycleTotals     map[string]float64 `json:"cycle_totals,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	auth := s.cfg.Store.Auth()
	resp := statusResponse{
		Authenticated: auth.Authenticated,
		User:          auth.User,
		Pollers:       s.cfg.Engine.Health(),
		CycleTotals:   s.cycleTotals(),
	}
	if s.cfg.StreamConnected != nil {
		resp.StreamConnected = s.cfg.StreamConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}

// cycleTotals folds the sync cycle counter into per-slice/status totals for
// the status payload, so operators get them without scraping /metrics.
func (s *Server) cycleTotals() map[string]float64 {
	families, err := s.cfg.Gatherer.Gather()
	if err != nil {
		return nil
	}
	totals := make(map[string]float64)
	for _, mf := range families {
		if mf.GetName() != "telehealth_sync_cycle_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			totals[cycleKey(m)] += m.GetCounter().GetValue()
		}
	}
	if len(totals) == 0 {
		return nil
	}
	return totals
}

func cycleKey(m *dto.Metric) string {
	var slice, status string
	for _, lp := range m.GetLabel() {
		switch lp.GetName() {
		case "slice":
			slice = lp.GetValue()
		case "status":
			status = lp.GetValue()
		}
	}
	return slice + "/" + status
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	slice := chi.URLParam(r, "slice")
	if err := s.cfg.Engine.Refresh(r.Context(), slice); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"refreshed": slice})
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Growth == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "growth service not configured"})
		return
	}
	window := 7 * 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window"})
			return
		}
		window = parsed
	}
	current := s.cfg.Store.Dashboard()
	if current == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "dashboard not yet synced"})
		return
	}
	growth, err := s.cfg.Growth.Compute(r.Context(), *current, window)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, growth)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Growth == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "growth service not configured"})
		return
	}
	if err := s.cfg.Growth.RecordSnapshot(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
