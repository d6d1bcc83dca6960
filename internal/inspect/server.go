// Package inspect implements the read-only Inspection API (spec.md §6):
// GetAddresses, GetAddressStats, HealthCheck. No repo in the example
// corpus imports a gRPC stack, so this ships the same contract as small
// JSON endpoints over net/http, wrapped with github.com/rs/cors the way
// testnetkitchen-director wraps its own RPC server.
package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/kaseeder/kaseeder/internal/logging"
	"github.com/kaseeder/kaseeder/internal/store"
)

// Server is the inspection HTTP server. Bind it to Config's ListenAddr
// and call Start; it never mutates the Store.
type Server struct {
	cfg     Config
	store   store.Manager
	logger  *logging.Logger
	started time.Time

	httpServer *http.Server
}

// Config holds the inspection server's listen address, per spec.md §6's
// `grpc_listen` option (kept under that name even though this transport
// is JSON-over-HTTP, not gRPC — same contract, corpus-grounded transport).
type Config struct {
	ListenAddr  string
	SampleSize  int
	DefaultPort uint16
}

// New builds a Server. It does not start listening until Start is called.
func New(cfg Config, mgr store.Manager, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{cfg: cfg, store: mgr, logger: logger, started: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/addresses", s.handleAddresses)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/", s.handleStatusPage)

	handler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	s.httpServer = &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown() error {
	return s.httpServer.Shutdown(context.Background())
}

// addressesResponse is GetAddresses's wire shape.
type addressesResponse struct {
	Addresses []string `json:"addresses"`
}

// handleAddresses implements GetAddresses: a sampled list of currently
// Good addresses, spec.md §6.
func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	v4 := s.store.GoodSample(s.cfg.SampleSize, store.FamilyV4, "")
	v6 := s.store.GoodSample(s.cfg.SampleSize, store.FamilyV6, "")

	resp := addressesResponse{Addresses: make([]string, 0, len(v4)+len(v6))}
	for _, a := range v4 {
		resp.Addresses = append(resp.Addresses, a.Key())
	}
	for _, a := range v6 {
		resp.Addresses = append(resp.Addresses, a.Key())
	}
	s.writeJSON(w, resp)
}

// statsResponse is GetAddressStats's wire shape.
type statsResponse struct {
	Good                 int    `json:"good"`
	Stale                int    `json:"stale"`
	Bad                  int    `json:"bad"`
	New                  int    `json:"new"`
	RejectedTotal        uint64 `json:"rejected_total"`
	PersistFailuresTotal uint64 `json:"persist_failures_total"`
	RetiredTotal         uint64 `json:"retired_total"`
}

// handleStats implements GetAddressStats: counts by derived state,
// spec.md §6.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.store.SnapshotStats()
	s.writeJSON(w, statsResponse{
		Good:                 stats.Good,
		Stale:                stats.Stale,
		Bad:                  stats.Bad,
		New:                  stats.New,
		RejectedTotal:        stats.RejectedTotal,
		PersistFailuresTotal: stats.PersistFailuresTotal,
		RetiredTotal:         stats.RetiredTotal,
	})
}

// healthResponse is HealthCheck's wire shape.
type healthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// handleHealth implements HealthCheck: liveness only, spec.md §6.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, healthResponse{Status: "ok", Uptime: time.Since(s.started).String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Errorf("inspect: encode response failed: %v\n", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
