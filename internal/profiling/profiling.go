// Package profiling is the optional operator-facing profiling endpoint
// named by the profile config option: a small HTTP server exposing
// Go's own pprof handlers plus the uptime/version summary
// original_source/src/profiling.rs's ProfilingServer renders as an HTML
// dashboard, translated here into the same JSON-over-HTTP shape
// internal/inspect already uses rather than a second template engine.
package profiling

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/kaseeder/kaseeder/internal/logging"
)

// Version is the build label /stats reports. cmd/dnsseeder does not set
// it, so it reads "dev" unless overridden at link time (-ldflags -X); left
// as a plain var rather than a build-info lookup since no repo in the
// corpus reaches for debug.ReadBuildInfo for this.
var Version = "dev"

// Server binds pprof's index/profile/trace/symbol handlers alongside a
// small stats/health pair, the same two endpoints
// original_source/src/profiling.rs's dashboard calls "stats" and "health".
type Server struct {
	listenAddr string
	logger     *logging.Logger
	started    time.Time

	httpServer *http.Server
}

// New builds a Server bound to listenAddr. It does not start listening
// until Start is called.
func New(listenAddr string, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{listenAddr: listenAddr, logger: logger, started: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: listenAddr, Handler: mux}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infof("profiling: listening on %s\n", s.listenAddr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes the listener and any open connections immediately;
// in-flight requests are not drained.
func (s *Server) Shutdown() error {
	return s.httpServer.Close()
}

type statsResponse struct {
	Version   string `json:"version"`
	StartTime string `json:"start_time"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Version:   Version,
		StartTime: s.started.UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Errorf("profiling: encode stats failed: %v\n", err)
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "healthy", Service: "profiling"}); err != nil {
		s.logger.Errorf("profiling: encode health failed: %v\n", err)
	}
}
