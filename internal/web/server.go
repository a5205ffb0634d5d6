package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"candlescan/internal/metrics"
	"candlescan/internal/provider"
	"candlescan/internal/scanner"
	"candlescan/internal/store"
	"candlescan/internal/symbols"
)

// Server exposes scans, rules and stored runs over HTTP
type Server struct {
	scanner      *scanner.Scanner
	provider     provider.Provider
	loader       *symbols.Loader
	store        *store.Store // nil disables persistence
	lookbackDays int
	logger       zerolog.Logger
	srv          *http.Server
}

// NewServer creates a new web server
func NewServer(sc *scanner.Scanner, p provider.Provider, st *store.Store, lookbackDays int, logger zerolog.Logger) *Server {
	return &Server{
		scanner:      sc,
		provider:     p,
		loader:       symbols.NewLoader(),
		store:        st,
		lookbackDays: lookbackDays,
		logger:       logger,
	}
}

// Handler returns the routed API handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/rules", s.handleRules)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/stock/", s.handleStock)
	mux.HandleFunc("/api/universes", s.handleUniverses)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.handleRun)

	mux.Handle("/metrics", metrics.Handler())

	return corsMiddleware(mux)
}

// Start starts the web server on the specified port
func (s *Server) Start(port int) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info().Int("port", port).Msgf("candlescan API at http://localhost:%d", port)

	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
