// Package api exposes the derived views over HTTP: the latest stats
// view from the realtime stream, on-demand normalized equity series,
// plus health and Prometheus endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bridge-stats/internal/history"
	"bridge-stats/internal/series"
	"bridge-stats/internal/stats"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Server struct {
	latest       *stats.LatestView
	fetcher      *history.Fetcher
	defaultRange series.Range
	router       *mux.Router
}

func New(latest *stats.LatestView, fetcher *history.Fetcher, defaultRange series.Range) *Server {
	s := &Server{
		latest:       latest,
		fetcher:      fetcher,
		defaultRange: defaultRange,
		router:       mux.NewRouter(),
	}

	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")
	s.router.HandleFunc("/api/v1/series", s.handleSeries).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler())

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start runs the HTTP server until ctx is canceled.
func (s *Server) Start(ctx context.Context, port int) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown HTTP server")
		}
	}()

	log.Info().Int("port", port).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	view, ok := s.latest.Get()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no snapshot received yet")
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("range")
	rng := s.defaultRange
	if raw != "" {
		rng = series.ParseRange(raw)
	}

	rows, err := s.fetcher.Refresh(r.Context(), rng)
	if err != nil {
		log.Error().Err(err).Str("range", string(rng)).Msg("history refresh failed")
		writeError(w, http.StatusBadGateway, "history fetch failed")
		return
	}

	writeJSON(w, map[string]any{
		"range": string(rng),
		"rows":  rows,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
