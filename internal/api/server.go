// Package api provides the HTTP API for the league.
// GET endpoints are public (read-only observation).
// Student actions are open POSTs; instructor actions (grading, settlement)
// require the admin bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talgya/studio-league/internal/engine"
	"github.com/talgya/studio-league/internal/persistence"
	"github.com/talgya/studio-league/internal/store"
)

// EventSource serves the queryable audit trail.
type EventSource interface {
	RecentEvents(ctx context.Context, agencyID string, limit int) ([]persistence.EventRow, error)
}

// Server serves the league over HTTP.
type Server struct {
	Engine      *engine.Engine
	Store       store.Store
	Events      EventSource // nil disables /events
	Addr        string
	AdminKey    string // Bearer token for instructor endpoints. Empty = disabled.
	CORSOrigins []string

	CovertLimit  int           // adversarial requests per window per IP
	CovertWindow time.Duration // default 1 hour
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	limit, window := s.CovertLimit, s.CovertWindow
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = time.Hour
	}
	covertLimiter := NewRateLimiter(limit, window)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/agencies", s.handleAgencies)
	mux.HandleFunc("GET /api/v1/agencies/{id}", s.handleAgency)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)

	// Student actions.
	mux.HandleFunc("POST /api/v1/agencies/{id}/mercato", s.handleRequestMercato)
	mux.HandleFunc("POST /api/v1/requests/{id}/votes", s.handleVote)
	mux.HandleFunc("POST /api/v1/agencies/{id}/requests/{rid}/reject", s.handleReject)
	mux.HandleFunc("POST /api/v1/agencies/{id}/challenges", s.handleChallenge)
	mux.HandleFunc("POST /api/v1/agencies/{id}/reviews", s.handlePeerReview)
	mux.HandleFunc("POST /api/v1/mergers", s.handleProposeMerger)
	mux.HandleFunc("POST /api/v1/agencies/{id}/mergers/{rid}", s.handleFinalizeMerger)
	mux.HandleFunc("POST /api/v1/agencies/{id}/covert", RateLimitMiddleware(covertLimiter, s.handleCovert))
	mux.HandleFunc("POST /api/v1/agencies/{id}/blackops", RateLimitMiddleware(covertLimiter, s.handleBlackOp))

	// Instructor endpoints.
	mux.HandleFunc("POST /api/v1/agencies/{id}/grades", s.adminOnly(s.handleGrade))
	mux.HandleFunc("POST /api/v1/settle", s.adminOnly(s.handleSettle))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		slog.Info("HTTP API stopped")
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no AGENCYD_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// decodeBody reads a JSON body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
