// Package server exposes engine evaluations and stored results over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"football-odds-engine/internal/engine"
	"football-odds-engine/internal/provider"
	"football-odds-engine/internal/store"
)

const defaultValueBetLimit = 50

// Handler serves the read-only API.
type Handler struct {
	engine *engine.Engine
	db     *store.DB
}

// NewHandler creates a handler. db may be nil, in which case stored-data
// endpoints answer 503.
func NewHandler(e *engine.Engine, db *store.DB) *Handler {
	return &Handler{engine: e, db: db}
}

// Routes configures the HTTP routes.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/leagues/{league}/evaluations", h.handleEvaluations).Methods(http.MethodGet)
	r.HandleFunc("/leagues/{league}/valuebets", h.handleValueBets).Methods(http.MethodGet)
	r.HandleFunc("/drawwidths", h.handleDrawWidths).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Writing response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "db": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	league := mux.Vars(r)["league"]

	evals, err := h.engine.EvaluateLeague(r.Context(), league)
	switch {
	case errors.Is(err, provider.ErrUnknownLeague):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"league":      league,
		"draw_width":  h.engine.DrawWidth(r.Context(), league),
		"evaluations": evals,
	})
}

func (h *Handler) handleValueBets(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	league := mux.Vars(r)["league"]

	limit := defaultValueBetLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	bets, err := h.db.ValueBets(r.Context(), league, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bets == nil {
		bets = []store.ValueBet{}
	}
	writeJSON(w, http.StatusOK, bets)
}

func (h *Handler) handleDrawWidths(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	rows, err := h.db.DrawWidthRows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []store.DrawWidthRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListenAndServe runs the API on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
