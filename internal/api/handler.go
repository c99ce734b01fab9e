// Package api serves finished session histories and the live session
// snapshot over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/pixil98/go-manhunt/internal/game"
)

// HistoryReader lists and loads stored histories.
type HistoryReader interface {
	Keys() []string
	Get(key string) *game.History
}

// SessionReader exposes the session running in this process.
type SessionReader interface {
	Room() string
	Snapshot() (game.UiState, bool)
}

type Handler struct {
	histories HistoryReader
	session   SessionReader
}

func NewHandler(histories HistoryReader, session SessionReader) *Handler {
	return &Handler{
		histories: histories,
		session:   session,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.Health)
	r.Get("/session", h.GetSession)
	r.Route("/histories", func(r chi.Router) {
		r.Get("/", h.ListHistories)
		r.Get("/{key}", h.GetHistory)
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type sessionResponse struct {
	Room    string        `json:"room"`
	Started bool          `json:"started"`
	State   *game.UiState `json:"state,omitempty"`
}

// GetSession handles GET /session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		respondError(w, http.StatusNotFound, "no session in this process")
		return
	}

	ui, started := h.session.Snapshot()
	resp := sessionResponse{
		Room:    h.session.Room(),
		Started: started,
	}
	if started {
		resp.State = &ui
	}
	respondJSON(w, http.StatusOK, resp)
}

type historySummary struct {
	Key          string    `json:"key"`
	ID           uuid.UUID `json:"id"`
	Started      time.Time `json:"started"`
	Ended        time.Time `json:"ended"`
	Participants int       `json:"participants"`
	Events       int       `json:"events"`
}

// ListHistories handles GET /histories, newest first.
func (h *Handler) ListHistories(w http.ResponseWriter, r *http.Request) {
	keys := h.histories.Keys()
	out := make([]historySummary, 0, len(keys))
	for _, k := range keys {
		hist := h.histories.Get(k)
		if hist == nil {
			continue
		}
		out = append(out, historySummary{
			Key:          k,
			ID:           hist.ID,
			Started:      hist.Started,
			Ended:        hist.Ended,
			Participants: len(hist.Locations),
			Events:       len(hist.Events),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// GetHistory handles GET /histories/{key}.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	hist := h.histories.Get(key)
	if hist == nil {
		respondError(w, http.StatusNotFound, "history not found")
		return
	}
	respondJSON(w, http.StatusOK, hist)
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("writing response", "status", status, "error", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
