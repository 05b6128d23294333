package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quiz-runner/internal/app"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/review"
)

// NewRouter mounts the health check, the profile REST endpoints and the
// websocket channel.
func NewRouter(service *app.QuizService, origins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	api := &restHandler{service: service, logger: logger}
	ws := NewWSHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ws", ws.ServeWS)
	r.Route("/api/profiles/{profileID}", func(r chi.Router) {
		r.Get("/settings", api.settings)
		r.Get("/session", api.session)
		r.Delete("/session", api.restart)
	})
	return r
}

type restHandler struct {
	service *app.QuizService
	logger  *slog.Logger
}

type sessionStatus struct {
	Resumable  bool             `json:"resumable"`
	Live       bool             `json:"live"`
	SessionID  string           `json:"sessionId,omitempty"`
	GroupIndex int              `json:"groupIndex"`
	GroupCount int              `json:"groupCount"`
	Summary    *review.Summary  `json:"summary,omitempty"`
	Groups     []review.Summary `json:"groups,omitempty"`
}

func (h *restHandler) settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *restHandler) session(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	resumable, err := h.service.Resumable(r.Context(), profileID)
	if err != nil {
		h.fail(w, err)
		return
	}
	status := sessionStatus{Resumable: resumable}
	if engine, err := h.service.Session(profileID); err == nil {
		total, per := engine.Summary()
		status.Live = !engine.Ended()
		status.SessionID = engine.ID()
		status.GroupIndex = engine.CurrentGroupIndex()
		status.GroupCount = engine.GroupCount()
		status.Summary = &total
		status.Groups = per
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *restHandler) restart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Restart(r.Context(), chi.URLParam(r, "profileID")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *restHandler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNothingToResume):
		status = http.StatusNotFound
	default:
		h.logger.Error("request failed", "error", err)
	}
	respondJSON(w, status, errorPayload{Message: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
