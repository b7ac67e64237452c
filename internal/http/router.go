package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"voting-system/internal/domain/admin"
	"voting-system/internal/domain/candidate"
	"voting-system/internal/domain/event"
	"voting-system/internal/domain/results"
	"voting-system/internal/domain/session"
	jwtpkg "voting-system/internal/platform/jwt"
	"voting-system/internal/ws"
)

type Handler struct {
	adminSvc     *admin.Service
	candidateSvc *candidate.Service
	eventSvc     *event.Service
	sessionSvc   *session.Service
	resultsSvc   *results.Service
	gateway      *ws.Gateway
	jwtMgr       *jwtpkg.Manager
	db           *sql.DB
}

func NewRouter(
	adminSvc *admin.Service,
	candidateSvc *candidate.Service,
	eventSvc *event.Service,
	sessionSvc *session.Service,
	resultsSvc *results.Service,
	gateway *ws.Gateway,
	jwtMgr *jwtpkg.Manager,
	db *sql.DB,
) http.Handler {
	h := &Handler{
		adminSvc:     adminSvc,
		candidateSvc: candidateSvc,
		eventSvc:     eventSvc,
		sessionSvc:   sessionSvc,
		resultsSvc:   resultsSvc,
		gateway:      gateway,
		jwtMgr:       jwtMgr,
		db:           db,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger)
	r.Use(CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ready", h.handleReady)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// No timeout middleware here: an upgraded connection outlives any
	// per-request deadline.
	r.Get("/ws/vote/{link}", gateway.HandleVoter)
	r.Get("/ws/display/{link}", gateway.HandleDisplay)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))

		r.With(RateLimitLogin(rate.Every(time.Minute/10), 5)).Post("/auth/login", h.handleLogin)

		r.Get("/events/by-link/{link}", h.handleGetEventByLink)
		r.Get("/events/by-link/{link}/results", h.handleEventResultsByLink)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(jwtMgr))

			r.Get("/candidates", h.handleListCandidates)
			r.Post("/candidates", h.handleCreateCandidate)
			r.Get("/candidates/{id}", h.handleGetCandidate)
			r.Patch("/candidates/{id}", h.handleUpdateCandidate)
			r.Delete("/candidates/{id}", h.handleDeleteCandidate)

			r.Get("/events", h.handleListEvents)
			r.Post("/events", h.handleCreateEvent)
			r.Get("/events/{id}", h.handleGetEvent)
			r.Delete("/events/{id}", h.handleDeleteEvent)
			r.Post("/events/{id}/start", h.handleStartEvent)
			r.Post("/events/{id}/stop", h.handleStopEvent)
			r.Post("/events/{id}/archive", h.handleArchiveEvent)
			r.Get("/events/{id}/results", h.handleEventResults)

			r.Get("/events/{id}/candidates", h.handleListEventCandidates)
			r.Post("/events/{id}/candidates", h.handleAddEventCandidate)
			r.Delete("/events/{id}/candidates/{candidateID}", h.handleRemoveEventCandidate)
			r.Put("/events/{id}/candidates/order", h.handleReorderCandidates)
			r.Post("/events/{id}/groups", h.handleSetGroup)
			r.Delete("/events/{id}/groups/{ecID}", h.handleUnsetGroup)

			r.Post("/events/{id}/timer/start", h.handleStartTimer)
			r.Post("/events/{id}/next-candidate", h.handleNextCandidate)
			r.Put("/events/{id}/current-index", h.handleSetCurrentIndex)
			r.Post("/events/{id}/reset", h.handleResetEvent)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	idStr := chi.URLParam(r, name)
	return strconv.ParseInt(idStr, 10, 64)
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "db_unavailable",
			"message": "database not ready",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
