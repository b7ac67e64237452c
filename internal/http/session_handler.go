package api

import (
	"encoding/json"
	"net/http"

	"voting-system/internal/platform/apperr"
)

type startTimerRequest struct {
	DurationSec int `json:"duration_sec"`
}

type setIndexRequest struct {
	Index int `json:"index"`
}

// @Summary     Start voting countdown for the current candidate
// @Tags        session
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64              true   "Event ID"
// @Param       request  body      startTimerRequest  false  "Optional duration override"
// @Success     200      {object}  map[string]any
// @Failure     400      {object}  map[string]string  "invalid status or index"
// @Router      /api/v1/events/{id}/timer/start [post]
func (h *Handler) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	var req startTimerRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
			return
		}
	}

	durationSec, err := h.sessionSvc.StartTimer(r.Context(), id, req.DurationSec)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":     id,
		"duration_sec": durationSec,
	})
}

// @Summary     Move to the next candidate
// @Tags        session
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Event ID"
// @Success     200  {object}  session.AdvanceResult
// @Failure     400  {object}  map[string]string  "event not active"
// @Router      /api/v1/events/{id}/next-candidate [post]
func (h *Handler) handleNextCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	res, err := h.sessionSvc.Advance(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSetCurrentIndex(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	var req setIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.sessionSvc.SetCurrentIndex(r.Context(), id, req.Index); err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": id,
		"index":    req.Index,
	})
}

// @Summary     Clear all votes and restart the event from the first candidate
// @Tags        session
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Event ID"
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  map[string]string  "event archived"
// @Router      /api/v1/events/{id}/reset [post]
func (h *Handler) handleResetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	deleted, err := h.sessionSvc.Reset(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushVotesCleared(r.Context(), id, deleted)
	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":      id,
		"deleted_votes": deleted,
	})
}
