package api

import (
	"encoding/json"
	"net/http"

	"voting-system/internal/platform/apperr"
)

type createEventRequest struct {
	Name         string  `json:"name"`
	CandidateIDs []int64 `json:"candidate_ids"`
	DurationSec  int     `json:"duration_sec"`
}

type reorderRequest struct {
	CandidateIDs []int64 `json:"candidate_ids"`
}

type setGroupRequest struct {
	EventCandidateIDs []int64 `json:"event_candidate_ids"`
	Group             string  `json:"group"`
}

type addCandidateRequest struct {
	CandidateID int64 `json:"candidate_id"`
}

// @Summary     Create event
// @Tags        events
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      createEventRequest  true  "Event payload"
// @Success     201      {object}  event.Event
// @Failure     400      {object}  map[string]string  "invalid body"
// @Router      /api/v1/events [post]
func (h *Handler) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	e, err := h.eventSvc.Create(r.Context(), req.Name, req.CandidateIDs, req.DurationSec)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := h.eventSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	e, err := h.eventSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	ecs, err := h.eventSvc.Candidates(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event":      e,
		"candidates": ecs,
	})
}

// @Summary     Event lookup by shareable link
// @Tags        events
// @Produce     json
// @Param       link  path      string  true  "Event link"
// @Success     200   {object}  map[string]any
// @Failure     404   {object}  map[string]string  "not found"
// @Router      /api/v1/events/by-link/{link} [get]
func (h *Handler) handleGetEventByLink(w http.ResponseWriter, r *http.Request) {
	link := urlParam(r, "link")

	e, err := h.eventSvc.GetByLink(r.Context(), link)
	if err != nil {
		errorResponse(w, err)
		return
	}

	cur, err := h.resultsSvc.CurrentCandidate(r.Context(), e)
	if err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event":   e,
		"current": cur,
	})
}

func (h *Handler) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	if err := h.eventSvc.Delete(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Start event
// @Tags        events
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Event ID"
// @Success     200  {object}  event.Event
// @Failure     400  {object}  map[string]string  "invalid status or missing positions"
// @Router      /api/v1/events/{id}/start [post]
func (h *Handler) handleStartEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	e, err := h.eventSvc.Start(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleStopEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	e, err := h.eventSvc.Stop(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) handleArchiveEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	e, err := h.eventSvc.Archive(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// @Summary     Event results
// @Tags        events
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Event ID"
// @Success     200  {object}  results.EventResults
// @Failure     404  {object}  map[string]string  "not found"
// @Router      /api/v1/events/{id}/results [get]
func (h *Handler) handleEventResults(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	res, err := h.resultsSvc.EventResults(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleEventResultsByLink(w http.ResponseWriter, r *http.Request) {
	link := urlParam(r, "link")

	e, err := h.eventSvc.GetByLink(r.Context(), link)
	if err != nil {
		errorResponse(w, err)
		return
	}

	res, err := h.resultsSvc.EventResults(r.Context(), e.ID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListEventCandidates(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	ecs, err := h.eventSvc.Candidates(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ecs)
}

func (h *Handler) handleAddEventCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	var req addCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.CandidateID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "candidate_id is required", nil))
		return
	}

	ec, err := h.eventSvc.AddCandidate(r.Context(), id, req.CandidateID)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	writeJSON(w, http.StatusCreated, ec)
}

func (h *Handler) handleRemoveEventCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}
	candidateID, err := parseIDParam(r, "candidateID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid candidate id", err))
		return
	}

	if err := h.eventSvc.RemoveCandidate(r.Context(), id, candidateID); err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReorderCandidates(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.eventSvc.Reorder(r.Context(), id, req.CandidateIDs); err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}

	var req setGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	if err := h.eventSvc.SetGroup(r.Context(), id, req.EventCandidateIDs, req.Group); err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnsetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid event id", err))
		return
	}
	ecID, err := parseIDParam(r, "ecID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group entry id", err))
		return
	}

	if err := h.eventSvc.UnsetGroup(r.Context(), id, ecID); err != nil {
		errorResponse(w, err)
		return
	}

	h.gateway.PushEventState(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}
