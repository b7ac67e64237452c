package api

import (
	"encoding/json"
	"net/http"

	"voting-system/internal/domain/candidate"
	"voting-system/internal/platform/apperr"
)

type candidateRequest struct {
	FullName     string  `json:"full_name"`
	Image        *string `json:"image"`
	BirthDate    *string `json:"birth_date"`
	Degree       *string `json:"degree"`
	Position     *string `json:"position"`
	ElectionTime *string `json:"election_time"`
	Description  *string `json:"description"`
}

func (req *candidateRequest) apply(c *candidate.Candidate) {
	c.FullName = req.FullName
	c.Image = req.Image
	c.BirthDate = parseTimePtr(req.BirthDate)
	c.Degree = req.Degree
	c.Position = req.Position
	c.ElectionTime = req.ElectionTime
	c.Description = req.Description
}

// @Summary     Create candidate
// @Tags        candidates
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      candidateRequest  true  "Candidate payload"
// @Success     201      {object}  candidate.Candidate
// @Failure     400      {object}  map[string]string  "invalid body"
// @Router      /api/v1/candidates [post]
func (h *Handler) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	c := &candidate.Candidate{}
	req.apply(c)

	if err := h.candidateSvc.Create(r.Context(), c); err != nil {
		errorResponse(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	list, err := h.candidateSvc.List(r.Context())
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid candidate id", err))
		return
	}

	c, err := h.candidateSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid candidate id", err))
		return
	}

	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	c, err := h.candidateSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	req.apply(c)

	if err := h.candidateSvc.Update(r.Context(), c); err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid candidate id", err))
		return
	}

	if err := h.candidateSvc.Delete(r.Context(), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
