package api

import (
	"database/sql"
	"errors"
	"net/http"

	"voting-system/internal/domain/admin"
	"voting-system/internal/domain/candidate"
	"voting-system/internal/domain/event"
	"voting-system/internal/domain/session"
	"voting-system/internal/domain/vote"
	"voting-system/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var missing *event.MissingPositionError
	if errors.As(err, &missing) {
		return apperr.BadRequest("missing_positions", missing.Error(), err)
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)
	case errors.Is(err, admin.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, candidate.ErrNameRequired):
		return apperr.BadRequest("name_required", "candidate full name required", err)
	case errors.Is(err, event.ErrNameRequired):
		return apperr.BadRequest("name_required", "event name required", err)
	case errors.Is(err, event.ErrNoCandidates):
		return apperr.BadRequest("no_candidates", "event has no candidates", err)
	case errors.Is(err, event.ErrInvalidStatus):
		return apperr.BadRequest("invalid_status", "operation not allowed in current event status", err)
	case errors.Is(err, event.ErrGroupName):
		return apperr.BadRequest("group_name_required", "group name required", err)
	case errors.Is(err, event.ErrGroupSize):
		return apperr.BadRequest("invalid_group_size", "group must have between 2 and 4 candidates", err)
	case errors.Is(err, event.ErrCandidateNotFound):
		return apperr.BadRequest("candidate_not_in_event", "candidate not part of this event", err)
	case errors.Is(err, event.ErrAlreadyAdded):
		return apperr.Conflict("already_added", "candidate already added to this event", err)
	case errors.Is(err, vote.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "vote already recorded for this device", err)
	case errors.Is(err, session.ErrNoActiveCandidate):
		return apperr.BadRequest("no_active_candidate", "no active candidate for voting", err)
	case errors.Is(err, session.ErrTimerNotRunning):
		return apperr.BadRequest("timer_not_running", "voting has not started for this candidate", err)
	case errors.Is(err, session.ErrTimerExpired):
		return apperr.BadRequest("timer_expired", "voting time has ended for this candidate", err)
	case errors.Is(err, session.ErrCandidateNotInEvent):
		return apperr.BadRequest("candidate_not_in_event", "selected candidate not part of this event", err)
	case errors.Is(err, session.ErrOutOfRange):
		return apperr.BadRequest("index_out_of_range", "candidate index out of range", err)
	case errors.Is(err, session.ErrInvalidChoice):
		return apperr.BadRequest("invalid_choice", "choice must be yes, no or neutral", err)
	case errors.Is(err, session.ErrInvalidDuration):
		return apperr.BadRequest("invalid_duration", "duration must be positive", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
