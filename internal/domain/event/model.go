package event

import (
	"context"
	"time"

	"voting-system/internal/domain/candidate"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
	StatusArchived Status = "archived"
)

const (
	CandidatePending   = "pending"
	CandidateActive    = "active"
	CandidateCompleted = "completed"
)

type Event struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Link        string     `json:"link"`
	DurationSec int        `json:"duration_sec"`
	Status      Status     `json:"status"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	// CurrentIndex points into the ordered candidate list. Once voting is
	// exhausted it is pinned to the candidate count and never dereferenced.
	CurrentIndex int       `json:"current_index"`
	CreatedAt    time.Time `json:"created_at"`
}

type EventCandidate struct {
	ID               int64      `json:"id"`
	EventID          int64      `json:"event_id"`
	CandidateID      int64      `json:"candidate_id"`
	Order            int        `json:"order"`
	Status           string     `json:"status"`
	Group            *string    `json:"candidate_group,omitempty"`
	TimerStartedAt   *time.Time `json:"timer_started_at,omitempty"`
	ParticipantCount int64      `json:"participant_count"`

	Candidate *candidate.Candidate `json:"candidate,omitempty"`
}

// InGroup reports whether ec shares a non-empty group label with group.
func (ec *EventCandidate) InGroup(group *string) bool {
	if group == nil || ec.Group == nil {
		return false
	}
	return *ec.Group == *group
}

type TimerInfo struct {
	Running     bool       `json:"running"`
	RemainingMS int64      `json:"remaining_ms"`
	DurationSec int        `json:"duration_sec"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

// ComputeTimer derives the countdown state lazily from the stored start
// timestamp. There is no scheduled callback: voting is open exactly while
// the wall clock has not passed started_at + duration.
func ComputeTimer(ec *EventCandidate, durationSec int, now time.Time) TimerInfo {
	info := TimerInfo{DurationSec: durationSec}
	if ec == nil || ec.TimerStartedAt == nil {
		return info
	}

	started := *ec.TimerStartedAt
	endsAt := started.Add(time.Duration(durationSec) * time.Second)
	info.StartedAt = &started
	info.EndsAt = &endsAt

	if remaining := endsAt.Sub(now); remaining > 0 {
		info.Running = true
		info.RemainingMS = remaining.Milliseconds()
	}
	return info
}

// DisplayState is a read cache for the display surface, rebuilt by the state
// machine on every transition. It is never authoritative.
type DisplayState struct {
	EventID            int64      `json:"event_id"`
	CurrentCandidateID *int64     `json:"current_candidate_id,omitempty"`
	CountdownUntil     *time.Time `json:"countdown_until,omitempty"`
}

type Repository interface {
	Create(ctx context.Context, e *Event, candidateIDs []int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	GetByLink(ctx context.Context, link string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	UpdateStatus(ctx context.Context, id int64, status Status, startTime, endTime *time.Time) error
	UpdateCurrentIndex(ctx context.Context, id int64, index int) error
	Delete(ctx context.Context, id int64) error

	// ListCandidates returns the event's candidates ordered by Order, with
	// the Candidate relation populated.
	ListCandidates(ctx context.Context, eventID int64) ([]EventCandidate, error)
	FindCandidate(ctx context.Context, eventID, candidateID int64) (*EventCandidate, error)
	AddCandidate(ctx context.Context, eventID, candidateID int64) (*EventCandidate, error)
	RemoveCandidate(ctx context.Context, eventID, candidateID int64) error
	UpdateCandidateStatus(ctx context.Context, ecID int64, status string) error
	SetTimerStarted(ctx context.Context, ecID int64, at *time.Time) error
	SetParticipantCount(ctx context.Context, ecID int64, count int64) error
	Reorder(ctx context.Context, eventID int64, candidateIDs []int64) error
	SetGroup(ctx context.Context, eventID int64, ecIDs []int64, group string) error
	UnsetGroup(ctx context.Context, eventID, ecID int64) error
	// ResetCandidates returns every candidate of the event to pending with no
	// timer start and a zero participant counter.
	ResetCandidates(ctx context.Context, eventID int64) error
}

type DisplayRepository interface {
	Get(ctx context.Context, eventID int64) (*DisplayState, error)
	Set(ctx context.Context, eventID int64, candidateID *int64, until *time.Time) error
	Clear(ctx context.Context, eventID int64) error
}
