package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"voting-system/internal/domain/candidate"
)

var (
	ErrNameRequired      = errors.New("event name required")
	ErrNoCandidates      = errors.New("event has no candidates")
	ErrInvalidStatus     = errors.New("operation not allowed in current event status")
	ErrGroupSize         = errors.New("group must have between 2 and 4 candidates")
	ErrCandidateNotFound = errors.New("candidate not part of this event")
	ErrAlreadyAdded      = errors.New("candidate already added to this event")
	ErrGroupName         = errors.New("group name required")
)

// MissingPositionError lists candidates that block an event start because
// they have no position set.
type MissingPositionError struct {
	Names []string
}

func (e *MissingPositionError) Error() string {
	return "all candidates must have a position before starting, missing for: " + strings.Join(e.Names, ", ")
}

type Service struct {
	repo        Repository
	candidates  candidate.Repository
	display     DisplayRepository
	defaultDur  int
	now         func() time.Time
}

func NewService(repo Repository, candidates candidate.Repository, display DisplayRepository, defaultDurationSec int) *Service {
	if defaultDurationSec <= 0 {
		defaultDurationSec = 15
	}
	return &Service{
		repo:       repo,
		candidates: candidates,
		display:    display,
		defaultDur: defaultDurationSec,
		now:        time.Now,
	}
}

// Create builds a pending event with a short shareable link and its ordered
// candidate list.
func (s *Service) Create(ctx context.Context, name string, candidateIDs []int64, durationSec int) (*Event, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if durationSec <= 0 {
		durationSec = s.defaultDur
	}

	for _, id := range candidateIDs {
		if _, err := s.candidates.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
	}

	e := &Event{
		Name:        name,
		Link:        uuid.NewString()[:8],
		DurationSec: durationSec,
		Status:      StatusPending,
	}
	if _, err := s.repo.Create(ctx, e, candidateIDs); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByLink(ctx context.Context, link string) (*Event, error) {
	return s.repo.GetByLink(ctx, link)
}

func (s *Service) List(ctx context.Context) ([]Event, error) {
	return s.repo.List(ctx)
}

func (s *Service) Candidates(ctx context.Context, eventID int64) ([]EventCandidate, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListCandidates(ctx, eventID)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Start moves a pending event to active. Every candidate must carry a
// position so the display screen has something to render.
func (s *Service) Start(ctx context.Context, id int64) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPending {
		return nil, ErrInvalidStatus
	}

	ecs, err := s.repo.ListCandidates(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(ecs) == 0 {
		return nil, ErrNoCandidates
	}

	var missing []string
	for _, ec := range ecs {
		if ec.Candidate == nil || strings.TrimSpace(ec.Candidate.PositionValue()) == "" {
			name := fmt.Sprintf("ID %d", ec.CandidateID)
			if ec.Candidate != nil && ec.Candidate.FullName != "" {
				name = ec.Candidate.FullName
			}
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingPositionError{Names: missing}
	}

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, StatusActive, &now, nil); err != nil {
		return nil, err
	}
	e.Status = StatusActive
	e.StartTime = &now
	return e, nil
}

func (s *Service) Stop(ctx context.Context, id int64) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusActive {
		return nil, ErrInvalidStatus
	}

	now := s.now()
	if err := s.repo.UpdateStatus(ctx, id, StatusFinished, nil, &now); err != nil {
		return nil, err
	}
	e.Status = StatusFinished
	e.EndTime = &now
	return e, nil
}

func (s *Service) Archive(ctx context.Context, id int64) (*Event, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusActive {
		return nil, ErrInvalidStatus
	}

	endTime := e.EndTime
	if endTime == nil {
		now := s.now()
		endTime = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusArchived, nil, endTime); err != nil {
		return nil, err
	}
	e.Status = StatusArchived
	e.EndTime = endTime
	return e, nil
}

func (s *Service) AddCandidate(ctx context.Context, eventID, candidateID int64) (*EventCandidate, error) {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if _, err := s.candidates.GetByID(ctx, candidateID); err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindCandidate(ctx, eventID, candidateID); err == nil && existing != nil {
		return nil, ErrAlreadyAdded
	}
	return s.repo.AddCandidate(ctx, eventID, candidateID)
}

func (s *Service) RemoveCandidate(ctx context.Context, eventID, candidateID int64) error {
	if _, err := s.repo.FindCandidate(ctx, eventID, candidateID); err != nil {
		return ErrCandidateNotFound
	}
	return s.repo.RemoveCandidate(ctx, eventID, candidateID)
}

// Reorder rewrites the candidate order to match the given id sequence. Ids
// not present in the event are rejected.
func (s *Service) Reorder(ctx context.Context, eventID int64, candidateIDs []int64) error {
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return err
	}

	ecs, err := s.repo.ListCandidates(ctx, eventID)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(ecs))
	for _, ec := range ecs {
		known[ec.CandidateID] = true
	}
	for _, id := range candidateIDs {
		if !known[id] {
			return ErrCandidateNotFound
		}
	}

	return s.repo.Reorder(ctx, eventID, candidateIDs)
}

func (s *Service) SetGroup(ctx context.Context, eventID int64, ecIDs []int64, group string) error {
	if group == "" {
		return ErrGroupName
	}
	if len(ecIDs) < 2 || len(ecIDs) > 4 {
		return ErrGroupSize
	}
	if _, err := s.repo.GetByID(ctx, eventID); err != nil {
		return err
	}

	ecs, err := s.repo.ListCandidates(ctx, eventID)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(ecs))
	for _, ec := range ecs {
		known[ec.ID] = true
	}
	for _, id := range ecIDs {
		if !known[id] {
			return ErrCandidateNotFound
		}
	}

	return s.repo.SetGroup(ctx, eventID, ecIDs, group)
}

func (s *Service) UnsetGroup(ctx context.Context, eventID, ecID int64) error {
	return s.repo.UnsetGroup(ctx, eventID, ecID)
}
