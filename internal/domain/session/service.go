package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voting-system/internal/domain/event"
	"voting-system/internal/domain/vote"
)

var (
	ErrNoActiveCandidate   = errors.New("no active candidate for voting")
	ErrTimerNotRunning     = errors.New("voting has not started for this candidate")
	ErrTimerExpired        = errors.New("voting time has ended for this candidate")
	ErrCandidateNotInEvent = errors.New("selected candidate not part of this event")
	ErrOutOfRange          = errors.New("candidate index out of range")
	ErrInvalidChoice       = errors.New("invalid vote choice")
	ErrNonceRequired       = errors.New("vote nonce required")
	ErrInvalidDuration     = errors.New("duration must be positive")
)

// Service is the per-event voting state machine. Admin mutations
// (StartTimer, Advance, SetCurrentIndex, Reset) are serialized per event;
// AdmitVote is not serialized; the store's unique voter-identity index
// settles concurrent duplicates.
type Service struct {
	events  event.Repository
	votes   vote.Repository
	display event.DisplayRepository
	now     func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewService(events event.Repository, votes vote.Repository, display event.DisplayRepository) *Service {
	return &Service{
		events:  events,
		votes:   votes,
		display: display,
		now:     time.Now,
		locks:   make(map[int64]*sync.Mutex),
	}
}

func (s *Service) lockEvent(id int64) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// StartTimer opens the countdown for the current candidate. It returns the
// effective duration in seconds. The new state reaches clients through the
// broadcast the caller performs afterwards.
func (s *Service) StartTimer(ctx context.Context, eventID int64, durationSec int) (int, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if e.Status != event.StatusActive {
		return 0, event.ErrInvalidStatus
	}

	ecs, err := s.events.ListCandidates(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if len(ecs) == 0 {
		return 0, event.ErrNoCandidates
	}
	if e.CurrentIndex < 0 || e.CurrentIndex >= len(ecs) {
		return 0, ErrOutOfRange
	}

	if durationSec <= 0 {
		durationSec = e.DurationSec
	}
	if durationSec <= 0 {
		return 0, ErrInvalidDuration
	}

	cur := ecs[e.CurrentIndex]
	now := s.now()

	if err := s.events.SetTimerStarted(ctx, cur.ID, &now); err != nil {
		return 0, err
	}
	if err := s.events.UpdateCandidateStatus(ctx, cur.ID, event.CandidateActive); err != nil {
		return 0, err
	}

	// Defensive resync of neighbour statuses in case earlier transitions were
	// interrupted.
	for i, ec := range ecs {
		switch {
		case i < e.CurrentIndex && ec.Status != event.CandidateCompleted:
			if err := s.events.UpdateCandidateStatus(ctx, ec.ID, event.CandidateCompleted); err != nil {
				return 0, err
			}
		case i > e.CurrentIndex && ec.Status != event.CandidatePending:
			if err := s.events.UpdateCandidateStatus(ctx, ec.ID, event.CandidatePending); err != nil {
				return 0, err
			}
		}
	}

	until := now.Add(time.Duration(durationSec) * time.Second)
	if err := s.display.Set(ctx, eventID, &cur.CandidateID, &until); err != nil {
		return 0, err
	}

	return durationSec, nil
}

type AdvanceResult struct {
	CurrentIndex int  `json:"current_index"`
	Total        int  `json:"total"`
	Finished     bool `json:"finished"`
}

// Advance completes the current candidate (and its whole group) and moves the
// pointer to the next entry that still needs a vote, skipping group siblings
// and anything already voted on. When the scan runs off the end the event is
// finished and the pointer pinned to the candidate count. The display state is
// always cleared: the next candidate waits for an explicit StartTimer so the
// operator can introduce them first.
func (s *Service) Advance(ctx context.Context, eventID int64) (*AdvanceResult, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ecs, err := s.events.ListCandidates(ctx, eventID)
	if err != nil {
		return nil, err
	}
	total := len(ecs)
	if total == 0 {
		return nil, event.ErrNoCandidates
	}

	idx := e.CurrentIndex
	var currentGroup *string

	if idx >= 0 && idx < total {
		cur := ecs[idx]
		currentGroup = cur.Group
		if err := s.completeEntry(ctx, ecs, cur); err != nil {
			return nil, err
		}
		idx++

		for idx < total {
			next := ecs[idx]

			skip := next.InGroup(currentGroup)
			if !skip {
				skip, err = s.entryVoted(ctx, eventID, ecs, next)
				if err != nil {
					return nil, err
				}
			}
			if !skip {
				if err := s.events.UpdateCandidateStatus(ctx, next.ID, event.CandidatePending); err != nil {
					return nil, err
				}
				if err := s.events.SetTimerStarted(ctx, next.ID, nil); err != nil {
					return nil, err
				}
				break
			}

			if err := s.completeEntry(ctx, ecs, next); err != nil {
				return nil, err
			}
			idx++
		}
	}

	if idx >= total {
		idx = total
		if e.Status != event.StatusFinished {
			if err := s.events.UpdateStatus(ctx, eventID, event.StatusFinished, nil, nil); err != nil {
				return nil, err
			}
		}
	}

	if err := s.events.UpdateCurrentIndex(ctx, eventID, idx); err != nil {
		return nil, err
	}
	if err := s.display.Clear(ctx, eventID); err != nil {
		return nil, err
	}

	return &AdvanceResult{CurrentIndex: idx, Total: total, Finished: idx >= total}, nil
}

// completeEntry marks ec completed, together with every sibling of its group
// so a group is never left straddling completed and pending.
func (s *Service) completeEntry(ctx context.Context, ecs []event.EventCandidate, ec event.EventCandidate) error {
	if err := s.events.UpdateCandidateStatus(ctx, ec.ID, event.CandidateCompleted); err != nil {
		return err
	}
	if ec.Group == nil {
		return nil
	}
	for _, sibling := range ecs {
		if sibling.ID != ec.ID && sibling.InGroup(ec.Group) {
			if err := s.events.UpdateCandidateStatus(ctx, sibling.ID, event.CandidateCompleted); err != nil {
				return err
			}
		}
	}
	return nil
}

// entryVoted reports whether the entry already has recorded votes. For a
// grouped entry the check is group-wide: one ballot for any member settles
// the whole group.
func (s *Service) entryVoted(ctx context.Context, eventID int64, ecs []event.EventCandidate, ec event.EventCandidate) (bool, error) {
	if ec.Group == nil {
		return s.votes.HasVotes(ctx, eventID, ec.CandidateID)
	}
	for _, member := range ecs {
		if !member.InGroup(ec.Group) && member.ID != ec.ID {
			continue
		}
		voted, err := s.votes.HasVotes(ctx, eventID, member.CandidateID)
		if err != nil {
			return false, err
		}
		if voted {
			return true, nil
		}
	}
	return false, nil
}

// SetCurrentIndex is the explicit admin rewind/seek. Allowed while active or
// finished; seeking a finished event reopens it.
func (s *Service) SetCurrentIndex(ctx context.Context, eventID int64, index int) error {
	unlock := s.lockEvent(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status != event.StatusActive && e.Status != event.StatusFinished {
		return event.ErrInvalidStatus
	}

	ecs, err := s.events.ListCandidates(ctx, eventID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(ecs) {
		return ErrOutOfRange
	}

	if e.Status == event.StatusFinished {
		if err := s.events.UpdateStatus(ctx, eventID, event.StatusActive, nil, nil); err != nil {
			return err
		}
	}

	for i, ec := range ecs {
		switch {
		case i < index:
			if err := s.events.UpdateCandidateStatus(ctx, ec.ID, event.CandidateCompleted); err != nil {
				return err
			}
		default:
			if err := s.events.UpdateCandidateStatus(ctx, ec.ID, event.CandidatePending); err != nil {
				return err
			}
			if err := s.events.SetTimerStarted(ctx, ec.ID, nil); err != nil {
				return err
			}
		}
	}

	if err := s.events.UpdateCurrentIndex(ctx, eventID, index); err != nil {
		return err
	}
	return s.display.Clear(ctx, eventID)
}

// Reset wipes every vote and timer and rewinds the pointer so the event can
// run again. Resetting an already-reset event is a no-op. Forbidden on
// archived events.
func (s *Service) Reset(ctx context.Context, eventID int64) (int64, error) {
	unlock := s.lockEvent(eventID)
	defer unlock()

	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if e.Status == event.StatusArchived {
		return 0, event.ErrInvalidStatus
	}

	deleted, err := s.votes.DeleteByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if err := s.events.ResetCandidates(ctx, eventID); err != nil {
		return 0, err
	}
	if err := s.events.UpdateCurrentIndex(ctx, eventID, 0); err != nil {
		return 0, err
	}
	if err := s.display.Clear(ctx, eventID); err != nil {
		return 0, err
	}
	return deleted, nil
}

type VoteRequest struct {
	EventID int64
	// CandidateID selects a group member; zero means the current candidate.
	CandidateID int64
	Identity    vote.Identity
	Choice      vote.Choice
	Nonce       string
}

type VoteResult struct {
	CandidateID      int64
	EventCandidateID int64
	Choice           vote.Choice
	Position         string
	AutoVoted        []int64
}

// AdmitVote is the hot path. It validates the countdown against the wall
// clock, inserts the vote (duplicates surface as vote.ErrAlreadyVoted from
// the store), refreshes the cached participant counter and propagates the
// ballot across group siblings.
func (s *Service) AdmitVote(ctx context.Context, req VoteRequest) (*VoteResult, error) {
	if !req.Choice.Valid() {
		return nil, ErrInvalidChoice
	}
	if req.Nonce == "" {
		return nil, ErrNonceRequired
	}

	e, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	ecs, err := s.events.ListCandidates(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if len(ecs) == 0 || e.CurrentIndex < 0 || e.CurrentIndex >= len(ecs) {
		return nil, ErrNoActiveCandidate
	}

	cur := ecs[e.CurrentIndex]
	timer := event.ComputeTimer(&cur, e.DurationSec, s.now())
	if timer.StartedAt == nil {
		return nil, ErrTimerNotRunning
	}
	if !timer.Running {
		return nil, ErrTimerExpired
	}

	candidateID := req.CandidateID
	if candidateID == 0 {
		candidateID = cur.CandidateID
	}

	var target *event.EventCandidate
	for i := range ecs {
		if ecs[i].CandidateID == candidateID {
			target = &ecs[i]
			break
		}
	}
	if target == nil {
		return nil, ErrCandidateNotInEvent
	}

	if err := s.insertVote(ctx, req, target, req.Choice, req.Nonce); err != nil {
		return nil, err
	}

	result := &VoteResult{
		CandidateID:      candidateID,
		EventCandidateID: target.ID,
		Choice:           req.Choice,
	}
	if target.Candidate != nil {
		result.Position = target.Candidate.PositionValue()
	}

	if target.Group == nil {
		return result, nil
	}

	// Auto-vote propagation encodes a single-choice-among-group ballot:
	// "yes" for one member counts as "no" for the rest, "neutral" spreads to
	// all, "no" stays a lone vote.
	var derived vote.Choice
	switch req.Choice {
	case vote.ChoiceYes:
		derived = vote.ChoiceNo
	case vote.ChoiceNeutral:
		derived = vote.ChoiceNeutral
	default:
		return result, nil
	}

	for i := range ecs {
		sibling := &ecs[i]
		if sibling.CandidateID == candidateID || !sibling.InGroup(target.Group) {
			continue
		}

		exists, err := s.votes.Exists(ctx, req.EventID, sibling.CandidateID, req.Identity)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		nonce := fmt.Sprintf("%s-%s-%d", req.Nonce, derived, sibling.CandidateID)
		if err := s.insertVote(ctx, req, sibling, derived, nonce); err != nil {
			if errors.Is(err, vote.ErrAlreadyVoted) {
				// Lost the race to a concurrent submission from the same
				// identity; the ballot is already represented.
				continue
			}
			return nil, err
		}
		result.AutoVoted = append(result.AutoVoted, sibling.CandidateID)
	}

	return result, nil
}

func (s *Service) insertVote(ctx context.Context, req VoteRequest, target *event.EventCandidate, choice vote.Choice, nonce string) error {
	v := &vote.Vote{
		EventID:          req.EventID,
		EventCandidateID: target.ID,
		CandidateID:      target.CandidateID,
		IPAddress:        req.Identity.IPAddress,
		Nonce:            nonce,
		Choice:           choice,
	}
	if req.Identity.DeviceID != "" {
		deviceID := req.Identity.DeviceID
		v.DeviceID = &deviceID
	}

	if err := s.votes.Create(ctx, v); err != nil {
		return err
	}

	count, err := s.votes.DistinctVotersByCandidate(ctx, req.EventID, target.CandidateID)
	if err != nil {
		return err
	}
	return s.events.SetParticipantCount(ctx, target.ID, count)
}
