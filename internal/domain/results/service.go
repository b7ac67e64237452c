package results

import (
	"context"
	"math"
	"time"

	"voting-system/internal/domain/event"
	"voting-system/internal/domain/vote"
)

// Service derives everything read-only the clients see: per-candidate
// tallies, final event results and the voter/display snapshots. It owns no
// state and recomputes from the store on every call.
type Service struct {
	events event.Repository
	votes  vote.Repository
	now    func() time.Time
}

func NewService(events event.Repository, votes vote.Repository) *Service {
	return &Service{events: events, votes: votes, now: time.Now}
}

type CandidateInfo struct {
	ID       int64   `json:"id"`
	FullName string  `json:"full_name"`
	Image    *string `json:"image,omitempty"`
	Position string  `json:"position,omitempty"`
	Degree   *string `json:"degree,omitempty"`
}

func candidateInfo(ec *event.EventCandidate) *CandidateInfo {
	if ec == nil || ec.Candidate == nil {
		return nil
	}
	c := ec.Candidate
	return &CandidateInfo{
		ID:       c.ID,
		FullName: c.FullName,
		Image:    c.Image,
		Position: c.PositionValue(),
		Degree:   c.Degree,
	}
}

// CurrentCandidate is the voter-facing snapshot of where the sequence stands.
type CurrentCandidate struct {
	Candidate        *CandidateInfo  `json:"candidate"`
	EventCandidateID *int64          `json:"event_candidate_id"`
	Index            int             `json:"index"`
	Total            int             `json:"total"`
	Timer            event.TimerInfo `json:"timer"`
	GroupSiblings    []CandidateInfo `json:"group_siblings"`
}

type ResultRow struct {
	Rank           int     `json:"rank"`
	CandidateID    int64   `json:"candidate_id"`
	FullName       string  `json:"full_name"`
	Image          *string `json:"image,omitempty"`
	Position       string  `json:"position,omitempty"`
	ElectionTime   *string `json:"election_time,omitempty"`
	Description    *string `json:"description,omitempty"`
	YesVotes       int64   `json:"yes_votes"`
	YesPercent     float64 `json:"yes_percent"`
	NoVotes        int64   `json:"no_votes"`
	NoPercent      float64 `json:"no_percent"`
	NeutralVotes   int64   `json:"neutral_votes"`
	NeutralPercent float64 `json:"neutral_percent"`
	TotalVotes     int64   `json:"total_votes"`
	Verdict        string  `json:"verdict"`
}

type EventResults struct {
	EventID   int64        `json:"event_id"`
	EventName string       `json:"event_name"`
	Status    event.Status `json:"status"`
	// TotalParticipants counts distinct voter identities across the whole
	// event. It is an attendance metric, unrelated to the per-candidate
	// percentages.
	TotalParticipants int64       `json:"total_participants"`
	Rows              []ResultRow `json:"results"`
}

const (
	VerdictPassed = "passed"
	VerdictFailed = "failed"
)

// round1 keeps one decimal, matching the reporting contract.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func percent(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(count) * 100 / float64(total))
}

// CandidateTally returns the yes/no/neutral counts for one candidate.
func (s *Service) CandidateTally(ctx context.Context, eventID, candidateID int64) (vote.Tally, error) {
	return s.votes.Tally(ctx, eventID, candidateID)
}

// EventResults joins every candidate with its tally, in sequence order.
// Percentages are normalized by that candidate's own vote total; a candidate
// passes iff its yes share exceeds 50%.
func (s *Service) EventResults(ctx context.Context, eventID int64) (*EventResults, error) {
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ecs, err := s.events.ListCandidates(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tallies, err := s.votes.TallyByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	participants, err := s.votes.DistinctVoters(ctx, eventID)
	if err != nil {
		return nil, err
	}

	res := &EventResults{
		EventID:           e.ID,
		EventName:         e.Name,
		Status:            e.Status,
		TotalParticipants: participants,
		Rows:              make([]ResultRow, 0, len(ecs)),
	}

	for i, ec := range ecs {
		if ec.Candidate == nil {
			continue
		}
		t := tallies[ec.CandidateID]

		row := ResultRow{
			Rank:           i + 1,
			CandidateID:    ec.CandidateID,
			FullName:       ec.Candidate.FullName,
			Image:          ec.Candidate.Image,
			Position:       ec.Candidate.PositionValue(),
			ElectionTime:   ec.Candidate.ElectionTime,
			Description:    ec.Candidate.Description,
			YesVotes:       t.Yes,
			YesPercent:     percent(t.Yes, t.Total),
			NoVotes:        t.No,
			NoPercent:      percent(t.No, t.Total),
			NeutralVotes:   t.Neutral,
			NeutralPercent: percent(t.Neutral, t.Total),
			TotalVotes:     t.Total,
			Verdict:        VerdictFailed,
		}
		if row.YesPercent > 50 {
			row.Verdict = VerdictPassed
		}
		res.Rows = append(res.Rows, row)
	}

	return res, nil
}

// groupMembers returns every entry sharing the target's non-empty group,
// target included. Ungrouped entries have no siblings.
func groupMembers(ecs []event.EventCandidate, target *event.EventCandidate) []CandidateInfo {
	if target == nil || target.Group == nil {
		return nil
	}
	var members []CandidateInfo
	for i := range ecs {
		if !ecs[i].InGroup(target.Group) {
			continue
		}
		if info := candidateInfo(&ecs[i]); info != nil {
			members = append(members, *info)
		}
	}
	return members
}

// CurrentCandidate composes the snapshot pushed to voter connections.
func (s *Service) CurrentCandidate(ctx context.Context, e *event.Event) (*CurrentCandidate, error) {
	ecs, err := s.events.ListCandidates(ctx, e.ID)
	if err != nil {
		return nil, err
	}

	cc := &CurrentCandidate{
		Index:         e.CurrentIndex,
		Total:         len(ecs),
		Timer:         event.TimerInfo{DurationSec: e.DurationSec},
		GroupSiblings: []CandidateInfo{},
	}
	if len(ecs) == 0 || e.CurrentIndex < 0 || e.CurrentIndex >= len(ecs) {
		return cc, nil
	}

	cur := ecs[e.CurrentIndex]
	cc.Candidate = candidateInfo(&cur)
	cc.EventCandidateID = &cur.ID
	cc.Timer = event.ComputeTimer(&cur, e.DurationSec, s.now())
	if siblings := groupMembers(ecs, &cur); siblings != nil {
		cc.GroupSiblings = siblings
	}
	return cc, nil
}

type GroupResult struct {
	Candidate CandidateInfo `json:"candidate"`
	Votes     vote.Tally    `json:"votes"`
}

// DisplayPayload is the display-screen snapshot: the candidate up for vote
// with live tallies while the event runs, the final results once it is done.
type DisplayPayload struct {
	Candidate         *CandidateInfo  `json:"candidate"`
	GroupSiblings     []CandidateInfo `json:"group_siblings"`
	GroupResults      []GroupResult   `json:"group_results,omitempty"`
	Timer             event.TimerInfo `json:"timer"`
	RemainingMS       int64           `json:"remaining_ms"`
	TimerRunning      bool            `json:"timer_running"`
	VoteResults       vote.Tally      `json:"vote_results"`
	EventStatus       event.Status    `json:"event_status"`
	EventCompleted    bool            `json:"event_completed"`
	FinalResults      []ResultRow     `json:"final_results"`
	TotalParticipants int64           `json:"total_participants"`
}

func (s *Service) DisplayPayload(ctx context.Context, e *event.Event) (*DisplayPayload, error) {
	payload := &DisplayPayload{
		GroupSiblings: []CandidateInfo{},
		Timer:         event.TimerInfo{DurationSec: e.DurationSec},
		EventStatus:   e.Status,
		FinalResults:  []ResultRow{},
	}

	ecs, err := s.events.ListCandidates(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	total := len(ecs)

	if total > 0 && e.CurrentIndex >= 0 && e.CurrentIndex < total {
		cur := ecs[e.CurrentIndex]
		payload.Candidate = candidateInfo(&cur)
		payload.Timer = event.ComputeTimer(&cur, e.DurationSec, s.now())
		payload.RemainingMS = payload.Timer.RemainingMS
		payload.TimerRunning = payload.Timer.Running

		if payload.Candidate != nil {
			tally, err := s.votes.Tally(ctx, e.ID, cur.CandidateID)
			if err != nil {
				return nil, err
			}
			payload.VoteResults = tally
		}

		if siblings := groupMembers(ecs, &cur); len(siblings) > 1 {
			payload.GroupSiblings = siblings
			for _, member := range siblings {
				tally, err := s.votes.Tally(ctx, e.ID, member.ID)
				if err != nil {
					return nil, err
				}
				payload.GroupResults = append(payload.GroupResults, GroupResult{
					Candidate: member,
					Votes:     tally,
				})
			}
		}
	}

	completed := total == 0 ||
		e.Status == event.StatusFinished ||
		e.Status == event.StatusArchived ||
		e.CurrentIndex >= total
	if completed {
		final, err := s.EventResults(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		payload.EventCompleted = true
		payload.FinalResults = final.Rows
		payload.TotalParticipants = final.TotalParticipants
	}

	return payload, nil
}
