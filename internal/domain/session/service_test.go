package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"voting-system/internal/domain/event"
	"voting-system/internal/domain/vote"
)

type memEventRepo struct {
	mu     sync.Mutex
	events map[int64]*event.Event
	ecs    map[int64][]event.EventCandidate
}

func newMemEventRepo() *memEventRepo {
	return &memEventRepo{
		events: make(map[int64]*event.Event),
		ecs:    make(map[int64][]event.EventCandidate),
	}
}

func (r *memEventRepo) Create(ctx context.Context, e *event.Event, candidateIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = int64(len(r.events) + 1)
	r.events[e.ID] = e
	for i, cid := range candidateIDs {
		r.ecs[e.ID] = append(r.ecs[e.ID], event.EventCandidate{
			ID:          int64(i + 1),
			EventID:     e.ID,
			CandidateID: cid,
			Order:       i,
			Status:      event.CandidatePending,
		})
	}
	return e.ID, nil
}

func (r *memEventRepo) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, errors.New("event not found")
	}
	cp := *e
	return &cp, nil
}

func (r *memEventRepo) GetByLink(ctx context.Context, link string) (*event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Link == link {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errors.New("event not found")
}

func (r *memEventRepo) List(ctx context.Context) ([]event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, *e)
	}
	return out, nil
}

func (r *memEventRepo) UpdateStatus(ctx context.Context, id int64, status event.Status, startTime, endTime *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return errors.New("event not found")
	}
	e.Status = status
	if startTime != nil {
		e.StartTime = startTime
	}
	if endTime != nil {
		e.EndTime = endTime
	}
	return nil
}

func (r *memEventRepo) UpdateCurrentIndex(ctx context.Context, id int64, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return errors.New("event not found")
	}
	e.CurrentIndex = index
	return nil
}

func (r *memEventRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	delete(r.ecs, id)
	return nil
}

func (r *memEventRepo) ListCandidates(ctx context.Context, eventID int64) ([]event.EventCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.EventCandidate, len(r.ecs[eventID]))
	copy(out, r.ecs[eventID])
	return out, nil
}

func (r *memEventRepo) FindCandidate(ctx context.Context, eventID, candidateID int64) (*event.EventCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ec := range r.ecs[eventID] {
		if ec.CandidateID == candidateID {
			cp := ec
			return &cp, nil
		}
	}
	return nil, errors.New("candidate not found")
}

func (r *memEventRepo) AddCandidate(ctx context.Context, eventID, candidateID int64) (*event.EventCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ec := event.EventCandidate{
		ID:          int64(len(r.ecs[eventID]) + 1),
		EventID:     eventID,
		CandidateID: candidateID,
		Order:       len(r.ecs[eventID]),
		Status:      event.CandidatePending,
	}
	r.ecs[eventID] = append(r.ecs[eventID], ec)
	return &ec, nil
}

func (r *memEventRepo) RemoveCandidate(ctx context.Context, eventID, candidateID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.ecs[eventID]
	for i, ec := range list {
		if ec.CandidateID == candidateID {
			r.ecs[eventID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errors.New("candidate not found")
}

func (r *memEventRepo) UpdateCandidateStatus(ctx context.Context, ecID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eid, list := range r.ecs {
		for i := range list {
			if list[i].ID == ecID {
				r.ecs[eid][i].Status = status
				return nil
			}
		}
	}
	return errors.New("entry not found")
}

func (r *memEventRepo) SetTimerStarted(ctx context.Context, ecID int64, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eid, list := range r.ecs {
		for i := range list {
			if list[i].ID == ecID {
				r.ecs[eid][i].TimerStartedAt = at
				return nil
			}
		}
	}
	return errors.New("entry not found")
}

func (r *memEventRepo) SetParticipantCount(ctx context.Context, ecID int64, count int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for eid, list := range r.ecs {
		for i := range list {
			if list[i].ID == ecID {
				r.ecs[eid][i].ParticipantCount = count
				return nil
			}
		}
	}
	return errors.New("entry not found")
}

func (r *memEventRepo) Reorder(ctx context.Context, eventID int64, candidateIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.ecs[eventID]
	ordered := make([]event.EventCandidate, 0, len(list))
	for i, cid := range candidateIDs {
		for _, ec := range list {
			if ec.CandidateID == cid {
				ec.Order = i
				ordered = append(ordered, ec)
			}
		}
	}
	r.ecs[eventID] = ordered
	return nil
}

func (r *memEventRepo) SetGroup(ctx context.Context, eventID int64, ecIDs []int64, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ecIDs {
		for i := range r.ecs[eventID] {
			if r.ecs[eventID][i].ID == id {
				g := group
				r.ecs[eventID][i].Group = &g
			}
		}
	}
	return nil
}

func (r *memEventRepo) UnsetGroup(ctx context.Context, eventID, ecID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ecs[eventID] {
		if r.ecs[eventID][i].ID == ecID {
			r.ecs[eventID][i].Group = nil
		}
	}
	return nil
}

func (r *memEventRepo) ResetCandidates(ctx context.Context, eventID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.ecs[eventID] {
		r.ecs[eventID][i].Status = event.CandidatePending
		r.ecs[eventID][i].TimerStartedAt = nil
		r.ecs[eventID][i].ParticipantCount = 0
	}
	return nil
}

type memVoteRepo struct {
	mu       sync.Mutex
	votes    []vote.Vote
	identity map[string]bool
	nextID   int64
}

func newMemVoteRepo() *memVoteRepo {
	return &memVoteRepo{identity: make(map[string]bool)}
}

func identityKey(eventID, candidateID int64, ip string, deviceID *string) string {
	dev := ""
	if deviceID != nil {
		dev = *deviceID
	}
	return fmt.Sprintf("%d|%d|%s|%s", eventID, candidateID, ip, dev)
}

func (r *memVoteRepo) Create(ctx context.Context, v *vote.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := identityKey(v.EventID, v.CandidateID, v.IPAddress, v.DeviceID)
	if r.identity[key] {
		return vote.ErrAlreadyVoted
	}
	r.identity[key] = true
	r.nextID++
	v.ID = r.nextID
	r.votes = append(r.votes, *v)
	return nil
}

func (r *memVoteRepo) Exists(ctx context.Context, eventID, candidateID int64, id vote.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dev *string
	if id.DeviceID != "" {
		dev = &id.DeviceID
	}
	return r.identity[identityKey(eventID, candidateID, id.IPAddress, dev)], nil
}

func (r *memVoteRepo) HasVotes(ctx context.Context, eventID, candidateID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.votes {
		if v.EventID == eventID && v.CandidateID == candidateID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memVoteRepo) Tally(ctx context.Context, eventID, candidateID int64) (vote.Tally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var t vote.Tally
	for _, v := range r.votes {
		if v.EventID != eventID || v.CandidateID != candidateID {
			continue
		}
		switch v.Choice {
		case vote.ChoiceYes:
			t.Yes++
		case vote.ChoiceNo:
			t.No++
		case vote.ChoiceNeutral:
			t.Neutral++
		}
		t.Total++
	}
	return t, nil
}

func (r *memVoteRepo) TallyByEvent(ctx context.Context, eventID int64) (map[int64]vote.Tally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]vote.Tally)
	for _, v := range r.votes {
		if v.EventID != eventID {
			continue
		}
		t := out[v.CandidateID]
		switch v.Choice {
		case vote.ChoiceYes:
			t.Yes++
		case vote.ChoiceNo:
			t.No++
		case vote.ChoiceNeutral:
			t.Neutral++
		}
		t.Total++
		out[v.CandidateID] = t
	}
	return out, nil
}

func (r *memVoteRepo) DistinctVoters(ctx context.Context, eventID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, v := range r.votes {
		if v.EventID != eventID {
			continue
		}
		seen[identityKey(eventID, 0, v.IPAddress, v.DeviceID)] = true
	}
	return int64(len(seen)), nil
}

func (r *memVoteRepo) DistinctVotersByCandidate(ctx context.Context, eventID, candidateID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	for _, v := range r.votes {
		if v.EventID != eventID || v.CandidateID != candidateID {
			continue
		}
		seen[identityKey(eventID, candidateID, v.IPAddress, v.DeviceID)] = true
	}
	return int64(len(seen)), nil
}

func (r *memVoteRepo) DeleteByEvent(ctx context.Context, eventID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []vote.Vote
	var deleted int64
	for _, v := range r.votes {
		if v.EventID == eventID {
			deleted++
			delete(r.identity, identityKey(v.EventID, v.CandidateID, v.IPAddress, v.DeviceID))
			continue
		}
		kept = append(kept, v)
	}
	r.votes = kept
	return deleted, nil
}

type memDisplayRepo struct {
	mu     sync.Mutex
	states map[int64]*event.DisplayState
}

func newMemDisplayRepo() *memDisplayRepo {
	return &memDisplayRepo{states: make(map[int64]*event.DisplayState)}
}

func (r *memDisplayRepo) Get(ctx context.Context, eventID int64) (*event.DisplayState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[eventID]
	if !ok {
		return nil, errors.New("display state not found")
	}
	cp := *s
	return &cp, nil
}

func (r *memDisplayRepo) Set(ctx context.Context, eventID int64, candidateID *int64, until *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[eventID] = &event.DisplayState{EventID: eventID, CurrentCandidateID: candidateID, CountdownUntil: until}
	return nil
}

func (r *memDisplayRepo) Clear(ctx context.Context, eventID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[eventID] = &event.DisplayState{EventID: eventID}
	return nil
}

type fixture struct {
	events  *memEventRepo
	votes   *memVoteRepo
	display *memDisplayRepo
	svc     *Service
	eventID int64
}

func newFixture(t *testing.T, candidateIDs []int64) *fixture {
	t.Helper()
	events := newMemEventRepo()
	votes := newMemVoteRepo()
	display := newMemDisplayRepo()

	e := &event.Event{Name: "board election", Link: "abc123", DurationSec: 15, Status: event.StatusActive}
	id, err := events.Create(context.Background(), e, candidateIDs)
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	svc := NewService(events, votes, display)
	return &fixture{events: events, votes: votes, display: display, svc: svc, eventID: id}
}

func (f *fixture) startTimer(t *testing.T) {
	t.Helper()
	if _, err := f.svc.StartTimer(context.Background(), f.eventID, 0); err != nil {
		t.Fatalf("start timer: %v", err)
	}
}

func (f *fixture) group(t *testing.T, name string, ecIDs ...int64) {
	t.Helper()
	if err := f.events.SetGroup(context.Background(), f.eventID, ecIDs, name); err != nil {
		t.Fatalf("set group: %v", err)
	}
}

func voteReq(f *fixture, candidateID int64, choice vote.Choice, ip, device string) VoteRequest {
	return VoteRequest{
		EventID:     f.eventID,
		CandidateID: candidateID,
		Identity:    vote.Identity{IPAddress: ip, DeviceID: device},
		Choice:      choice,
		Nonce:       "n-" + ip + "-" + device,
	}
}

func TestStartTimerOpensVoting(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	ctx := context.Background()

	dur, err := f.svc.StartTimer(ctx, f.eventID, 0)
	if err != nil {
		t.Fatalf("start timer: %v", err)
	}
	if dur != 15 {
		t.Fatalf("expected event default duration 15, got %d", dur)
	}

	ecs, _ := f.events.ListCandidates(ctx, f.eventID)
	if ecs[0].TimerStartedAt == nil {
		t.Fatal("expected timer_started_at set on current candidate")
	}
	if ecs[0].Status != event.CandidateActive {
		t.Fatalf("expected current candidate active, got %s", ecs[0].Status)
	}

	ds, err := f.display.Get(ctx, f.eventID)
	if err != nil {
		t.Fatalf("display state: %v", err)
	}
	if ds.CurrentCandidateID == nil || *ds.CurrentCandidateID != 10 {
		t.Fatal("expected display state pointing at current candidate")
	}
	if ds.CountdownUntil == nil {
		t.Fatal("expected countdown deadline in display state")
	}
}

func TestStartTimerRequiresActiveEvent(t *testing.T) {
	f := newFixture(t, []int64{10})
	ctx := context.Background()
	f.events.events[f.eventID].Status = event.StatusPending

	if _, err := f.svc.StartTimer(ctx, f.eventID, 0); !errors.Is(err, event.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAdmitVoteBeforeTimer(t *testing.T) {
	f := newFixture(t, []int64{10})

	_, err := f.svc.AdmitVote(context.Background(), voteReq(f, 0, vote.ChoiceYes, "1.1.1.1", "dev"))
	if !errors.Is(err, ErrTimerNotRunning) {
		t.Fatalf("expected ErrTimerNotRunning, got %v", err)
	}
}

func TestAdmitVoteAfterExpiry(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)

	f.svc.now = func() time.Time { return time.Now().Add(16 * time.Second) }

	_, err := f.svc.AdmitVote(context.Background(), voteReq(f, 0, vote.ChoiceYes, "1.1.1.1", "dev"))
	if !errors.Is(err, ErrTimerExpired) {
		t.Fatalf("expected ErrTimerExpired, got %v", err)
	}
}

func TestAdmitVoteDeduplicatesByIdentity(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)
	ctx := context.Background()

	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceYes, "1.1.1.1", "dev-a")); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceNo, "1.1.1.1", "dev-a")); !errors.Is(err, vote.ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted for same identity, got %v", err)
	}

	// Same address, different device fingerprint is a different voter.
	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceNo, "1.1.1.1", "dev-b")); err != nil {
		t.Fatalf("different device should be admitted: %v", err)
	}

	tally, _ := f.votes.Tally(ctx, f.eventID, 10)
	if tally.Total != 2 || tally.Yes != 1 || tally.No != 1 {
		t.Fatalf("unexpected tally: %+v", tally)
	}
}

func TestAdmitVoteConcurrentSameIdentity(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)
	ctx := context.Background()

	const attempts = 30
	var wg sync.WaitGroup
	var okCount, dupCount int64
	var mu sync.Mutex

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceYes, "2.2.2.2", "dev"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, vote.ErrAlreadyVoted):
				dupCount++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if okCount != 1 {
		t.Fatalf("expected exactly one admitted vote, got %d", okCount)
	}
	if dupCount != attempts-1 {
		t.Fatalf("expected %d duplicates, got %d", attempts-1, dupCount)
	}
}

func TestAdmitVoteUpdatesParticipantCount(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ip := fmt.Sprintf("3.3.3.%d", i)
		if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceYes, ip, "")); err != nil {
			t.Fatalf("vote %d: %v", i, err)
		}
	}

	ecs, _ := f.events.ListCandidates(ctx, f.eventID)
	if ecs[0].ParticipantCount != 3 {
		t.Fatalf("expected participant count 3, got %d", ecs[0].ParticipantCount)
	}
}

func TestAutoVoteYesPropagatesNoToSiblings(t *testing.T) {
	f := newFixture(t, []int64{10, 20, 30, 40})
	f.group(t, "deputy", 1, 2, 3)
	f.startTimer(t)
	ctx := context.Background()

	res, err := f.svc.AdmitVote(ctx, voteReq(f, 20, vote.ChoiceYes, "1.1.1.1", "dev"))
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if res.CandidateID != 20 {
		t.Fatalf("expected vote recorded for candidate 20, got %d", res.CandidateID)
	}
	if len(res.AutoVoted) != 2 {
		t.Fatalf("expected 2 auto-votes, got %v", res.AutoVoted)
	}

	for _, cid := range []int64{10, 30} {
		tally, _ := f.votes.Tally(ctx, f.eventID, cid)
		if tally.No != 1 || tally.Total != 1 {
			t.Fatalf("expected auto no-vote for candidate %d, got %+v", cid, tally)
		}
	}
	// Candidate outside the group is untouched.
	tally, _ := f.votes.Tally(ctx, f.eventID, 40)
	if tally.Total != 0 {
		t.Fatalf("expected no votes for candidate 40, got %+v", tally)
	}
}

func TestAutoVoteNeutralPropagatesNeutral(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	f.group(t, "deputy", 1, 2)
	f.startTimer(t)
	ctx := context.Background()

	res, err := f.svc.AdmitVote(ctx, voteReq(f, 10, vote.ChoiceNeutral, "1.1.1.1", "dev"))
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(res.AutoVoted) != 1 {
		t.Fatalf("expected 1 auto-vote, got %v", res.AutoVoted)
	}

	tally, _ := f.votes.Tally(ctx, f.eventID, 20)
	if tally.Neutral != 1 {
		t.Fatalf("expected neutral auto-vote, got %+v", tally)
	}
}

func TestAutoVoteNoStaysAlone(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	f.group(t, "deputy", 1, 2)
	f.startTimer(t)

	res, err := f.svc.AdmitVote(context.Background(), voteReq(f, 10, vote.ChoiceNo, "1.1.1.1", "dev"))
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(res.AutoVoted) != 0 {
		t.Fatalf("no-vote must not propagate, got %v", res.AutoVoted)
	}
}

func TestAutoVoteSkipsExistingSiblingBallot(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	f.group(t, "deputy", 1, 2)
	f.startTimer(t)
	ctx := context.Background()

	// The voter already cast an explicit ballot for the sibling.
	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 20, vote.ChoiceNo, "1.1.1.1", "dev")); err != nil {
		t.Fatalf("sibling vote: %v", err)
	}

	res, err := f.svc.AdmitVote(ctx, voteReq(f, 10, vote.ChoiceYes, "1.1.1.1", "dev"))
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if len(res.AutoVoted) != 0 {
		t.Fatalf("existing sibling ballot must suppress propagation, got %v", res.AutoVoted)
	}

	tally, _ := f.votes.Tally(ctx, f.eventID, 20)
	if tally.Total != 1 || tally.No != 1 {
		t.Fatalf("sibling tally must keep the explicit ballot, got %+v", tally)
	}
}

func TestAdmitVoteRejectsOutsiders(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)

	_, err := f.svc.AdmitVote(context.Background(), voteReq(f, 999, vote.ChoiceYes, "1.1.1.1", "dev"))
	if !errors.Is(err, ErrCandidateNotInEvent) {
		t.Fatalf("expected ErrCandidateNotInEvent, got %v", err)
	}
}

func TestAdmitVoteValidation(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.startTimer(t)
	ctx := context.Background()

	req := voteReq(f, 0, "maybe", "1.1.1.1", "dev")
	if _, err := f.svc.AdmitVote(ctx, req); !errors.Is(err, ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}

	req = voteReq(f, 0, vote.ChoiceYes, "1.1.1.1", "dev")
	req.Nonce = ""
	if _, err := f.svc.AdmitVote(ctx, req); !errors.Is(err, ErrNonceRequired) {
		t.Fatalf("expected ErrNonceRequired, got %v", err)
	}
}

func TestAdvanceSkipsGroupSiblings(t *testing.T) {
	f := newFixture(t, []int64{10, 20, 30, 40})
	f.group(t, "deputy", 1, 2, 3)
	ctx := context.Background()

	res, err := f.svc.Advance(ctx, f.eventID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.CurrentIndex != 3 {
		t.Fatalf("expected pointer past the whole group at 3, got %d", res.CurrentIndex)
	}
	if res.Finished {
		t.Fatal("event must not be finished with one candidate left")
	}

	ecs, _ := f.events.ListCandidates(ctx, f.eventID)
	for i := 0; i < 3; i++ {
		if ecs[i].Status != event.CandidateCompleted {
			t.Fatalf("group member %d expected completed, got %s", i, ecs[i].Status)
		}
	}
	if ecs[3].Status != event.CandidatePending {
		t.Fatalf("next candidate expected pending, got %s", ecs[3].Status)
	}
}

func TestAdvanceSkipsAlreadyVoted(t *testing.T) {
	f := newFixture(t, []int64{10, 20, 30})
	f.startTimer(t)
	ctx := context.Background()

	// Pre-existing ballot for the second candidate, cast while it was current
	// in an earlier run.
	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 20, vote.ChoiceYes, "1.1.1.1", "dev")); err != nil {
		t.Fatalf("vote: %v", err)
	}

	res, err := f.svc.Advance(ctx, f.eventID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if res.CurrentIndex != 2 {
		t.Fatalf("expected voted candidate skipped, pointer at 2, got %d", res.CurrentIndex)
	}
}

func TestAdvanceFinishesEvent(t *testing.T) {
	f := newFixture(t, []int64{10})
	ctx := context.Background()

	res, err := f.svc.Advance(ctx, f.eventID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if !res.Finished || res.CurrentIndex != 1 {
		t.Fatalf("expected finished with pointer pinned at 1, got %+v", res)
	}

	e, _ := f.events.GetByID(ctx, f.eventID)
	if e.Status != event.StatusFinished {
		t.Fatalf("expected finished status, got %s", e.Status)
	}

	// Advancing again stays pinned.
	res, err = f.svc.Advance(ctx, f.eventID)
	if err != nil {
		t.Fatalf("second advance: %v", err)
	}
	if res.CurrentIndex != 1 || !res.Finished {
		t.Fatalf("expected idempotent terminal advance, got %+v", res)
	}
}

func TestAdvanceClearsDisplay(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	f.startTimer(t)
	ctx := context.Background()

	if _, err := f.svc.Advance(ctx, f.eventID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	ds, err := f.display.Get(ctx, f.eventID)
	if err != nil {
		t.Fatalf("display state: %v", err)
	}
	if ds.CurrentCandidateID != nil || ds.CountdownUntil != nil {
		t.Fatal("expected display cleared after advance")
	}
}

func TestSetCurrentIndexReopensFinished(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	ctx := context.Background()
	f.events.events[f.eventID].Status = event.StatusFinished
	f.events.events[f.eventID].CurrentIndex = 2

	if err := f.svc.SetCurrentIndex(ctx, f.eventID, 1); err != nil {
		t.Fatalf("set index: %v", err)
	}

	e, _ := f.events.GetByID(ctx, f.eventID)
	if e.Status != event.StatusActive {
		t.Fatalf("expected event reopened, got %s", e.Status)
	}
	if e.CurrentIndex != 1 {
		t.Fatalf("expected index 1, got %d", e.CurrentIndex)
	}

	ecs, _ := f.events.ListCandidates(ctx, f.eventID)
	if ecs[0].Status != event.CandidateCompleted {
		t.Fatalf("earlier candidate expected completed, got %s", ecs[0].Status)
	}
	if ecs[1].Status != event.CandidatePending || ecs[1].TimerStartedAt != nil {
		t.Fatal("target candidate expected pending with no timer")
	}
}

func TestSetCurrentIndexRange(t *testing.T) {
	f := newFixture(t, []int64{10})

	if err := f.svc.SetCurrentIndex(context.Background(), f.eventID, 5); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestResetClearsVotesAndRewinds(t *testing.T) {
	f := newFixture(t, []int64{10, 20})
	f.startTimer(t)
	ctx := context.Background()

	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceYes, "1.1.1.1", "a")); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := f.svc.AdmitVote(ctx, voteReq(f, 0, vote.ChoiceNo, "1.1.1.2", "b")); err != nil {
		t.Fatalf("vote: %v", err)
	}
	f.events.events[f.eventID].CurrentIndex = 1

	deleted, err := f.svc.Reset(ctx, f.eventID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted votes, got %d", deleted)
	}

	e, _ := f.events.GetByID(ctx, f.eventID)
	if e.CurrentIndex != 0 {
		t.Fatalf("expected pointer rewound, got %d", e.CurrentIndex)
	}
	ecs, _ := f.events.ListCandidates(ctx, f.eventID)
	for i, ec := range ecs {
		if ec.Status != event.CandidatePending || ec.TimerStartedAt != nil || ec.ParticipantCount != 0 {
			t.Fatalf("candidate %d not reset: %+v", i, ec)
		}
	}

	// Resetting again is a no-op.
	deleted, err = f.svc.Reset(ctx, f.eventID)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("expected no votes on second reset, got %d", deleted)
	}
}

func TestResetForbiddenOnArchived(t *testing.T) {
	f := newFixture(t, []int64{10})
	f.events.events[f.eventID].Status = event.StatusArchived

	if _, err := f.svc.Reset(context.Background(), f.eventID); !errors.Is(err, event.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
