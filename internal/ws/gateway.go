package ws

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"voting-system/internal/domain/event"
	"voting-system/internal/domain/results"
	"voting-system/internal/domain/session"
	"voting-system/internal/domain/vote"
	"voting-system/internal/worker"
)

// Close codes used when a connection attempt is refused.
const (
	CloseEventUnavailable = 4003
	CloseEventNotFound    = 4004
	CloseOverloaded       = 4008
)

// Gateway is the websocket entry point for voter and display clients. It
// translates inbound vote intents into state-machine calls and fans state
// back out through the registry.
type Gateway struct {
	events   event.Repository
	session  *session.Service
	results  *results.Service
	registry *Registry
	voteCh   chan<- worker.VoteEvent
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewGateway(
	events event.Repository,
	sessionSvc *session.Service,
	resultsSvc *results.Service,
	registry *Registry,
	voteCh chan<- worker.VoteEvent,
	logger *slog.Logger,
) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		events:   events,
		session:  sessionSvc,
		results:  resultsSvc,
		registry: registry,
		voteCh:   voteCh,
		logger:   logger,
		upgrader: websocket.Upgrader{
			// Voter links are shared across arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleVoter serves GET /ws/vote/{link}.
func (g *Gateway) HandleVoter(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")
	ctx := r.Context()

	raw, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newWSConn(raw, defaultSendTimeout)

	e, err := g.events.GetByLink(ctx, link)
	if err != nil {
		_ = c.CloseWith(CloseEventNotFound, "event not found")
		return
	}
	// Finished events stay reachable so clients receive the completion
	// notification instead of a dead socket.
	if e.Status != event.StatusActive && e.Status != event.StatusFinished {
		_ = c.CloseWith(CloseEventUnavailable, "event is not available")
		return
	}

	if err := g.registry.Subscribe(PoolVoter, link, c); err != nil {
		_ = c.CloseWith(CloseOverloaded, "too many connections")
		return
	}
	defer func() {
		g.registry.Unsubscribe(PoolVoter, link, c)
		_ = c.Close()
	}()

	ip := clientIP(r)
	g.logger.Info("voter connected", "link", link, "ip", ip)

	if err := g.pushInitialVoterState(ctx, c, e); err != nil {
		return
	}

	for {
		var intent voteIntent
		if err := c.ReadJSON(&intent); err != nil {
			return
		}
		if intent.Type != intentCastVote {
			continue
		}
		g.handleVoteIntent(ctx, c, e, intent, ip)
	}
}

func (g *Gateway) pushInitialVoterState(ctx context.Context, c Conn, e *event.Event) error {
	cc, err := g.results.CurrentCandidate(ctx, e)
	if err != nil {
		return err
	}
	if err := c.WriteJSON(NewCurrentCandidate(cc)); err != nil {
		return err
	}
	if cc.Candidate == nil {
		return nil
	}
	tally, err := g.results.CandidateTally(ctx, e.ID, cc.Candidate.ID)
	if err != nil {
		return err
	}
	return c.WriteJSON(NewTallyUpdate(tally))
}

func (g *Gateway) handleVoteIntent(ctx context.Context, c Conn, e *event.Event, intent voteIntent, ip string) {
	if intent.Choice == "" || intent.Nonce == "" {
		_ = c.WriteJSON(NewError("invalid_intent", "missing choice or nonce"))
		return
	}

	res, err := g.session.AdmitVote(ctx, session.VoteRequest{
		EventID:     e.ID,
		CandidateID: intent.CandidateID,
		Identity:    vote.Identity{IPAddress: ip, DeviceID: intent.DeviceID},
		Choice:      vote.Choice(intent.Choice),
		Nonce:       intent.Nonce,
	})
	if err != nil {
		code, msg := voteErrorMessage(err)
		_ = c.WriteJSON(NewError(code, msg))
		return
	}

	autoVoted := res.AutoVoted
	if autoVoted == nil {
		autoVoted = []int64{}
	}
	_ = c.WriteJSON(VoteConfirmedMsg{
		Type:        TypeVoteConfirmed,
		Choice:      res.Choice,
		CandidateID: res.CandidateID,
		Position:    res.Position,
		AutoVoted:   autoVoted,
	})

	autoChoices := make([]string, 0, len(res.AutoVoted))
	for range res.AutoVoted {
		derived := vote.ChoiceNo
		if res.Choice == vote.ChoiceNeutral {
			derived = vote.ChoiceNeutral
		}
		autoChoices = append(autoChoices, string(derived))
	}
	select {
	case g.voteCh <- worker.VoteEvent{
		EventID:     e.ID,
		CandidateID: res.CandidateID,
		Choice:      string(res.Choice),
		AutoVotes:   autoChoices,
	}:
	default:
	}

	tally, err := g.results.CandidateTally(ctx, e.ID, res.CandidateID)
	if err == nil {
		g.registry.Broadcast(PoolVoter, e.Link, NewTallyUpdate(tally))
	}
	g.PushEventState(ctx, e.ID)
}

// HandleDisplay serves GET /ws/display/{link}. The display channel is
// passive: the server pushes a snapshot on connect and after every state
// change, and the client may send a textual "update" to poll.
func (g *Gateway) HandleDisplay(w http.ResponseWriter, r *http.Request) {
	link := chi.URLParam(r, "link")
	ctx := r.Context()

	raw, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newWSConn(raw, defaultSendTimeout)

	e, err := g.events.GetByLink(ctx, link)
	if err != nil {
		_ = c.CloseWith(CloseEventNotFound, "event not found")
		return
	}

	if err := g.registry.Subscribe(PoolDisplay, link, c); err != nil {
		_ = c.CloseWith(CloseOverloaded, "too many connections")
		return
	}
	defer func() {
		g.registry.Unsubscribe(PoolDisplay, link, c)
		_ = c.Close()
	}()

	g.logger.Info("display connected", "link", link)

	if err := g.sendDisplayUpdate(ctx, c, e.ID); err != nil {
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if strings.TrimSpace(string(data)) == "update" {
			if err := g.sendDisplayUpdate(ctx, c, e.ID); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) sendDisplayUpdate(ctx context.Context, c Conn, eventID int64) error {
	e, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	payload, err := g.results.DisplayPayload(ctx, e)
	if err != nil {
		return err
	}
	return c.WriteJSON(NewDisplayUpdate(payload))
}

// PushEventState rebroadcasts the current-candidate snapshot to the voter
// pool and the display payload to the display pool. Admin mutations call
// this so every path fans out the same way the vote path does.
func (g *Gateway) PushEventState(ctx context.Context, eventID int64) {
	e, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		g.logger.Error("push state: load event", "event_id", eventID, "err", err)
		return
	}

	cc, err := g.results.CurrentCandidate(ctx, e)
	if err != nil {
		g.logger.Error("push state: current candidate", "event_id", eventID, "err", err)
		return
	}
	g.registry.Broadcast(PoolVoter, e.Link, NewCurrentCandidate(cc))

	payload, err := g.results.DisplayPayload(ctx, e)
	if err != nil {
		g.logger.Error("push state: display payload", "event_id", eventID, "err", err)
		return
	}
	g.registry.Broadcast(PoolDisplay, e.Link, NewDisplayUpdate(payload))
}

// PushTally rebroadcasts one candidate's live tally to the voter pool.
func (g *Gateway) PushTally(ctx context.Context, e *event.Event, candidateID int64) {
	tally, err := g.results.CandidateTally(ctx, e.ID, candidateID)
	if err != nil {
		g.logger.Error("push tally", "event_id", e.ID, "candidate_id", candidateID, "err", err)
		return
	}
	g.registry.Broadcast(PoolVoter, e.Link, NewTallyUpdate(tally))
}

// PushVotesCleared notifies both pools after a reset.
func (g *Gateway) PushVotesCleared(ctx context.Context, eventID, deleted int64) {
	e, err := g.events.GetByID(ctx, eventID)
	if err != nil {
		return
	}
	g.registry.Broadcast(PoolVoter, e.Link, VotesClearedMsg{
		Type:         TypeVotesCleared,
		EventID:      e.ID,
		DeletedVotes: deleted,
	})
	g.PushEventState(ctx, eventID)
}

func voteErrorMessage(err error) (string, string) {
	switch {
	case errors.Is(err, vote.ErrAlreadyVoted):
		return "already_voted", "you have already voted from this device"
	case errors.Is(err, session.ErrTimerNotRunning):
		return "timer_not_running", "voting has not started for this candidate yet"
	case errors.Is(err, session.ErrTimerExpired):
		return "timer_expired", "voting time has ended for this candidate"
	case errors.Is(err, session.ErrNoActiveCandidate):
		return "no_active_candidate", "no active candidate for voting"
	case errors.Is(err, session.ErrCandidateNotInEvent):
		return "candidate_not_in_event", "selected candidate not found in this event"
	case errors.Is(err, session.ErrInvalidChoice):
		return "invalid_choice", "choice must be yes, no or neutral"
	case errors.Is(err, session.ErrNonceRequired):
		return "invalid_intent", "missing choice or nonce"
	case errors.Is(err, sql.ErrNoRows):
		return "not_found", "event not found"
	default:
		return "internal_error", "could not record the vote, try again"
	}
}

func clientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		parts := strings.Split(xfwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
