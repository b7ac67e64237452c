package worker

import (
	"context"
	"log/slog"

	"voting-system/internal/metrics"
)

type VoteEvent struct {
	EventID     int64
	CandidateID int64
	Choice      string
	// AutoVotes carries the choices synthesized for group siblings.
	AutoVotes []string
}

// VoteWorker drains admitted-vote events off the hot path and feeds the
// metrics and audit log.
type VoteWorker struct {
	ch     <-chan VoteEvent
	logger *slog.Logger
}

func NewVoteWorker(ch <-chan VoteEvent, logger *slog.Logger) *VoteWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoteWorker{ch: ch, logger: logger}
}

func (w *VoteWorker) Run(ctx context.Context) {
	w.logger.Info("vote worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("vote worker stopped")
			return
		case ev := <-w.ch:
			metrics.IncVote(ev.Choice)
			for _, c := range ev.AutoVotes {
				metrics.IncVote(c)
			}
			w.logger.Info("vote admitted",
				"event_id", ev.EventID,
				"candidate_id", ev.CandidateID,
				"choice", ev.Choice,
				"auto_votes", len(ev.AutoVotes),
			)
		}
	}
}
