package vote

import (
	"context"
	"errors"
	"time"
)

type Choice string

const (
	ChoiceYes     Choice = "yes"
	ChoiceNo      Choice = "no"
	ChoiceNeutral Choice = "neutral"
)

func (c Choice) Valid() bool {
	switch c {
	case ChoiceYes, ChoiceNo, ChoiceNeutral:
		return true
	}
	return false
}

var (
	ErrAlreadyVoted = errors.New("voter already voted for this candidate")
)

// Identity is what deduplication keys on: the network address plus an
// optional device fingerprint. An empty DeviceID means address-only identity.
type Identity struct {
	IPAddress string
	DeviceID  string
}

type Vote struct {
	ID               int64     `json:"id"`
	EventID          int64     `json:"event_id"`
	EventCandidateID int64     `json:"event_candidate_id"`
	CandidateID      int64     `json:"candidate_id"`
	IPAddress        string    `json:"ip_address"`
	DeviceID         *string   `json:"device_id,omitempty"`
	Nonce            string    `json:"nonce"`
	Choice           Choice    `json:"choice"`
	CreatedAt        time.Time `json:"created_at"`
}

type Tally struct {
	Yes     int64 `json:"yes"`
	No      int64 `json:"no"`
	Neutral int64 `json:"neutral"`
	Total   int64 `json:"total"`
}

type Repository interface {
	// Create inserts the vote. A racing duplicate for the same
	// (event, candidate, identity) must surface as ErrAlreadyVoted.
	Create(ctx context.Context, v *Vote) error
	Exists(ctx context.Context, eventID, candidateID int64, id Identity) (bool, error)
	HasVotes(ctx context.Context, eventID, candidateID int64) (bool, error)
	Tally(ctx context.Context, eventID, candidateID int64) (Tally, error)
	TallyByEvent(ctx context.Context, eventID int64) (map[int64]Tally, error)
	DistinctVoters(ctx context.Context, eventID int64) (int64, error)
	DistinctVotersByCandidate(ctx context.Context, eventID, candidateID int64) (int64, error)
	DeleteByEvent(ctx context.Context, eventID int64) (int64, error)
}
