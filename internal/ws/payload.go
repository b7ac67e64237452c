package ws

import (
	"voting-system/internal/domain/results"
	"voting-system/internal/domain/vote"
)

// Message type tags shared by the gateway and its clients. Every outbound
// frame is one of the closed set of variants below.
const (
	TypeCurrentCandidate = "current_candidate"
	TypeTallyUpdate      = "tally_update"
	TypeVoteConfirmed    = "vote_confirmed"
	TypeError            = "error"
	TypeDisplayUpdate    = "display_update"
	TypeVotesCleared     = "votes_cleared"

	intentCastVote = "cast_vote"
)

type CurrentCandidateMsg struct {
	Type string                    `json:"type"`
	Data *results.CurrentCandidate `json:"data"`
}

func NewCurrentCandidate(cc *results.CurrentCandidate) CurrentCandidateMsg {
	return CurrentCandidateMsg{Type: TypeCurrentCandidate, Data: cc}
}

type TallyUpdateMsg struct {
	Type string     `json:"type"`
	Data vote.Tally `json:"data"`
}

func NewTallyUpdate(t vote.Tally) TallyUpdateMsg {
	return TallyUpdateMsg{Type: TypeTallyUpdate, Data: t}
}

type VoteConfirmedMsg struct {
	Type        string      `json:"type"`
	Choice      vote.Choice `json:"choice"`
	CandidateID int64       `json:"candidate_id"`
	Position    string      `json:"position,omitempty"`
	AutoVoted   []int64     `json:"auto_voted_candidate_ids"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Code: code, Message: message}
}

type DisplayUpdateMsg struct {
	Type string `json:"type"`
	*results.DisplayPayload
}

func NewDisplayUpdate(p *results.DisplayPayload) DisplayUpdateMsg {
	return DisplayUpdateMsg{Type: TypeDisplayUpdate, DisplayPayload: p}
}

type VotesClearedMsg struct {
	Type         string `json:"type"`
	EventID      int64  `json:"event_id"`
	DeletedVotes int64  `json:"deleted_votes"`
}

// voteIntent is the single inbound message shape the voter channel accepts.
type voteIntent struct {
	Type        string `json:"type"`
	CandidateID int64  `json:"candidate_id,omitempty"`
	Choice      string `json:"choice"`
	Nonce       string `json:"nonce"`
	DeviceID    string `json:"device_id,omitempty"`
}
