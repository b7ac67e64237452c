package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"voting-system/internal/domain/vote"
)

type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Create inserts the vote. The unique voter-identity index settles races:
// a concurrent duplicate surfaces here as vote.ErrAlreadyVoted rather than
// as a failure.
func (r *VoteRepo) Create(ctx context.Context, v *vote.Vote) error {
	query := `
        INSERT INTO votes (event_id, event_candidate_id, candidate_id, ip_address, device_id, nonce, choice)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, query,
		v.EventID, v.EventCandidateID, v.CandidateID,
		v.IPAddress, v.DeviceID, v.Nonce, v.Choice,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return vote.ErrAlreadyVoted
		}
		return err
	}
	return nil
}

func (r *VoteRepo) Exists(ctx context.Context, eventID, candidateID int64, id vote.Identity) (bool, error) {
	var query string
	var row *sql.Row
	if id.DeviceID != "" {
		query = `
            SELECT EXISTS (
                SELECT 1 FROM votes
                WHERE event_id = $1 AND candidate_id = $2 AND ip_address = $3 AND device_id = $4
            )
        `
		row = r.db.QueryRowContext(ctx, query, eventID, candidateID, id.IPAddress, id.DeviceID)
	} else {
		query = `
            SELECT EXISTS (
                SELECT 1 FROM votes
                WHERE event_id = $1 AND candidate_id = $2 AND ip_address = $3 AND device_id IS NULL
            )
        `
		row = r.db.QueryRowContext(ctx, query, eventID, candidateID, id.IPAddress)
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *VoteRepo) HasVotes(ctx context.Context, eventID, candidateID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (SELECT 1 FROM votes WHERE event_id = $1 AND candidate_id = $2)
    `, eventID, candidateID).Scan(&exists)
	return exists, err
}

func (r *VoteRepo) Tally(ctx context.Context, eventID, candidateID int64) (vote.Tally, error) {
	var t vote.Tally
	err := r.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE choice = 'yes'),
            COUNT(*) FILTER (WHERE choice = 'no'),
            COUNT(*) FILTER (WHERE choice = 'neutral'),
            COUNT(*)
        FROM votes
        WHERE event_id = $1 AND candidate_id = $2
    `, eventID, candidateID).Scan(&t.Yes, &t.No, &t.Neutral, &t.Total)
	return t, err
}

func (r *VoteRepo) TallyByEvent(ctx context.Context, eventID int64) (map[int64]vote.Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT
            candidate_id,
            COUNT(*) FILTER (WHERE choice = 'yes'),
            COUNT(*) FILTER (WHERE choice = 'no'),
            COUNT(*) FILTER (WHERE choice = 'neutral'),
            COUNT(*)
        FROM votes
        WHERE event_id = $1
        GROUP BY candidate_id
    `, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[int64]vote.Tally)
	for rows.Next() {
		var candidateID int64
		var t vote.Tally
		if err := rows.Scan(&candidateID, &t.Yes, &t.No, &t.Neutral, &t.Total); err != nil {
			return nil, err
		}
		res[candidateID] = t
	}
	return res, rows.Err()
}

func (r *VoteRepo) DistinctVoters(ctx context.Context, eventID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(DISTINCT (ip_address, COALESCE(device_id, '')))
        FROM votes WHERE event_id = $1
    `, eventID).Scan(&n)
	return n, err
}

func (r *VoteRepo) DistinctVotersByCandidate(ctx context.Context, eventID, candidateID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
        SELECT COUNT(DISTINCT (ip_address, COALESCE(device_id, '')))
        FROM votes WHERE event_id = $1 AND candidate_id = $2
    `, eventID, candidateID).Scan(&n)
	return n, err
}

func (r *VoteRepo) DeleteByEvent(ctx context.Context, eventID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM votes WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
