package postgres

import (
	"context"
	"database/sql"
	"time"

	"voting-system/internal/domain/event"
)

type DisplayRepo struct {
	db *sql.DB
}

func NewDisplayRepo(db *sql.DB) *DisplayRepo {
	return &DisplayRepo{db: db}
}

func (r *DisplayRepo) Get(ctx context.Context, eventID int64) (*event.DisplayState, error) {
	s := &event.DisplayState{}
	err := r.db.QueryRowContext(ctx, `
        SELECT event_id, current_candidate_id, countdown_until
        FROM display_states WHERE event_id = $1
    `, eventID).Scan(&s.EventID, &s.CurrentCandidateID, &s.CountdownUntil)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *DisplayRepo) Set(ctx context.Context, eventID int64, candidateID *int64, until *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO display_states (event_id, current_candidate_id, countdown_until)
        VALUES ($1, $2, $3)
        ON CONFLICT (event_id) DO UPDATE
        SET current_candidate_id = EXCLUDED.current_candidate_id,
            countdown_until = EXCLUDED.countdown_until
    `, eventID, candidateID, until)
	return err
}

func (r *DisplayRepo) Clear(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO display_states (event_id, current_candidate_id, countdown_until)
        VALUES ($1, NULL, NULL)
        ON CONFLICT (event_id) DO UPDATE
        SET current_candidate_id = NULL, countdown_until = NULL
    `, eventID)
	return err
}
