package postgres

import (
	"context"
	"database/sql"
	"time"

	"voting-system/internal/domain/candidate"
	"voting-system/internal/domain/event"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `id, name, link, duration_sec, status, start_time, end_time, current_index, created_at`

func scanEvent(row interface{ Scan(...any) error }, e *event.Event) error {
	return row.Scan(
		&e.ID, &e.Name, &e.Link, &e.DurationSec, &e.Status,
		&e.StartTime, &e.EndTime, &e.CurrentIndex, &e.CreatedAt,
	)
}

func (r *EventRepo) Create(ctx context.Context, e *event.Event, candidateIDs []int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
        INSERT INTO events (name, link, duration_sec, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, e.Name, e.Link, e.DurationSec, e.Status).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return 0, err
	}

	for idx, candidateID := range candidateIDs {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO event_candidates (event_id, candidate_id, sort_order, status)
            VALUES ($1, $2, $3, $4)
        `, e.ID, candidateID, idx, event.CandidatePending); err != nil {
			return 0, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO display_states (event_id) VALUES ($1)
    `, e.ID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (r *EventRepo) GetByID(ctx context.Context, id int64) (*event.Event, error) {
	e := &event.Event{}
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	if err := scanEvent(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EventRepo) GetByLink(ctx context.Context, link string) (*event.Event, error) {
	e := &event.Event{}
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE link = $1`, link)
	if err := scanEvent(row, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EventRepo) List(ctx context.Context) ([]event.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []event.Event
	for rows.Next() {
		var e event.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r *EventRepo) UpdateStatus(ctx context.Context, id int64, status event.Status, startTime, endTime *time.Time) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE events
        SET status = $1,
            start_time = COALESCE($2, start_time),
            end_time = COALESCE($3, end_time)
        WHERE id = $4
    `, status, startTime, endTime, id)
	return err
}

func (r *EventRepo) UpdateCurrentIndex(ctx context.Context, id int64, index int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE events SET current_index = $1 WHERE id = $2`, index, id)
	return err
}

func (r *EventRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

const eventCandidateColumns = `
    ec.id, ec.event_id, ec.candidate_id, ec.sort_order, ec.status,
    ec.candidate_group, ec.timer_started_at, ec.participant_count,
    c.id, c.full_name, c.image, c.birth_date, c.degree, c.position,
    c.election_time, c.description, c.from_api, c.external_id, c.created_at`

func scanEventCandidate(row interface{ Scan(...any) error }, ec *event.EventCandidate) error {
	c := &candidate.Candidate{}
	err := row.Scan(
		&ec.ID, &ec.EventID, &ec.CandidateID, &ec.Order, &ec.Status,
		&ec.Group, &ec.TimerStartedAt, &ec.ParticipantCount,
		&c.ID, &c.FullName, &c.Image, &c.BirthDate, &c.Degree, &c.Position,
		&c.ElectionTime, &c.Description, &c.FromAPI, &c.ExternalID, &c.CreatedAt,
	)
	if err != nil {
		return err
	}
	ec.Candidate = c
	return nil
}

func (r *EventRepo) ListCandidates(ctx context.Context, eventID int64) ([]event.EventCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT `+eventCandidateColumns+`
        FROM event_candidates ec
        JOIN candidates c ON c.id = ec.candidate_id
        WHERE ec.event_id = $1
        ORDER BY ec.sort_order
    `, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []event.EventCandidate
	for rows.Next() {
		var ec event.EventCandidate
		if err := scanEventCandidate(rows, &ec); err != nil {
			return nil, err
		}
		res = append(res, ec)
	}
	return res, rows.Err()
}

func (r *EventRepo) FindCandidate(ctx context.Context, eventID, candidateID int64) (*event.EventCandidate, error) {
	ec := &event.EventCandidate{}
	row := r.db.QueryRowContext(ctx, `
        SELECT `+eventCandidateColumns+`
        FROM event_candidates ec
        JOIN candidates c ON c.id = ec.candidate_id
        WHERE ec.event_id = $1 AND ec.candidate_id = $2
    `, eventID, candidateID)
	if err := scanEventCandidate(row, ec); err != nil {
		return nil, err
	}
	return ec, nil
}

func (r *EventRepo) AddCandidate(ctx context.Context, eventID, candidateID int64) (*event.EventCandidate, error) {
	ec := &event.EventCandidate{
		EventID:     eventID,
		CandidateID: candidateID,
		Status:      event.CandidatePending,
	}
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO event_candidates (event_id, candidate_id, sort_order, status)
        SELECT $1, $2, COUNT(*), $3 FROM event_candidates WHERE event_id = $1
        RETURNING id, sort_order
    `, eventID, candidateID, event.CandidatePending).Scan(&ec.ID, &ec.Order)
	if err != nil {
		return nil, err
	}
	return ec, nil
}

func (r *EventRepo) RemoveCandidate(ctx context.Context, eventID, candidateID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var removedOrder int
	err = tx.QueryRowContext(ctx, `
        DELETE FROM event_candidates
        WHERE event_id = $1 AND candidate_id = $2
        RETURNING sort_order
    `, eventID, candidateID).Scan(&removedOrder)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
        UPDATE event_candidates SET sort_order = sort_order - 1
        WHERE event_id = $1 AND sort_order > $2
    `, eventID, removedOrder); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *EventRepo) UpdateCandidateStatus(ctx context.Context, ecID int64, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE event_candidates SET status = $1 WHERE id = $2`, status, ecID)
	return err
}

func (r *EventRepo) SetTimerStarted(ctx context.Context, ecID int64, at *time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE event_candidates SET timer_started_at = $1 WHERE id = $2`, at, ecID)
	return err
}

func (r *EventRepo) SetParticipantCount(ctx context.Context, ecID int64, count int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE event_candidates SET participant_count = $1 WHERE id = $2`, count, ecID)
	return err
}

func (r *EventRepo) Reorder(ctx context.Context, eventID int64, candidateIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for idx, candidateID := range candidateIDs {
		if _, err := tx.ExecContext(ctx, `
            UPDATE event_candidates SET sort_order = $1
            WHERE event_id = $2 AND candidate_id = $3
        `, idx, eventID, candidateID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *EventRepo) SetGroup(ctx context.Context, eventID int64, ecIDs []int64, group string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ecID := range ecIDs {
		res, err := tx.ExecContext(ctx, `
            UPDATE event_candidates SET candidate_group = $1
            WHERE id = $2 AND event_id = $3
        `, group, ecID, eventID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
	}

	return tx.Commit()
}

func (r *EventRepo) UnsetGroup(ctx context.Context, eventID, ecID int64) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE event_candidates SET candidate_group = NULL
        WHERE id = $1 AND event_id = $2
    `, ecID, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *EventRepo) ResetCandidates(ctx context.Context, eventID int64) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE event_candidates
        SET status = $1, timer_started_at = NULL, participant_count = 0
        WHERE event_id = $2
    `, event.CandidatePending, eventID)
	return err
}
