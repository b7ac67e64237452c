package postgres

import (
	"context"
	"database/sql"

	"voting-system/internal/domain/candidate"
)

type CandidateRepo struct {
	db *sql.DB
}

func NewCandidateRepo(db *sql.DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

const candidateColumns = `id, full_name, image, birth_date, degree, position, election_time, description, from_api, external_id, created_at`

func scanCandidate(row interface{ Scan(...any) error }, c *candidate.Candidate) error {
	return row.Scan(
		&c.ID, &c.FullName, &c.Image, &c.BirthDate, &c.Degree, &c.Position,
		&c.ElectionTime, &c.Description, &c.FromAPI, &c.ExternalID, &c.CreatedAt,
	)
}

func (r *CandidateRepo) Create(ctx context.Context, c *candidate.Candidate) error {
	query := `
        INSERT INTO candidates (full_name, image, birth_date, degree, position, election_time, description, from_api, external_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `
	return r.db.QueryRowContext(ctx, query,
		c.FullName, c.Image, c.BirthDate, c.Degree, c.Position,
		c.ElectionTime, c.Description, c.FromAPI, c.ExternalID,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *CandidateRepo) GetByID(ctx context.Context, id int64) (*candidate.Candidate, error) {
	c := &candidate.Candidate{}
	row := r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	if err := scanCandidate(row, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CandidateRepo) List(ctx context.Context) ([]candidate.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []candidate.Candidate
	for rows.Next() {
		var c candidate.Candidate
		if err := scanCandidate(rows, &c); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *CandidateRepo) Update(ctx context.Context, c *candidate.Candidate) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE candidates
        SET full_name = $1, image = $2, birth_date = $3, degree = $4, position = $5,
            election_time = $6, description = $7
        WHERE id = $8
    `, c.FullName, c.Image, c.BirthDate, c.Degree, c.Position, c.ElectionTime, c.Description, c.ID)
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

func (r *CandidateRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
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
