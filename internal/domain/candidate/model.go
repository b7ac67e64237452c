package candidate

import (
	"context"
	"time"
)

type Candidate struct {
	ID           int64      `json:"id"`
	FullName     string     `json:"full_name"`
	Image        *string    `json:"image,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Degree       *string    `json:"degree,omitempty"`
	Position     *string    `json:"position,omitempty"`
	ElectionTime *string    `json:"election_time,omitempty"`
	Description  *string    `json:"description,omitempty"`
	FromAPI      bool       `json:"from_api"`
	ExternalID   *int64     `json:"external_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PositionValue returns the candidate's effective position, empty when unset.
func (c *Candidate) PositionValue() string {
	if c == nil || c.Position == nil {
		return ""
	}
	return *c.Position
}

type Repository interface {
	Create(ctx context.Context, c *Candidate) error
	GetByID(ctx context.Context, id int64) (*Candidate, error)
	List(ctx context.Context) ([]Candidate, error)
	Update(ctx context.Context, c *Candidate) error
	Delete(ctx context.Context, id int64) error
}
