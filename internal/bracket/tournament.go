package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentOpen      TournamentStatus = "open"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

type Format string

const (
	SingleElimination Format = "single_elim"
	DoubleElimination Format = "double_elim"
	RoundRobin        Format = "round_robin"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case SingleElimination, DoubleElimination, RoundRobin:
		return f, nil
	}
	return "", &ValidationError{Field: "format", Reason: "unknown tournament format " + s}
}

type Tournament struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Format      Format           `db:"format" json:"format"`
	Status      TournamentStatus `db:"status" json:"status"`
	CreatedBy   *uuid.UUID       `db:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	CompletedAt *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
}

func (t *Tournament) CanSignup() bool {
	return t.Status == TournamentOpen
}

func (t *Tournament) CanReportResults() bool {
	return t.Status == TournamentActive
}
