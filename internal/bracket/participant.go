package bracket

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Netid        string    `db:"netid" json:"netid"`
	SelfRating   int       `db:"self_rating" json:"self_rating"`
	Seed         *int      `db:"seed" json:"seed,omitempty"`
	Placement    *int      `db:"placement" json:"placement,omitempty"`
	Eliminated   bool      `db:"eliminated" json:"eliminated"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
