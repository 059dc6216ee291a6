package bracket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchReady     MatchStatus = "ready"
	MatchCompleted MatchStatus = "completed"
)

type BracketSide string

const (
	MainSide        BracketSide = "main"
	WinnersSide     BracketSide = "winners"
	LosersSide      BracketSide = "losers"
	GrandFinalsSide BracketSide = "grand_finals"
)

// MatchKey is the position of a match inside its tournament. Downstream
// matches are found by computing their key, never by stored links.
type MatchKey struct {
	Side  BracketSide
	Round int
	Match int
}

func (k MatchKey) String() string {
	return fmt.Sprintf("%s R%d M%d", k.Side, k.Round, k.Match)
}

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	Side        BracketSide `db:"bracket" json:"bracket"`
	RoundNumber int         `db:"round_number" json:"round_number"`
	MatchNumber int         `db:"match_number" json:"match_number"`

	// nil means TBD
	Player1 *string `db:"player1_netid" json:"player1,omitempty"`
	Player2 *string `db:"player2_netid" json:"player2,omitempty"`
	Winner  *string `db:"winner_netid" json:"winner,omitempty"`

	GameID *uuid.UUID  `db:"game_id" json:"game_id,omitempty"`
	Status MatchStatus `db:"status" json:"status"`

	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

func (m *Match) Key() MatchKey {
	return MatchKey{Side: m.Side, Round: m.RoundNumber, Match: m.MatchNumber}
}

func (m *Match) Completed() bool {
	return m.Status == MatchCompleted
}

func (m *Match) IsReady() bool {
	return m.Player1 != nil && m.Player2 != nil
}

func (m *Match) HasPlayer(netid string) bool {
	return (m.Player1 != nil && *m.Player1 == netid) || (m.Player2 != nil && *m.Player2 == netid)
}

// Opponent returns the other slot occupant, or "" when netid is not in the match.
func (m *Match) Opponent(netid string) string {
	if !m.IsReady() {
		return ""
	}
	switch netid {
	case *m.Player1:
		return *m.Player2
	case *m.Player2:
		return *m.Player1
	}
	return ""
}

func (m *Match) Loser() string {
	if !m.Completed() || m.Winner == nil {
		return ""
	}
	return m.Opponent(*m.Winner)
}

func (m *Match) refreshStatus() {
	if m.Completed() {
		return
	}
	if m.IsReady() {
		m.Status = MatchReady
	} else {
		m.Status = MatchPending
	}
}

// CanReport reports whether netid may submit the result of m. Admins may
// report any ready match, players only their own.
func CanReport(m *Match, netid string, isAdmin bool) bool {
	if m == nil || m.Completed() || !m.IsReady() {
		return false
	}
	return isAdmin || m.HasPlayer(netid)
}
