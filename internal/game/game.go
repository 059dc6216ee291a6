package game

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	Singles Type = "singles"
	Doubles Type = "doubles"
)

// Game is an immutable played result. For doubles, team 1 is players 1 and 2
// and team 2 is players 3 and 4.
type Game struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Type         Type       `db:"game_type" json:"game_type"`
	Player1      string     `db:"player1_netid" json:"player1"`
	Player2      string     `db:"player2_netid" json:"player2"`
	Player3      *string    `db:"player3_netid" json:"player3,omitempty"`
	Player4      *string    `db:"player4_netid" json:"player4,omitempty"`
	Winner       *string    `db:"winner_netid" json:"winner,omitempty"`
	WinningTeam  *int       `db:"winning_team" json:"winning_team,omitempty"`
	EloChange    int        `db:"elo_change" json:"elo_change"`
	TournamentID *uuid.UUID `db:"tournament_id" json:"tournament_id,omitempty"`
	PlayedAt     time.Time  `db:"played_at" json:"played_at"`
}

func (g *Game) Participants() []string {
	if g.Type == Singles {
		return []string{g.Player1, g.Player2}
	}
	out := []string{g.Player1, g.Player2}
	if g.Player3 != nil {
		out = append(out, *g.Player3)
	}
	if g.Player4 != nil {
		out = append(out, *g.Player4)
	}
	return out
}

func (g *Game) Winners() []string {
	if g.Type == Singles {
		if g.Winner == nil {
			return nil
		}
		return []string{*g.Winner}
	}
	if g.WinningTeam == nil {
		return nil
	}
	if *g.WinningTeam == 1 {
		return []string{g.Player1, g.Player2}
	}
	return g.team2()
}

func (g *Game) Losers() []string {
	if g.Type == Singles {
		if g.Winner == nil {
			return nil
		}
		if *g.Winner == g.Player1 {
			return []string{g.Player2}
		}
		return []string{g.Player1}
	}
	if g.WinningTeam == nil {
		return nil
	}
	if *g.WinningTeam == 1 {
		return g.team2()
	}
	return []string{g.Player1, g.Player2}
}

func (g *Game) team2() []string {
	var out []string
	if g.Player3 != nil {
		out = append(out, *g.Player3)
	}
	if g.Player4 != nil {
		out = append(out, *g.Player4)
	}
	return out
}

func (g *Game) Won(netid string) bool {
	for _, w := range g.Winners() {
		if w == netid {
			return true
		}
	}
	return false
}
