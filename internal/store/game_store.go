package store

import (
	"context"

	"github.com/AdamBeresnev/charter-pool/internal/game"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type GameStore struct {
	db *sqlx.DB
}

const (
	createGameQuery = `
		INSERT INTO games (id, game_type, player1_netid, player2_netid, player3_netid, player4_netid, winner_netid, winning_team, elo_change, tournament_id, played_at)
		VALUES (:id, :game_type, :player1_netid, :player2_netid, :player3_netid, :player4_netid, :winner_netid, :winning_team, :elo_change, :tournament_id, :played_at)
	`
	playerHistoryQuery = `
		SELECT * FROM games
		WHERE player1_netid = ? OR player2_netid = ? OR player3_netid = ? OR player4_netid = ?
		ORDER BY played_at DESC
		LIMIT ?
	`
	winsQuery = `
		SELECT COUNT(*) FROM games
		WHERE (game_type = 'singles' AND winner_netid = ?)
		OR (game_type = 'doubles' AND winning_team = 1 AND (player1_netid = ? OR player2_netid = ?))
		OR (game_type = 'doubles' AND winning_team = 2 AND (player3_netid = ? OR player4_netid = ?))
	`
)

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) CreateGame(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	_, err := tx.NamedExecContext(ctx, createGameQuery, g)
	return err
}

func (s *GameStore) GetGame(ctx context.Context, q Querier, id uuid.UUID) (*game.Game, error) {
	var g game.Game
	err := sqlx.GetContext(ctx, q, &g, q.Rebind("SELECT * FROM games WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *GameStore) DeleteGame(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM games WHERE id = ?"), id)
	return err
}

// History returns the player's most recent games first.
func (s *GameStore) History(ctx context.Context, netid string, limit int) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games, s.db.Rebind(playerHistoryQuery), netid, netid, netid, netid, limit)
	return games, err
}

func (s *GameStore) Recent(ctx context.Context, limit int) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games, s.db.Rebind("SELECT * FROM games ORDER BY played_at DESC LIMIT ?"), limit)
	return games, err
}

func (s *GameStore) Wins(ctx context.Context, netid string) (int, error) {
	var wins int
	err := s.db.GetContext(ctx, &wins, s.db.Rebind(winsQuery), netid, netid, netid, netid, netid)
	return wins, err
}
