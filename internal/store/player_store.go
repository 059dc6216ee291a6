package store

import (
	"context"

	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	createPlayerQuery = `
		INSERT INTO players (netid, first_name, last_name, elo_rating, archived, created_at)
		VALUES (:netid, :first_name, :last_name, :elo_rating, :archived, :created_at)
	`
	updateProfileQuery = `
		UPDATE players SET
		first_name = :first_name,
		last_name = :last_name
		WHERE netid = :netid
	`
	leaderboardQuery = `
		SELECT * FROM players
		WHERE archived = ?
		ORDER BY elo_rating DESC, netid ASC
		LIMIT ?
	`
	rankQuery = `
		SELECT COUNT(*) + 1 FROM players
		WHERE archived = ? AND elo_rating > (SELECT elo_rating FROM players WHERE netid = ?)
	`
	gamesPlayedQuery = `
		SELECT COUNT(*) FROM games
		WHERE player1_netid = ? OR player2_netid = ? OR player3_netid = ? OR player4_netid = ?
	`
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, tx *sqlx.Tx, player *players.Player) error {
	_, err := tx.NamedExecContext(ctx, createPlayerQuery, player)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, q Querier, netid string) (*players.Player, error) {
	var player players.Player
	err := sqlx.GetContext(ctx, q, &player, q.Rebind("SELECT * FROM players WHERE netid = ?"), netid)
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// GetPlayers returns the players found among netids, in no particular order.
func (s *PlayerStore) GetPlayers(ctx context.Context, q Querier, netids []string) ([]players.Player, error) {
	if len(netids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM players WHERE netid IN (?)", netids)
	if err != nil {
		return nil, err
	}
	var result []players.Player
	err = sqlx.SelectContext(ctx, q, &result, q.Rebind(query), args...)
	return result, err
}

func (s *PlayerStore) UpdateProfile(ctx context.Context, tx *sqlx.Tx, player *players.Player) error {
	_, err := tx.NamedExecContext(ctx, updateProfileQuery, player)
	return err
}

func (s *PlayerStore) UpdateRating(ctx context.Context, tx *sqlx.Tx, netid string, rating int) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE players SET elo_rating = ? WHERE netid = ?"), rating, netid)
	return err
}

// SetArchived reports whether the player exists.
func (s *PlayerStore) SetArchived(ctx context.Context, tx *sqlx.Tx, netid string, archived bool) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("UPDATE players SET archived = ? WHERE netid = ?"), archived, netid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PlayerStore) DeletePlayer(ctx context.Context, tx *sqlx.Tx, netid string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM players WHERE netid = ?"), netid)
	return err
}

func (s *PlayerStore) Leaderboard(ctx context.Context, limit int) ([]players.Player, error) {
	var result []players.Player
	err := s.db.SelectContext(ctx, &result, s.db.Rebind(leaderboardQuery), false, limit)
	return result, err
}

// ListPlayers returns every player, archived ones included when asked.
func (s *PlayerStore) ListPlayers(ctx context.Context, includeArchived bool) ([]players.Player, error) {
	var result []players.Player
	if includeArchived {
		err := s.db.SelectContext(ctx, &result, "SELECT * FROM players ORDER BY netid ASC")
		return result, err
	}
	err := s.db.SelectContext(ctx, &result, s.db.Rebind("SELECT * FROM players WHERE archived = ? ORDER BY netid ASC"), false)
	return result, err
}

// Rank is 1 + the number of active players rated strictly higher.
func (s *PlayerStore) Rank(ctx context.Context, netid string) (int, error) {
	var rank int
	err := s.db.GetContext(ctx, &rank, s.db.Rebind(rankQuery), false, netid)
	return rank, err
}

func (s *PlayerStore) GamesPlayed(ctx context.Context, q Querier, netid string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind(gamesPlayedQuery), netid, netid, netid, netid)
	return count, err
}

func (s *PlayerStore) TournamentEntries(ctx context.Context, q Querier, netid string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, q.Rebind("SELECT COUNT(*) FROM tournament_participants WHERE netid = ?"), netid)
	return count, err
}
