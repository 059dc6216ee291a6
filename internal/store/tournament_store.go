package store

import (
	"context"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Querier is satisfied by both *sqlx.DB and *sqlx.Tx, so reads can join a
// running transaction.
type Querier = sqlx.ExtContext

type TournamentStore struct {
	db *sqlx.DB
}

// ParticipantStats is a participant with the player data seeding needs.
type ParticipantStats struct {
	bracket.Participant
	EloRating   int `db:"elo_rating"`
	GamesPlayed int `db:"games_played"`
}

const (
	createTournamentQuery = `
		INSERT INTO tournaments (id, name, format, status, created_by, created_at)
		VALUES (:id, :name, :format, :status, :created_by, :created_at)
	`
	updateTournamentStatusQuery = `
		UPDATE tournaments SET
		status = :status,
		completed_at = :completed_at
		WHERE id = :id
	`
	addParticipantQuery = `
		INSERT INTO tournament_participants (tournament_id, netid, self_rating, created_at)
		VALUES (:tournament_id, :netid, :self_rating, :created_at)
	`
	participantStatsQuery = `
		SELECT tp.tournament_id, tp.netid, tp.self_rating, tp.seed, tp.placement, tp.eliminated, tp.created_at,
			p.elo_rating,
			(SELECT COUNT(*) FROM games g
				WHERE g.player1_netid = tp.netid OR g.player2_netid = tp.netid
				OR g.player3_netid = tp.netid OR g.player4_netid = tp.netid) AS games_played
		FROM tournament_participants tp
		JOIN players p ON p.netid = tp.netid
		WHERE tp.tournament_id = ?
		ORDER BY tp.created_at ASC, tp.netid ASC
	`
	createMatchesQuery = `
		INSERT INTO tournament_matches (id, tournament_id, bracket, round_number, match_number, player1_netid, player2_netid, winner_netid, game_id, status, created_at, completed_at)
		VALUES (:id, :tournament_id, :bracket, :round_number, :match_number, :player1_netid, :player2_netid, :winner_netid, :game_id, :status, :created_at, :completed_at)
	`
	updateMatchQuery = `
		UPDATE tournament_matches SET
		player1_netid = :player1_netid,
		player2_netid = :player2_netid,
		winner_netid = :winner_netid,
		game_id = :game_id,
		status = :status,
		completed_at = :completed_at
		WHERE id = :id
	`
)

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, createTournamentQuery, tournament)
	return err
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, updateTournamentStatusQuery, tournament)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, q Querier, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	err := sqlx.GetContext(ctx, q, &tournament, q.Rebind("SELECT * FROM tournaments WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &tournament, nil
}

// ListTournaments returns newest first. An empty status lists every tournament.
func (s *TournamentStore) ListTournaments(ctx context.Context, status bracket.TournamentStatus) ([]bracket.Tournament, error) {
	var tournaments []bracket.Tournament
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments ORDER BY created_at DESC")
	} else {
		err = s.db.SelectContext(ctx, &tournaments, s.db.Rebind("SELECT * FROM tournaments WHERE status = ? ORDER BY created_at DESC"), status)
	}
	return tournaments, err
}

func (s *TournamentStore) AddParticipant(ctx context.Context, tx *sqlx.Tx, participant *bracket.Participant) error {
	_, err := tx.NamedExecContext(ctx, addParticipantQuery, participant)
	return err
}

// RemoveParticipant reports whether a row was deleted.
func (s *TournamentStore) RemoveParticipant(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, netid string) (bool, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM tournament_participants WHERE tournament_id = ? AND netid = ?"), tournamentID, netid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *TournamentStore) GetParticipant(ctx context.Context, q Querier, tournamentID uuid.UUID, netid string) (*bracket.Participant, error) {
	var participant bracket.Participant
	err := sqlx.GetContext(ctx, q, &participant, q.Rebind("SELECT * FROM tournament_participants WHERE tournament_id = ? AND netid = ?"), tournamentID, netid)
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetParticipants returns participants in signup order.
func (s *TournamentStore) GetParticipants(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	var participants []bracket.Participant
	err := sqlx.SelectContext(ctx, q, &participants, q.Rebind("SELECT * FROM tournament_participants WHERE tournament_id = ? ORDER BY created_at ASC, netid ASC"), tournamentID)
	return participants, err
}

func (s *TournamentStore) GetParticipantStats(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]ParticipantStats, error) {
	var stats []ParticipantStats
	err := sqlx.SelectContext(ctx, q, &stats, q.Rebind(participantStatsQuery), tournamentID)
	return stats, err
}

func (s *TournamentStore) SetSeed(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, netid string, seed int) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournament_participants SET seed = ? WHERE tournament_id = ? AND netid = ?"), seed, tournamentID, netid)
	return err
}

func (s *TournamentStore) SetEliminated(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, netid string) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournament_participants SET eliminated = ? WHERE tournament_id = ? AND netid = ?"), true, tournamentID, netid)
	return err
}

func (s *TournamentStore) SetPlacement(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, netid string, placement int) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournament_participants SET placement = ? WHERE tournament_id = ? AND netid = ?"), placement, tournamentID, netid)
	return err
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createMatchesQuery, matches)
	return err
}

func (s *TournamentStore) UpdateMatch(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	_, err := tx.NamedExecContext(ctx, updateMatchQuery, match)
	return err
}

func (s *TournamentStore) GetMatch(ctx context.Context, q Querier, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	err := sqlx.GetContext(ctx, q, &match, q.Rebind("SELECT * FROM tournament_matches WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	err := sqlx.SelectContext(ctx, q, &matches, q.Rebind(`SELECT * FROM tournament_matches WHERE tournament_id = ?
		ORDER BY CASE bracket WHEN 'grand_finals' THEN 2 WHEN 'losers' THEN 1 ELSE 0 END, round_number ASC, match_number ASC`), tournamentID)
	return matches, err
}
