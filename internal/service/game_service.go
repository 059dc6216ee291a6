package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/charter-pool/internal/game"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const defaultHistoryLimit = 20

type GameService struct {
	db      *sqlx.DB
	store   *store.GameStore
	players *store.PlayerStore
	rating  rating.Config
	locks   *Locks
}

func NewGameService(db *sqlx.DB, store *store.GameStore, players *store.PlayerStore, cfg rating.Config, locks *Locks) *GameService {
	return &GameService{db: db, store: store, players: players, rating: cfg, locks: locks}
}

// ReportSingles records a casual game between two active players.
func (s *GameService) ReportSingles(ctx context.Context, player1, player2, winner string) (*game.Game, []RatingChange, error) {
	netids, err := normalizeDistinct(player1, player2)
	if err != nil {
		return nil, nil, err
	}
	winner, err = players.NormalizeNetid(winner)
	if err != nil || (winner != netids[0] && winner != netids[1]) {
		return nil, nil, invalid("winner", "must be one of the two players")
	}
	loser := netids[0]
	if winner == loser {
		loser = netids[1]
	}

	unlock := s.locks.Players(netids...)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	if err := s.requireActive(ctx, tx, netids); err != nil {
		return nil, nil, err
	}

	changes, delta, err := applySingles(ctx, tx, s.players, s.rating, winner, loser)
	if err != nil {
		return nil, nil, err
	}

	g := &game.Game{
		ID:        uuid.New(),
		Type:      game.Singles,
		Player1:   netids[0],
		Player2:   netids[1],
		Winner:    utils.Ptr(winner),
		EloChange: delta,
		PlayedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateGame(ctx, tx, g); err != nil {
		return nil, nil, fmt.Errorf("failed to record game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	slog.Info("Singles game recorded", "game_id", g.ID, "winner", winner, "loser", loser, "delta", delta)
	return g, changes, nil
}

// ReportDoubles records a casual 2v2 game. Every player moves by the same
// delta, computed from the two team averages.
func (s *GameService) ReportDoubles(ctx context.Context, team1, team2 [2]string, winningTeam int) (*game.Game, []RatingChange, error) {
	if winningTeam != 1 && winningTeam != 2 {
		return nil, nil, invalid("winning_team", "must be 1 or 2")
	}
	netids, err := normalizeDistinct(team1[0], team1[1], team2[0], team2[1])
	if err != nil {
		return nil, nil, err
	}

	unlock := s.locks.Players(netids...)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	if err := s.requireActive(ctx, tx, netids); err != nil {
		return nil, nil, err
	}

	current := make([]int, len(netids))
	for i, netid := range netids {
		p, err := s.players.GetPlayer(ctx, tx, netid)
		if err != nil {
			return nil, nil, err
		}
		current[i] = p.EloRating
	}

	res, err := rating.ApplyDoubles(s.rating, [2]int{current[0], current[1]}, [2]int{current[2], current[3]}, winningTeam)
	if err != nil {
		return nil, nil, err
	}

	updated := []int{res.Team1[0], res.Team1[1], res.Team2[0], res.Team2[1]}
	changes := make([]RatingChange, len(netids))
	for i, netid := range netids {
		if err := s.players.UpdateRating(ctx, tx, netid, updated[i]); err != nil {
			return nil, nil, err
		}
		changes[i] = RatingChange{Netid: netid, Old: current[i], New: updated[i]}
	}

	g := &game.Game{
		ID:          uuid.New(),
		Type:        game.Doubles,
		Player1:     netids[0],
		Player2:     netids[1],
		Player3:     utils.Ptr(netids[2]),
		Player4:     utils.Ptr(netids[3]),
		WinningTeam: utils.Ptr(winningTeam),
		EloChange:   res.Delta,
		PlayedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateGame(ctx, tx, g); err != nil {
		return nil, nil, fmt.Errorf("failed to record game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	slog.Info("Doubles game recorded", "game_id", g.ID, "winning_team", winningTeam, "delta", res.Delta)
	return g, changes, nil
}

// DeleteGame removes a casual game and gives every participant back exactly
// the delta it moved them by. Later games are not recomputed.
func (s *GameService) DeleteGame(ctx context.Context, id uuid.UUID) error {
	g, err := s.store.GetGame(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if g.TournamentID != nil {
		return ErrTournamentGame
	}

	unlock := s.locks.Players(g.Participants()...)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, netid := range g.Winners() {
		if err := s.shiftRating(ctx, tx, netid, -g.EloChange); err != nil {
			return err
		}
	}
	for _, netid := range g.Losers() {
		if err := s.shiftRating(ctx, tx, netid, g.EloChange); err != nil {
			return err
		}
	}

	if err := s.store.DeleteGame(ctx, tx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("Game deleted and ratings reverted", "game_id", id, "delta", g.EloChange)
	return nil
}

func (s *GameService) History(ctx context.Context, netid string, limit int) ([]game.Game, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.History(ctx, netid, limit)
}

func (s *GameService) Recent(ctx context.Context, limit int) ([]game.Game, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return s.store.Recent(ctx, limit)
}

func (s *GameService) shiftRating(ctx context.Context, tx *sqlx.Tx, netid string, by int) error {
	p, err := s.players.GetPlayer(ctx, tx, netid)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", netid, err)
	}
	return s.players.UpdateRating(ctx, tx, netid, p.EloRating+by)
}

func (s *GameService) requireActive(ctx context.Context, tx *sqlx.Tx, netids []string) error {
	found, err := s.players.GetPlayers(ctx, tx, netids)
	if err != nil {
		return err
	}
	byNetid := make(map[string]players.Player, len(found))
	for _, p := range found {
		byNetid[p.Netid] = p
	}
	for _, netid := range netids {
		p, ok := byNetid[netid]
		if !ok {
			return fmt.Errorf("player %s: %w", netid, ErrNotFound)
		}
		if p.Archived {
			return fmt.Errorf("%s: %w", netid, ErrPlayerArchived)
		}
	}
	return nil
}

func normalizeDistinct(raw ...string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, len(raw))
	for i, r := range raw {
		netid, err := players.NormalizeNetid(r)
		if err != nil {
			return nil, invalid("netid", err.Error())
		}
		if _, dup := seen[netid]; dup {
			return nil, invalid("players", "a player cannot appear twice in one game")
		}
		seen[netid] = struct{}{}
		out[i] = netid
	}
	return out, nil
}
