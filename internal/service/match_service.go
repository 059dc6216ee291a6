package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/game"
	"github.com/AdamBeresnev/charter-pool/internal/live"
	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type MatchService struct {
	db       *sqlx.DB
	store    *store.TournamentStore
	players  *store.PlayerStore
	games    *store.GameStore
	rating   rating.Config
	locks    *Locks
	notifier Notifier
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, players *store.PlayerStore, games *store.GameStore, cfg rating.Config, locks *Locks, notifier Notifier) *MatchService {
	return &MatchService{db: db, store: store, players: players, games: games, rating: cfg, locks: locks, notifier: notifier}
}

// Reporter is whoever submits a result.
type Reporter struct {
	Netid   string
	IsAdmin bool
}

type RatingChange struct {
	Netid string `json:"netid"`
	Old   int    `json:"old"`
	New   int    `json:"new"`
}

type ReportResult struct {
	Match               bracket.Match   `json:"match"`
	UpdatedMatches      []bracket.Match `json:"updated_matches"`
	CreatedMatches      []bracket.Match `json:"created_matches"`
	Eliminated          []string        `json:"eliminated,omitempty"`
	TournamentCompleted bool            `json:"tournament_completed"`
	Placements          map[string]int  `json:"placements,omitempty"`
	Ratings             []RatingChange  `json:"ratings"`
	Delta               int             `json:"delta"`
	GameID              uuid.UUID       `json:"game_id"`
}

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*bracket.Match, error) {
	match, err := s.store.GetMatch(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", bracket.ErrMatchNotFound, id)
	}
	return match, err
}

// ReportMatchResult records the winner of a tournament match, applies the
// rating change, advances the bracket and completes the tournament when the
// deciding match is in. Everything happens in one transaction under the
// tournament lock, so results feeding the same match cannot interleave.
func (s *MatchService) ReportMatchResult(ctx context.Context, matchID uuid.UUID, winner string, reporter Reporter) (*ReportResult, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	tournamentID := match.TournamentID

	unlock := s.locks.Tournament(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if !tournament.CanReportResults() {
		return nil, ErrTournamentNotActive
	}

	participants, err := s.store.GetParticipants(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	matches, err := s.store.GetMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
	}

	b, err := bracket.Load(tournament, participants, matches)
	if err != nil {
		return nil, err
	}

	current, ok := b.Match(matchID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", bracket.ErrMatchNotFound, matchID)
	}
	outcome, err := b.Report(matchID, winner)
	if err != nil {
		return nil, err
	}
	// Report only mutates the in-memory bracket, nothing is written yet.
	if !bracket.CanReport(&current, reporter.Netid, reporter.IsAdmin) {
		return nil, ErrForbidden
	}

	unlockPlayers := s.locks.Players(outcome.Winner, outcome.Loser)
	defer unlockPlayers()

	changes, delta, err := applySingles(ctx, tx, s.players, s.rating, outcome.Winner, outcome.Loser)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	played := &game.Game{
		ID:           uuid.New(),
		Type:         game.Singles,
		Player1:      *outcome.Match.Player1,
		Player2:      *outcome.Match.Player2,
		Winner:       utils.Ptr(outcome.Winner),
		EloChange:    delta,
		TournamentID: &tournamentID,
		PlayedAt:     now,
	}
	if err := s.games.CreateGame(ctx, tx, played); err != nil {
		return nil, fmt.Errorf("failed to record game: %w", err)
	}

	reported := outcome.Match
	reported.GameID = &played.ID
	reported.CompletedAt = &now
	if err := s.store.UpdateMatch(ctx, tx, &reported); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}

	for i := range outcome.Updated {
		if err := s.store.UpdateMatch(ctx, tx, &outcome.Updated[i]); err != nil {
			return nil, fmt.Errorf("failed to advance %s: %w", outcome.Updated[i].Key(), err)
		}
	}

	for i := range outcome.Created {
		outcome.Created[i].CreatedAt = now
	}
	if err := s.store.CreateMatches(ctx, tx, outcome.Created); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}

	for _, netid := range outcome.Eliminated {
		if err := s.store.SetEliminated(ctx, tx, tournamentID, netid); err != nil {
			return nil, fmt.Errorf("failed to eliminate %s: %w", netid, err)
		}
	}

	if outcome.Completed {
		for netid, placement := range outcome.Placements {
			if err := s.store.SetPlacement(ctx, tx, tournamentID, netid, placement); err != nil {
				return nil, fmt.Errorf("failed to store placement for %s: %w", netid, err)
			}
		}
		tournament.Status = bracket.TournamentCompleted
		tournament.CompletedAt = &now
		if err := s.store.UpdateTournamentStatus(ctx, tx, tournament); err != nil {
			return nil, fmt.Errorf("failed to complete tournament: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result := &ReportResult{
		Match:               reported,
		UpdatedMatches:      outcome.Updated,
		CreatedMatches:      outcome.Created,
		Eliminated:          outcome.Eliminated,
		TournamentCompleted: outcome.Completed,
		Placements:          outcome.Placements,
		Ratings:             changes,
		Delta:               delta,
		GameID:              played.ID,
	}

	slog.Info("Match reported",
		"tournament_id", tournamentID,
		"match", reported.Key().String(),
		"winner", outcome.Winner,
		"delta", delta,
		"completed", outcome.Completed,
	)

	event := live.EventMatchReported
	if outcome.Completed {
		event = live.EventTournamentComplete
	}
	notify(s.notifier, live.Message{Type: event, TournamentID: tournamentID, Payload: result})

	return result, nil
}

func applySingles(ctx context.Context, tx *sqlx.Tx, ps *store.PlayerStore, cfg rating.Config, winner, loser string) ([]RatingChange, int, error) {
	w, err := ps.GetPlayer(ctx, tx, winner)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s: %w", winner, err)
	}
	l, err := ps.GetPlayer(ctx, tx, loser)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s: %w", loser, err)
	}

	res, err := rating.ApplySingles(cfg, w.EloRating, l.EloRating)
	if err != nil {
		return nil, 0, err
	}

	if err := ps.UpdateRating(ctx, tx, winner, res.NewWinner); err != nil {
		return nil, 0, err
	}
	if err := ps.UpdateRating(ctx, tx, loser, res.NewLoser); err != nil {
		return nil, 0, err
	}

	return []RatingChange{
		{Netid: winner, Old: w.EloRating, New: res.NewWinner},
		{Netid: loser, Old: l.EloRating, New: res.NewLoser},
	}, res.Delta, nil
}
