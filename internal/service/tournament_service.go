package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/live"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

const maxTournamentName = 100

type TournamentService struct {
	db       *sqlx.DB
	store    *store.TournamentStore
	players  *store.PlayerStore
	locks    *Locks
	notifier Notifier
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, players *store.PlayerStore, locks *Locks, notifier Notifier) *TournamentService {
	return &TournamentService{db: db, store: store, players: players, locks: locks, notifier: notifier}
}

type TournamentData struct {
	Tournament   *bracket.Tournament   `json:"tournament"`
	Participants []bracket.Participant `json:"participants"`
	Matches      []bracket.Match       `json:"matches"`
	NextMatchID  *uuid.UUID            `json:"next_match_id,omitempty"`
	Standings    []string              `json:"standings,omitempty"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, name string, format string, createdBy *uuid.UUID) (*bracket.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxTournamentName {
		return nil, invalid("name", fmt.Sprintf("must be 1-%d characters", maxTournamentName))
	}
	f, err := bracket.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament := &bracket.Tournament{
		ID:        uuid.New(),
		Name:      name,
		Format:    f,
		Status:    bracket.TournamentOpen,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTournament(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	slog.Info("Tournament created", "tournament_id", tournament.ID, "format", tournament.Format)
	return tournament, nil
}

func (s *TournamentService) Signup(ctx context.Context, tournamentID uuid.UUID, netid string, selfRating int) error {
	netid, err := players.NormalizeNetid(netid)
	if err != nil {
		return invalid("netid", err.Error())
	}
	if err := bracket.ValidateSelfRating(selfRating); err != nil {
		return err
	}

	unlock := s.locks.Tournament(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.getTournament(ctx, tx, tournamentID)
	if err != nil {
		return err
	}
	if !tournament.CanSignup() {
		return ErrTournamentNotOpen
	}

	player, err := s.players.GetPlayer(ctx, tx, netid)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("player %s: %w", netid, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if player.Archived {
		return ErrPlayerArchived
	}

	_, err = s.store.GetParticipant(ctx, tx, tournamentID, netid)
	if err == nil {
		return ErrAlreadySignedUp
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	err = s.store.AddParticipant(ctx, tx, &bracket.Participant{
		TournamentID: tournamentID,
		Netid:        netid,
		SelfRating:   selfRating,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	return tx.Commit()
}

func (s *TournamentService) Withdraw(ctx context.Context, tournamentID uuid.UUID, netid string) error {
	unlock := s.locks.Tournament(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tournament, err := s.getTournament(ctx, tx, tournamentID)
	if err != nil {
		return err
	}
	if !tournament.CanSignup() {
		return ErrTournamentNotOpen
	}

	removed, err := s.store.RemoveParticipant(ctx, tx, tournamentID, strings.ToLower(strings.TrimSpace(netid)))
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("participant %s: %w", netid, ErrNotFound)
	}

	return tx.Commit()
}

// ActivateTournament seeds the participants and writes the match skeleton.
// Any failure leaves the tournament open with nothing written.
func (s *TournamentService) ActivateTournament(ctx context.Context, tournamentID uuid.UUID) (*bracket.Activation, error) {
	unlock := s.locks.Tournament(tournamentID)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.getTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != bracket.TournamentOpen {
		return nil, ErrTournamentNotOpen
	}

	stats, err := s.store.GetParticipantStats(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	entrants := make([]bracket.Entrant, len(stats))
	for i, p := range stats {
		entrants[i] = bracket.Entrant{
			Netid:       p.Netid,
			SelfRating:  p.SelfRating,
			GamesPlayed: p.GamesPlayed,
			Elo:         p.EloRating,
		}
	}

	activation, err := bracket.Activate(tournamentID, tournament.Format, entrants)
	if err != nil {
		return nil, err
	}

	for _, e := range activation.Seeded {
		if err := s.store.SetSeed(ctx, tx, tournamentID, e.Netid, e.Seed); err != nil {
			return nil, fmt.Errorf("failed to store seed for %s: %w", e.Netid, err)
		}
	}

	now := time.Now().UTC()
	for i := range activation.Matches {
		activation.Matches[i].CreatedAt = now
	}
	if err := s.store.CreateMatches(ctx, tx, activation.Matches); err != nil {
		return nil, fmt.Errorf("failed to create matches: %w", err)
	}

	tournament.Status = bracket.TournamentActive
	if err := s.store.UpdateTournamentStatus(ctx, tx, tournament); err != nil {
		return nil, fmt.Errorf("failed to activate tournament: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	byes := 0
	if tournament.Format != bracket.RoundRobin {
		byes = bracket.ByeCount(len(activation.Seeded))
	}
	slog.Info("Tournament activated", "tournament_id", tournamentID, "participants", len(activation.Seeded), "matches", len(activation.Matches), "byes", byes)
	notify(s.notifier, live.Message{Type: live.EventTournamentActive, TournamentID: tournamentID, Payload: activation.Matches})
	return activation, nil
}

func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (*TournamentData, error) {
	data := &TournamentData{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tournament, err := s.getTournament(gctx, s.db, id)
		data.Tournament = tournament
		return err
	})
	g.Go(func() error {
		participants, err := s.store.GetParticipants(gctx, s.db, id)
		data.Participants = participants
		return err
	})
	g.Go(func() error {
		matches, err := s.store.GetMatches(gctx, s.db, id)
		data.Matches = matches
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range data.Matches {
		if m.Status == bracket.MatchReady {
			id := m.ID
			data.NextMatchID = &id
			break
		}
	}

	if data.Tournament.Format == bracket.RoundRobin && data.Tournament.Status != bracket.TournamentOpen {
		b, err := bracket.Load(data.Tournament, data.Participants, data.Matches)
		if err != nil {
			return nil, err
		}
		data.Standings = b.Standings()
	}

	return data, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, status bracket.TournamentStatus) ([]bracket.Tournament, error) {
	return s.store.ListTournaments(ctx, status)
}

// IsTournamentComplete checks the stored bracket rather than trusting the
// status column.
func (s *TournamentService) IsTournamentComplete(ctx context.Context, id uuid.UUID) (bool, error) {
	data, err := s.GetTournamentData(ctx, id)
	if err != nil {
		return false, err
	}
	if data.Tournament.Status == bracket.TournamentOpen {
		return false, nil
	}

	b, err := bracket.Load(data.Tournament, data.Participants, data.Matches)
	if err != nil {
		return false, err
	}
	return b.IsComplete(), nil
}

func (s *TournamentService) getTournament(ctx context.Context, q store.Querier, id uuid.UUID) (*bracket.Tournament, error) {
	tournament, err := s.store.GetTournament(ctx, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament %s: %w", id, ErrNotFound)
	}
	return tournament, err
}
