package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/markbates/goth"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLeaderboardLimit = 50
	defaultSearchLimit      = 10
	maxNameLength           = 50
)

type PlayerService struct {
	db     *sqlx.DB
	store  *store.PlayerStore
	games  *store.GameStore
	rating rating.Config
}

func NewPlayerService(db *sqlx.DB, store *store.PlayerStore, games *store.GameStore, cfg rating.Config) *PlayerService {
	return &PlayerService{db: db, store: store, games: games, rating: cfg}
}

type PlayerStats struct {
	Player      *players.Player `json:"player"`
	Rank        int             `json:"rank"`
	GamesPlayed int             `json:"games_played"`
	Wins        int             `json:"wins"`
	Losses      int             `json:"losses"`
	WinRate     float64         `json:"win_rate"`
}

// Login signs a player in by netid, registering them on first visit.
func (s *PlayerService) Login(ctx context.Context, netid string) (*players.Player, error) {
	return s.findOrCreate(ctx, netid, nil, nil)
}

func (s *PlayerService) FindOrCreateByProvider(ctx context.Context, gothUser goth.User) (*players.Player, error) {
	netid, err := players.NetidFromEmail(gothUser.Email)
	if err != nil {
		return nil, invalid("email", err.Error())
	}
	return s.findOrCreate(ctx, netid, utils.StringOrNil(gothUser.FirstName), utils.StringOrNil(gothUser.LastName))
}

func (s *PlayerService) findOrCreate(ctx context.Context, rawNetid string, firstName, lastName *string) (*players.Player, error) {
	netid, err := players.NormalizeNetid(rawNetid)
	if err != nil {
		return nil, invalid("netid", err.Error())
	}

	player, err := s.store.GetPlayer(ctx, s.db, netid)
	if err == nil {
		if player.Archived {
			return nil, ErrPlayerArchived
		}
		return player, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	player = &players.Player{
		Netid:     netid,
		FirstName: firstName,
		LastName:  lastName,
		EloRating: s.rating.DefaultRating,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.create(ctx, player); err != nil {
		return nil, err
	}

	slog.Info("Player registered", "netid", netid)
	return player, nil
}

// AddPlayer lets an admin register someone ahead of their first login.
func (s *PlayerService) AddPlayer(ctx context.Context, netid, firstName, lastName string) (*players.Player, error) {
	normalized, err := players.NormalizeNetid(netid)
	if err != nil {
		return nil, invalid("netid", err.Error())
	}
	first, last, err := validateNames(firstName, lastName)
	if err != nil {
		return nil, err
	}

	_, err = s.store.GetPlayer(ctx, s.db, normalized)
	if err == nil {
		return nil, ErrPlayerExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	player := &players.Player{
		Netid:     normalized,
		FirstName: first,
		LastName:  last,
		EloRating: s.rating.DefaultRating,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.create(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

func (s *PlayerService) create(ctx context.Context, player *players.Player) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.CreatePlayer(ctx, tx, player); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return tx.Commit()
}

func (s *PlayerService) CompleteProfile(ctx context.Context, netid, firstName, lastName string) (*players.Player, error) {
	first, last, err := validateNames(firstName, lastName)
	if err != nil {
		return nil, err
	}
	if first == nil || last == nil {
		return nil, invalid("name", "first and last name are required")
	}

	player, err := s.GetPlayer(ctx, netid)
	if err != nil {
		return nil, err
	}
	player.FirstName = first
	player.LastName = last

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.store.UpdateProfile(ctx, tx, player); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return player, tx.Commit()
}

func (s *PlayerService) GetPlayer(ctx context.Context, netid string) (*players.Player, error) {
	player, err := s.store.GetPlayer(ctx, s.db, strings.ToLower(strings.TrimSpace(netid)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", netid, ErrNotFound)
	}
	return player, err
}

func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]players.Player, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	return s.store.Leaderboard(ctx, limit)
}

func (s *PlayerService) ListPlayers(ctx context.Context, includeArchived bool) ([]players.Player, error) {
	return s.store.ListPlayers(ctx, includeArchived)
}

func (s *PlayerService) Stats(ctx context.Context, netid string) (*PlayerStats, error) {
	stats := &PlayerStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		player, err := s.GetPlayer(gctx, netid)
		stats.Player = player
		return err
	})
	g.Go(func() error {
		rank, err := s.store.Rank(gctx, netid)
		stats.Rank = rank
		return err
	})
	g.Go(func() error {
		played, err := s.store.GamesPlayed(gctx, s.db, netid)
		stats.GamesPlayed = played
		return err
	})
	g.Go(func() error {
		wins, err := s.games.Wins(gctx, netid)
		stats.Wins = wins
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Losses = stats.GamesPlayed - stats.Wins
	if stats.GamesPlayed > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.GamesPlayed)
	}
	return stats, nil
}

// Search fuzzy-matches active players by netid and name, best match first.
func (s *PlayerService) Search(ctx context.Context, query string, limit int) ([]players.Player, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	active, err := s.store.ListPlayers(ctx, false)
	if err != nil {
		return nil, err
	}

	targets := make([]string, len(active))
	for i, p := range active {
		targets[i] = p.Netid + " " + p.DisplayName()
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	result := make([]players.Player, 0, min(limit, len(ranks)))
	for _, r := range ranks {
		if len(result) == limit {
			break
		}
		result = append(result, active[r.OriginalIndex])
	}
	return result, nil
}

func (s *PlayerService) Archive(ctx context.Context, netid string) error {
	return s.setArchived(ctx, netid, true)
}

func (s *PlayerService) Unarchive(ctx context.Context, netid string) error {
	return s.setArchived(ctx, netid, false)
}

func (s *PlayerService) setArchived(ctx context.Context, netid string, archived bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	found, err := s.store.SetArchived(ctx, tx, strings.ToLower(strings.TrimSpace(netid)), archived)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("player %s: %w", netid, ErrNotFound)
	}

	slog.Info("Player archive state changed", "netid", netid, "archived", archived)
	return tx.Commit()
}

// DeletePlayer only removes players with no history. Anyone who has played
// must be archived instead.
func (s *PlayerService) DeletePlayer(ctx context.Context, netid string) error {
	player, err := s.GetPlayer(ctx, netid)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	played, err := s.store.GamesPlayed(ctx, tx, player.Netid)
	if err != nil {
		return err
	}
	entries, err := s.store.TournamentEntries(ctx, tx, player.Netid)
	if err != nil {
		return err
	}
	if played > 0 || entries > 0 {
		return ErrPlayerHasGames
	}

	if err := s.store.DeletePlayer(ctx, tx, player.Netid); err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	return tx.Commit()
}

func validateNames(firstName, lastName string) (*string, *string, error) {
	first := utils.StringOrNil(firstName)
	last := utils.StringOrNil(lastName)
	if (first != nil && len(*first) > maxNameLength) || (last != nil && len(*last) > maxNameLength) {
		return nil, nil, invalid("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	return first, last, nil
}
