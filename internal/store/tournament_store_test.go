package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/game"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	// Every pooled connection would get its own empty in-memory database.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

func inTx(t *testing.T, db *sqlx.DB, fn func(tx *sqlx.Tx)) {
	t.Helper()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func seedPlayers(t *testing.T, db *sqlx.DB, ratings map[string]int) {
	t.Helper()

	store := NewPlayerStore(db)
	inTx(t, db, func(tx *sqlx.Tx) {
		for netid, rating := range ratings {
			err := store.CreatePlayer(context.Background(), tx, &players.Player{
				Netid:     netid,
				EloRating: rating,
				CreatedAt: time.Now().UTC(),
			})
			require.NoError(t, err)
		}
	})
}

func seedTournament(t *testing.T, db *sqlx.DB, format bracket.Format) *bracket.Tournament {
	t.Helper()

	tournament := &bracket.Tournament{
		ID:        uuid.New(),
		Name:      "Test Tournament",
		Format:    format,
		Status:    bracket.TournamentOpen,
		CreatedAt: time.Now().UTC(),
	}
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, NewTournamentStore(db).CreateTournament(context.Background(), tx, tournament))
	})
	return tournament
}

func TestCreateTournament(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	tournament := seedTournament(t, db, bracket.DoubleElimination)

	fetched, err := store.GetTournament(context.Background(), db, tournament.ID)
	require.NoError(t, err)

	assert.Equal(t, tournament.ID, fetched.ID)
	assert.Equal(t, tournament.Name, fetched.Name)
	assert.Equal(t, bracket.DoubleElimination, fetched.Format)
	assert.Equal(t, bracket.TournamentOpen, fetched.Status)
	assert.Nil(t, fetched.CreatedBy)
	assert.Nil(t, fetched.CompletedAt)
	assert.WithinDuration(t, tournament.CreatedAt, fetched.CreatedAt, time.Second)

	now := time.Now().UTC()
	fetched.Status = bracket.TournamentCompleted
	fetched.CompletedAt = &now
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.UpdateTournamentStatus(context.Background(), tx, fetched))
	})

	completed, err := store.ListTournaments(context.Background(), bracket.TournamentCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.NotNil(t, completed[0].CompletedAt)

	open, err := store.ListTournaments(context.Background(), bracket.TournamentOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := store.ListTournaments(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestParticipants(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewTournamentStore(db)
	seedPlayers(t, db, map[string]int{"zed": 1300, "amy": 1100, "bob": 1200})
	tournament := seedTournament(t, db, bracket.SingleElimination)

	start := time.Now().UTC()
	inTx(t, db, func(tx *sqlx.Tx) {
		for i, netid := range []string{"zed", "amy", "bob"} {
			err := store.AddParticipant(ctx, tx, &bracket.Participant{
				TournamentID: tournament.ID,
				Netid:        netid,
				SelfRating:   5 + i,
				CreatedAt:    start.Add(time.Duration(i) * time.Millisecond),
			})
			require.NoError(t, err)
		}
	})

	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, NewGameStore(db).CreateGame(ctx, tx, &game.Game{
			ID:        uuid.New(),
			Type:      game.Singles,
			Player1:   "zed",
			Player2:   "amy",
			Winner:    utils.Ptr("zed"),
			EloChange: 16,
			PlayedAt:  time.Now().UTC(),
		}))
	})

	participants, err := store.GetParticipants(ctx, db, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)
	assert.Equal(t, "zed", participants[0].Netid, "signup order")
	assert.Equal(t, "bob", participants[2].Netid)
	assert.Nil(t, participants[0].Seed)

	stats, err := store.GetParticipantStats(ctx, db, tournament.ID)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "zed", stats[0].Netid)
	assert.Equal(t, 1300, stats[0].EloRating)
	assert.Equal(t, 1, stats[0].GamesPlayed)
	assert.Equal(t, 1, stats[1].GamesPlayed)
	assert.Equal(t, 0, stats[2].GamesPlayed)

	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.SetSeed(ctx, tx, tournament.ID, "amy", 1))
		require.NoError(t, store.SetEliminated(ctx, tx, tournament.ID, "amy"))
		require.NoError(t, store.SetPlacement(ctx, tx, tournament.ID, "amy", 2))
	})

	amy, err := store.GetParticipant(ctx, db, tournament.ID, "amy")
	require.NoError(t, err)
	assert.Equal(t, 1, utils.OrZero(amy.Seed))
	assert.Equal(t, 2, utils.OrZero(amy.Placement))
	assert.True(t, amy.Eliminated)

	inTx(t, db, func(tx *sqlx.Tx) {
		removed, err := store.RemoveParticipant(ctx, tx, tournament.ID, "bob")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.RemoveParticipant(ctx, tx, tournament.ID, "bob")
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestCreateMatches(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewTournamentStore(db)
	seedPlayers(t, db, map[string]int{"a": 1200, "b": 1200, "c": 1200, "d": 1200})
	tournament := seedTournament(t, db, bracket.DoubleElimination)

	now := time.Now().UTC()
	matches := []bracket.Match{
		{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			Side:         bracket.LosersSide,
			RoundNumber:  1,
			MatchNumber:  1,
			Status:       bracket.MatchPending,
			CreatedAt:    now,
		},
		{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			Side:         bracket.WinnersSide,
			RoundNumber:  1,
			MatchNumber:  2,
			Player1:      utils.Ptr("c"),
			Player2:      utils.Ptr("d"),
			Status:       bracket.MatchReady,
			CreatedAt:    now,
		},
		{
			ID:           uuid.New(),
			TournamentID: tournament.ID,
			Side:         bracket.WinnersSide,
			RoundNumber:  1,
			MatchNumber:  1,
			Player1:      utils.Ptr("a"),
			Player2:      utils.Ptr("b"),
			Status:       bracket.MatchReady,
			CreatedAt:    now,
		},
	}

	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, store.CreateMatches(ctx, tx, matches))
	})

	fetched, err := store.GetMatches(ctx, db, tournament.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 3)
	assert.Equal(t, matches[2].ID, fetched[0].ID, "winners side first, then by match number")
	assert.Equal(t, matches[1].ID, fetched[1].ID)
	assert.Equal(t, matches[0].ID, fetched[2].ID)
	assert.Nil(t, fetched[2].Player1)
	assert.Equal(t, "a", *fetched[0].Player1)

	match := fetched[0]
	gameID := uuid.New()
	inTx(t, db, func(tx *sqlx.Tx) {
		require.NoError(t, NewGameStore(db).CreateGame(ctx, tx, &game.Game{
			ID: gameID, Type: game.Singles, Player1: "a", Player2: "b", Winner: utils.Ptr("a"), EloChange: 16, PlayedAt: now,
		}))
		match.Winner = utils.Ptr("a")
		match.GameID = &gameID
		match.Status = bracket.MatchCompleted
		match.CompletedAt = &now
		require.NoError(t, store.UpdateMatch(ctx, tx, &match))
	})

	updated, err := store.GetMatch(ctx, db, match.ID)
	require.NoError(t, err)
	assert.Equal(t, bracket.MatchCompleted, updated.Status)
	assert.Equal(t, "a", *updated.Winner)
	assert.Equal(t, gameID, *updated.GameID)
	assert.NotNil(t, updated.CompletedAt)
}

func TestDuplicateMatchPositionRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewTournamentStore(db)
	tournament := seedTournament(t, db, bracket.SingleElimination)

	match := bracket.Match{ID: uuid.New(), TournamentID: tournament.ID, Side: bracket.MainSide, RoundNumber: 1, MatchNumber: 1, Status: bracket.MatchPending}
	twin := match
	twin.ID = uuid.New()

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.Error(t, store.CreateMatches(ctx, tx, []bracket.Match{match, twin}))
}
