package service

import (
	"context"
	"sync"
	"testing"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/live"
	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/AdamBeresnev/charter-pool/internal/store"
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

type recordingNotifier struct {
	mu       sync.Mutex
	messages []live.Message
}

func (n *recordingNotifier) Publish(msg live.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	for i, m := range n.messages {
		out[i] = m.Type
	}
	return out
}

type testServices struct {
	db          *sqlx.DB
	tournaments *TournamentService
	matches     *MatchService
	games       *GameService
	players     *PlayerService
	admins      *AdminService
	store       *store.TournamentStore
	notifier    *recordingNotifier
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	cfg := rating.DefaultConfig()
	locks := NewLocks()
	notifier := &recordingNotifier{}

	tournamentStore := store.NewTournamentStore(db)
	playerStore := store.NewPlayerStore(db)
	gameStore := store.NewGameStore(db)

	return &testServices{
		db:          db,
		tournaments: NewTournamentService(db, tournamentStore, playerStore, locks, notifier),
		matches:     NewMatchService(db, tournamentStore, playerStore, gameStore, cfg, locks, notifier),
		games:       NewGameService(db, gameStore, playerStore, cfg, locks),
		players:     NewPlayerService(db, playerStore, gameStore, cfg),
		admins:      NewAdminService(store.NewAdminStore(db)),
		store:       tournamentStore,
		notifier:    notifier,
	}
}

func (ts *testServices) addPlayers(t *testing.T, netids ...string) {
	t.Helper()
	for _, netid := range netids {
		_, err := ts.players.AddPlayer(context.Background(), netid, "", "")
		require.NoError(t, err)
	}
}

// openTournament creates a tournament and signs the players up in order,
// each with the given self rating.
func (ts *testServices) openTournament(t *testing.T, format bracket.Format, signups map[string]int, order ...string) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	tournament, err := ts.tournaments.CreateTournament(ctx, "Friday Pool", string(format), nil)
	require.NoError(t, err)

	for _, netid := range order {
		require.NoError(t, ts.tournaments.Signup(ctx, tournament.ID, netid, signups[netid]))
	}
	return tournament.ID
}

func TestCreateTournamentValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	testCases := []struct {
		name   string
		title  string
		format string
	}{
		{name: "Empty name", title: "  ", format: "single_elim"},
		{name: "Unknown format", title: "Cup", format: "swiss"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ts.tournaments.CreateTournament(ctx, tc.title, tc.format, nil)
			assert.ErrorIs(t, err, bracket.ErrValidation)
		})
	}

	tournaments, err := ts.tournaments.ListTournaments(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, tournaments)
}

func TestSignup(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "ann", "ben", "old")
	require.NoError(t, ts.players.Archive(ctx, "old"))

	tournament, err := ts.tournaments.CreateTournament(ctx, "Cup", "round_robin", nil)
	require.NoError(t, err)

	require.NoError(t, ts.tournaments.Signup(ctx, tournament.ID, "ANN", 7))
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, tournament.ID, "ann", 7), ErrAlreadySignedUp)
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, tournament.ID, "ben", 11), bracket.ErrValidation)
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, tournament.ID, "old", 5), ErrPlayerArchived)
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, tournament.ID, "ghost", 5), ErrNotFound)
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, uuid.New(), "ben", 5), ErrNotFound)

	require.NoError(t, ts.tournaments.Signup(ctx, tournament.ID, "ben", 4))
	require.NoError(t, ts.tournaments.Withdraw(ctx, tournament.ID, "ben"))
	assert.ErrorIs(t, ts.tournaments.Withdraw(ctx, tournament.ID, "ben"), ErrNotFound)

	participants, err := ts.store.GetParticipants(ctx, ts.db, tournament.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, "ann", participants[0].Netid)
	assert.Equal(t, 7, participants[0].SelfRating)
}

func TestActivateTournament(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "p1", "p2", "p3", "p4", "p5")

	id := ts.openTournament(t, bracket.SingleElimination,
		map[string]int{"p1": 10, "p2": 8, "p3": 6, "p4": 4, "p5": 2},
		"p5", "p4", "p3", "p2", "p1")

	activation, err := ts.tournaments.ActivateTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, seededNetids(activation.Seeded))
	assert.Len(t, activation.Matches, 4)

	data, err := ts.tournaments.GetTournamentData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentActive, data.Tournament.Status)
	assert.Len(t, data.Matches, 4)
	require.NotNil(t, data.NextMatchID)
	for _, p := range data.Participants {
		require.NotNil(t, p.Seed, p.Netid)
	}

	// Signups are closed and a second activation is refused.
	assert.ErrorIs(t, ts.tournaments.Signup(ctx, id, "p1", 5), ErrTournamentNotOpen)
	_, err = ts.tournaments.ActivateTournament(ctx, id)
	assert.ErrorIs(t, err, ErrTournamentNotOpen)

	complete, err := ts.tournaments.IsTournamentComplete(ctx, id)
	require.NoError(t, err)
	assert.False(t, complete)

	assert.Equal(t, []string{live.EventTournamentActive}, ts.notifier.types())
}

func TestActivateFailureLeavesTournamentOpen(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "solo")

	id := ts.openTournament(t, bracket.DoubleElimination, map[string]int{"solo": 5}, "solo")

	_, err := ts.tournaments.ActivateTournament(ctx, id)
	assert.ErrorIs(t, err, bracket.ErrValidation)

	data, err := ts.tournaments.GetTournamentData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bracket.TournamentOpen, data.Tournament.Status)
	assert.Empty(t, data.Matches)
	assert.Nil(t, data.Participants[0].Seed)
	assert.Empty(t, ts.notifier.types())
}

func seededNetids(entrants []bracket.Entrant) []string {
	out := make([]string, len(entrants))
	for i, e := range entrants {
		out[i] = e.Netid
	}
	return out
}
