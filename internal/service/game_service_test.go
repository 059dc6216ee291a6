package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/game"
	"github.com/AdamBeresnev/charter-pool/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSingles(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "ann", "ben")

	g, changes, err := ts.games.ReportSingles(ctx, "ANN", "ben", "ben")
	require.NoError(t, err)

	assert.Equal(t, game.Singles, g.Type)
	assert.Equal(t, "ann", g.Player1)
	assert.Equal(t, "ben", utils.OrZero(g.Winner))
	assert.Equal(t, 16, g.EloChange)
	assert.Nil(t, g.TournamentID)
	assert.Equal(t, []RatingChange{
		{Netid: "ben", Old: 1200, New: 1216},
		{Netid: "ann", Old: 1200, New: 1184},
	}, changes)

	assert.Equal(t, 1216, ts.rating(t, "ben"))
	assert.Equal(t, 1184, ts.rating(t, "ann"))

	history, err := ts.games.History(ctx, "ann", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, g.ID, history[0].ID)
}

func TestReportSinglesValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "ann", "ben", "old")
	require.NoError(t, ts.players.Archive(ctx, "old"))

	testCases := []struct {
		name    string
		p1, p2  string
		winner  string
		wantErr error
	}{
		{name: "Same player twice", p1: "ann", p2: "ANN", winner: "ann", wantErr: bracket.ErrValidation},
		{name: "Winner not playing", p1: "ann", p2: "ben", winner: "cat", wantErr: bracket.ErrValidation},
		{name: "Empty netid", p1: "", p2: "ben", winner: "ben", wantErr: bracket.ErrValidation},
		{name: "Unknown player", p1: "ann", p2: "ghost", winner: "ann", wantErr: ErrNotFound},
		{name: "Archived player", p1: "ann", p2: "old", winner: "ann", wantErr: ErrPlayerArchived},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ts.games.ReportSingles(ctx, tc.p1, tc.p2, tc.winner)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	assert.Equal(t, 1200, ts.rating(t, "ann"))
	recent, err := ts.games.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestReportDoubles(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "a", "b", "c", "d")

	g, changes, err := ts.games.ReportDoubles(ctx, [2]string{"a", "b"}, [2]string{"c", "d"}, 2)
	require.NoError(t, err)

	assert.Equal(t, game.Doubles, g.Type)
	assert.Equal(t, 2, utils.OrZero(g.WinningTeam))
	assert.Equal(t, 16, g.EloChange)
	assert.ElementsMatch(t, []string{"c", "d"}, g.Winners())
	assert.ElementsMatch(t, []string{"a", "b"}, g.Losers())
	require.Len(t, changes, 4)

	for netid, want := range map[string]int{"a": 1184, "b": 1184, "c": 1216, "d": 1216} {
		assert.Equal(t, want, ts.rating(t, netid), netid)
	}

	_, _, err = ts.games.ReportDoubles(ctx, [2]string{"a", "b"}, [2]string{"c", "d"}, 3)
	assert.ErrorIs(t, err, bracket.ErrValidation)

	_, _, err = ts.games.ReportDoubles(ctx, [2]string{"a", "b"}, [2]string{"b", "d"}, 1)
	assert.ErrorIs(t, err, bracket.ErrValidation)
}

func TestDeleteGameRevertsRatings(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "a", "b", "c", "d")

	_, _, err := ts.games.ReportSingles(ctx, "a", "b", "a")
	require.NoError(t, err)
	doubles, _, err := ts.games.ReportDoubles(ctx, [2]string{"a", "c"}, [2]string{"b", "d"}, 2)
	require.NoError(t, err)

	before := map[string]int{}
	for _, netid := range []string{"a", "b", "c", "d"} {
		before[netid] = ts.rating(t, netid)
	}

	require.NoError(t, ts.games.DeleteGame(ctx, doubles.ID))

	delta := doubles.EloChange
	assert.Equal(t, before["a"]+delta, ts.rating(t, "a"))
	assert.Equal(t, before["c"]+delta, ts.rating(t, "c"))
	assert.Equal(t, before["b"]-delta, ts.rating(t, "b"))
	assert.Equal(t, before["d"]-delta, ts.rating(t, "d"))

	assert.ErrorIs(t, ts.games.DeleteGame(ctx, doubles.ID), ErrNotFound)
	assert.ErrorIs(t, ts.games.DeleteGame(ctx, uuid.New()), ErrNotFound)

	recent, err := ts.games.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestDeleteTournamentGameRejected(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	ts.addPlayers(t, "a", "b")

	id := ts.openTournament(t, bracket.SingleElimination, map[string]int{"a": 5, "b": 5}, "a", "b")
	activation, err := ts.tournaments.ActivateTournament(ctx, id)
	require.NoError(t, err)

	result, err := ts.matches.ReportMatchResult(ctx, activation.Matches[0].ID, "a", admin())
	require.NoError(t, err)

	err = ts.games.DeleteGame(ctx, result.GameID)
	assert.ErrorIs(t, err, ErrTournamentGame)
	assert.True(t, IsConflict(err))
	assert.Equal(t, 1216, ts.rating(t, "a"))
}
