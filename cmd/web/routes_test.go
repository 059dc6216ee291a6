package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/config"
	"github.com/AdamBeresnev/charter-pool/internal/db"
	"github.com/AdamBeresnev/charter-pool/internal/live"
	"github.com/AdamBeresnev/charter-pool/internal/rating"
	"github.com/AdamBeresnev/charter-pool/internal/service"
	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	defaults := rating.DefaultConfig()
	cfg := &config.Config{
		DBDriver:            config.DriverSQLite,
		DatabaseURL:         "file::memory:",
		EloKFactor:          defaults.KFactor,
		EloDefaultRating:    defaults.DefaultRating,
		ReportRatePerMinute: 0,
		CORSOrigins:         []string{"http://localhost:8080"},
	}

	database, err := db.InitDB(cfg)
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database, "file://../../migrations"))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := live.NewHub(cfg.CORSOrigins)
	go hub.Run(ctx)

	a := newApp(cfg, database, scs.New(), hub)
	require.NoError(t, a.admins.EnsureDefaultAdmin(ctx, "root", "root-password"))

	server := httptest.NewServer(a.routes())
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, out any) int {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, url, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestTournamentFlowOverHTTP(t *testing.T) {
	server := newTestServer(t)
	url := server.URL

	admin := newClient(t)
	require.Equal(t, http.StatusOK, doJSON(t, admin, http.MethodPost, url+"/auth/admin",
		adminLoginRequest{Username: "root", Password: "root-password"}, nil))

	alice, bob := newClient(t), newClient(t)
	require.Equal(t, http.StatusOK, doJSON(t, alice, http.MethodPost, url+"/auth/login", loginRequest{Netid: "alice"}, nil))
	require.Equal(t, http.StatusOK, doJSON(t, bob, http.MethodPost, url+"/auth/login", loginRequest{Netid: "bob"}, nil))

	// Players cannot create tournaments.
	assert.Equal(t, http.StatusForbidden, doJSON(t, alice, http.MethodPost, url+"/api/admin/tournaments",
		createTournamentRequest{Name: "Cup", Format: "single_elim"}, nil))

	var tournament bracket.Tournament
	require.Equal(t, http.StatusCreated, doJSON(t, admin, http.MethodPost, url+"/api/admin/tournaments",
		createTournamentRequest{Name: "Cup", Format: "single_elim"}, &tournament))

	tURL := url + "/api/tournaments/" + tournament.ID.String()
	require.Equal(t, http.StatusCreated, doJSON(t, alice, http.MethodPost, tURL+"/signup", signupRequest{SelfRating: 8}, nil))
	require.Equal(t, http.StatusCreated, doJSON(t, bob, http.MethodPost, tURL+"/signup", signupRequest{SelfRating: 5}, nil))
	assert.Equal(t, http.StatusConflict, doJSON(t, bob, http.MethodPost, tURL+"/signup", signupRequest{SelfRating: 5}, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, newClientAs(t, url, "carl"), http.MethodPost, tURL+"/signup", signupRequest{SelfRating: 0}, nil))

	var activation bracket.Activation
	require.Equal(t, http.StatusOK, doJSON(t, admin, http.MethodPost, url+"/api/admin/tournaments/"+tournament.ID.String()+"/activate", nil, &activation))
	require.Len(t, activation.Matches, 1)

	matchURL := url + "/api/matches/" + activation.Matches[0].ID.String()
	outsider := newClientAs(t, url, "dave")
	assert.Equal(t, http.StatusForbidden, doJSON(t, outsider, http.MethodPost, matchURL+"/report", reportMatchRequest{Winner: "alice"}, nil))

	var result service.ReportResult
	require.Equal(t, http.StatusOK, doJSON(t, bob, http.MethodPost, matchURL+"/report", reportMatchRequest{Winner: "alice"}, &result))
	assert.True(t, result.TournamentCompleted)
	assert.Equal(t, 16, result.Delta)

	assert.Equal(t, http.StatusConflict, doJSON(t, alice, http.MethodPost, matchURL+"/report", reportMatchRequest{Winner: "bob"}, nil))

	var data service.TournamentData
	require.Equal(t, http.StatusOK, doJSON(t, newClient(t), http.MethodGet, tURL, nil, &data))
	assert.Equal(t, bracket.TournamentCompleted, data.Tournament.Status)

	var stats service.PlayerStats
	require.Equal(t, http.StatusOK, doJSON(t, newClient(t), http.MethodGet, url+"/api/players/alice", nil, &stats))
	assert.Equal(t, 1216, stats.Player.EloRating)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.Rank)

	resp, err := http.Get(url + "/tournaments/" + tournament.ID.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestCasualGamesOverHTTP(t *testing.T) {
	server := newTestServer(t)
	url := server.URL

	ann := newClientAs(t, url, "ann")
	newClientAs(t, url, "ben")
	newClientAs(t, url, "cat")

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, newClient(t), http.MethodPost, url+"/api/games/singles",
		singlesRequest{Player1: "ann", Player2: "ben", Winner: "ann"}, nil))
	assert.Equal(t, http.StatusForbidden, doJSON(t, ann, http.MethodPost, url+"/api/games/singles",
		singlesRequest{Player1: "ben", Player2: "cat", Winner: "cat"}, nil))

	var created gameResponse
	require.Equal(t, http.StatusCreated, doJSON(t, ann, http.MethodPost, url+"/api/games/singles",
		singlesRequest{Player1: "ann", Player2: "ben", Winner: "ann"}, &created))
	require.Len(t, created.Ratings, 2)
	assert.Equal(t, 1216, created.Ratings[0].New)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, ann, http.MethodPost, url+"/api/games/singles",
		singlesRequest{Player1: "ann", Player2: "ann", Winner: "ann"}, nil))

	var history []json.RawMessage
	require.Equal(t, http.StatusOK, doJSON(t, newClient(t), http.MethodGet, url+"/api/players/ben/games", nil, &history))
	assert.Len(t, history, 1)
}

func newClientAs(t *testing.T, url, netid string) *http.Client {
	t.Helper()
	client := newClient(t)
	require.Equal(t, http.StatusOK, doJSON(t, client, http.MethodPost, url+"/auth/login", loginRequest{Netid: netid}, nil))
	return client
}
