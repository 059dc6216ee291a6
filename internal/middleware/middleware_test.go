package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayers map[string]*players.Player

func (f fakePlayers) GetPlayer(_ context.Context, netid string) (*players.Player, error) {
	if p, ok := f[netid]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type fakeAdmins map[uuid.UUID]*players.Admin

func (f fakeAdmins) GetAdmin(_ context.Context, id uuid.UUID) (*players.Admin, error) {
	if a, ok := f[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func TestLoadAuthenticated(t *testing.T) {
	adminID := uuid.New()
	lookupPlayers := fakePlayers{
		"ann": {Netid: "ann", EloRating: 1200},
		"old": {Netid: "old", EloRating: 1200, Archived: true},
	}
	lookupAdmins := fakeAdmins{adminID: {ID: adminID, Username: "root"}}

	testCases := []struct {
		name       string
		session    map[string]string
		wantPlayer string
		wantAdmin  bool
	}{
		{name: "Anonymous", session: map[string]string{}},
		{name: "Player", session: map[string]string{SessionNetid: "ann"}, wantPlayer: "ann"},
		{name: "Archived player dropped", session: map[string]string{SessionNetid: "old"}},
		{name: "Unknown player dropped", session: map[string]string{SessionNetid: "ghost"}},
		{name: "Admin", session: map[string]string{SessionAdminID: adminID.String()}, wantAdmin: true},
		{name: "Bad admin id dropped", session: map[string]string{SessionAdminID: "nope"}},
		{name: "Player and admin", session: map[string]string{SessionNetid: "ann", SessionAdminID: adminID.String()}, wantPlayer: "ann", wantAdmin: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var player *players.Player
			var admin *players.Admin

			sm := scs.New()
			handler := LoadAuthenticated(sm, lookupPlayers, lookupAdmins)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				player = GetAuthenticatedPlayer(r.Context())
				admin = GetAuthenticatedAdmin(r.Context())
			}))

			seed := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.session {
					sm.Put(r.Context(), k, v)
				}
			}))
			rec := httptest.NewRecorder()
			seed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, c := range rec.Result().Cookies() {
				req.AddCookie(c)
			}
			sm.LoadAndSave(handler).ServeHTTP(httptest.NewRecorder(), req)

			if tc.wantPlayer == "" {
				assert.Nil(t, player)
			} else {
				require.NotNil(t, player)
				assert.Equal(t, tc.wantPlayer, player.Netid)
			}
			assert.Equal(t, tc.wantAdmin, admin != nil)
		})
	}
}

func TestRequireGuards(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	player := &players.Player{Netid: "ann"}
	admin := &players.Admin{ID: uuid.New(), Username: "root"}

	testCases := []struct {
		name   string
		guard  func(http.Handler) http.Handler
		ctx    func(context.Context) context.Context
		status int
	}{
		{name: "Player guard anonymous", guard: RequirePlayer, ctx: nil, status: http.StatusUnauthorized},
		{name: "Player guard player", guard: RequirePlayer, ctx: func(c context.Context) context.Context { return withPlayer(c, player) }, status: http.StatusNoContent},
		{name: "Admin guard player", guard: RequireAdmin, ctx: func(c context.Context) context.Context { return withPlayer(c, player) }, status: http.StatusForbidden},
		{name: "Admin guard admin", guard: RequireAdmin, ctx: func(c context.Context) context.Context { return withAdmin(c, admin) }, status: http.StatusNoContent},
		{name: "Either guard admin", guard: RequirePlayerOrAdmin, ctx: func(c context.Context) context.Context { return withAdmin(c, admin) }, status: http.StatusNoContent},
		{name: "Either guard anonymous", guard: RequirePlayerOrAdmin, ctx: nil, status: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.ctx != nil {
				req = req.WithContext(tc.ctx(req.Context()))
			}
			rec := httptest.NewRecorder()
			tc.guard(ok).ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	handler := rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(p *players.Player) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(withPlayer(req.Context(), p))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	ann := &players.Player{Netid: "ann"}
	ben := &players.Player{Netid: "ben"}

	assert.Equal(t, http.StatusOK, call(ann))
	assert.Equal(t, http.StatusOK, call(ann))
	assert.Equal(t, http.StatusTooManyRequests, call(ann))
	assert.Equal(t, http.StatusOK, call(ben), "buckets are per player")

	unlimited := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.Allow("anyone"))
	}
}
