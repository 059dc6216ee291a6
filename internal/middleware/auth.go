package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/charter-pool/internal/config"
	"github.com/AdamBeresnev/charter-pool/internal/httputil"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
)

// Session keys.
const (
	SessionNetid   = "netid"
	SessionAdminID = "adminID"
)

type PlayerLookup interface {
	GetPlayer(ctx context.Context, netid string) (*players.Player, error)
}

type AdminLookup interface {
	GetAdmin(ctx context.Context, id uuid.UUID) (*players.Admin, error)
}

// InitAuth registers the Google provider when credentials are configured.
// Netid login works without it.
func InitAuth(cfg *config.Config) {
	if !cfg.GoogleEnabled() {
		slog.Info("Google login disabled, GOOGLE_KEY/GOOGLE_SECRET not set")
		return
	}
	goth.UseProviders(
		google.New(cfg.GoogleKey, cfg.GoogleSecret, cfg.GoogleCallbackURL, "email", "profile"),
	)
}

// LoadAuthenticated puts the signed-in player and admin, if any, into the
// request context. Stale session entries are dropped.
func LoadAuthenticated(sessionManager *scs.SessionManager, playerLookup PlayerLookup, adminLookup AdminLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if netid := sessionManager.GetString(ctx, SessionNetid); netid != "" {
				player, err := playerLookup.GetPlayer(ctx, netid)
				if err != nil || player.Archived {
					sessionManager.Remove(ctx, SessionNetid)
				} else {
					ctx = withPlayer(ctx, player)
				}
			}

			if idStr := sessionManager.GetString(ctx, SessionAdminID); idStr != "" {
				id, err := uuid.Parse(idStr)
				var admin *players.Admin
				if err == nil {
					admin, err = adminLookup.GetAdmin(ctx, id)
				}
				if err != nil {
					sessionManager.Remove(ctx, SessionAdminID)
				} else {
					ctx = withAdmin(ctx, admin)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedPlayer(r.Context()) == nil {
			httputil.Unauthorized(w, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedAdmin(r.Context()) == nil {
			httputil.Forbidden(w, "admin login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePlayerOrAdmin lets admins act on endpoints that players normally use.
func RequirePlayerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthenticatedPlayer(r.Context()) == nil && GetAuthenticatedAdmin(r.Context()) == nil {
			httputil.Unauthorized(w, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withPlayer(ctx context.Context, player *players.Player) context.Context {
	return context.WithValue(ctx, players.PlayerKey, player)
}

func withAdmin(ctx context.Context, admin *players.Admin) context.Context {
	return context.WithValue(ctx, players.AdminKey, admin)
}

func GetAuthenticatedPlayer(ctx context.Context) *players.Player {
	player, ok := ctx.Value(players.PlayerKey).(*players.Player)
	if !ok {
		return nil
	}
	return player
}

func GetAuthenticatedAdmin(ctx context.Context) *players.Admin {
	admin, ok := ctx.Value(players.AdminKey).(*players.Admin)
	if !ok {
		return nil
	}
	return admin
}
