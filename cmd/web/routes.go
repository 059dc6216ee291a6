package main

import (
	"net/http"

	"github.com/AdamBeresnev/charter-pool/internal/config"
	"github.com/AdamBeresnev/charter-pool/internal/live"
	"github.com/AdamBeresnev/charter-pool/internal/middleware"
	"github.com/AdamBeresnev/charter-pool/internal/service"
	"github.com/AdamBeresnev/charter-pool/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
)

type app struct {
	cfg            *config.Config
	sessionManager *scs.SessionManager
	hub            *live.Hub
	limiter        *middleware.RateLimiter

	tournaments *service.TournamentService
	matches     *service.MatchService
	games       *service.GameService
	players     *service.PlayerService
	admins      *service.AdminService
}

func newApp(cfg *config.Config, database *sqlx.DB, sessionManager *scs.SessionManager, hub *live.Hub) *app {
	tournamentStore := store.NewTournamentStore(database)
	playerStore := store.NewPlayerStore(database)
	gameStore := store.NewGameStore(database)
	locks := service.NewLocks()
	ratingCfg := cfg.Rating()

	return &app{
		cfg:            cfg,
		sessionManager: sessionManager,
		hub:            hub,
		limiter:        middleware.NewRateLimiter(cfg.ReportRatePerMinute),

		tournaments: service.NewTournamentService(database, tournamentStore, playerStore, locks, hub),
		matches:     service.NewMatchService(database, tournamentStore, playerStore, gameStore, ratingCfg, locks, hub),
		games:       service.NewGameService(database, gameStore, playerStore, ratingCfg, locks),
		players:     service.NewPlayerService(database, playerStore, gameStore, ratingCfg),
		admins:      service.NewAdminService(store.NewAdminStore(database)),
	}
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(a.sessionManager.LoadAndSave)
	r.Use(middleware.LoadAuthenticated(a.sessionManager, a.players, a.admins))

	// HTML pages
	r.Get("/", a.leaderboardPage)
	r.Get("/tournaments/{id}", a.bracketPage)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", a.login)
		r.Post("/logout", a.logout)
		r.Post("/admin", a.adminLogin)
		r.Get("/{provider}", a.beginProviderAuth)
		r.Get("/{provider}/callback", a.completeProviderAuth)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/me", a.me)
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/players/search", a.searchPlayers)
		r.Get("/players/{netid}", a.playerStats)
		r.Get("/players/{netid}/games", a.playerGames)
		r.Get("/games", a.recentGames)
		r.Get("/tournaments", a.listTournaments)
		r.Get("/tournaments/{id}", a.getTournament)
		r.Get("/tournaments/{id}/ws", a.tournamentUpdates)
		r.Get("/matches/{id}", a.getMatch)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePlayer)

			r.Put("/me/profile", a.completeProfile)
			r.Post("/tournaments/{id}/signup", a.signup)
			r.Delete("/tournaments/{id}/signup", a.withdraw)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePlayerOrAdmin)
			r.Use(a.limiter.Limit)

			r.Post("/games/singles", a.reportSingles)
			r.Post("/games/doubles", a.reportDoubles)
			r.Post("/matches/{id}/report", a.reportMatch)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/tournaments", a.createTournament)
			r.Post("/tournaments/{id}/activate", a.activateTournament)
			r.Delete("/games/{id}", a.deleteGame)

			r.Get("/players", a.listPlayers)
			r.Post("/players", a.addPlayer)
			r.Post("/players/{netid}/archive", a.archivePlayer)
			r.Post("/players/{netid}/unarchive", a.unarchivePlayer)
			r.Delete("/players/{netid}", a.deletePlayer)

			r.Post("/admins", a.createAdmin)
			r.Put("/password", a.changePassword)
		})
	})

	return r
}
