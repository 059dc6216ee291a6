package main

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/AdamBeresnev/charter-pool/internal/bracket"
	"github.com/AdamBeresnev/charter-pool/internal/game"
	"github.com/AdamBeresnev/charter-pool/internal/httputil"
	"github.com/AdamBeresnev/charter-pool/internal/middleware"
	players "github.com/AdamBeresnev/charter-pool/internal/player"
	"github.com/AdamBeresnev/charter-pool/internal/service"
	"github.com/AdamBeresnev/charter-pool/views"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"
)

func (a *app) leaderboardPage(w http.ResponseWriter, r *http.Request) {
	board, err := a.players.Leaderboard(r.Context(), 0)
	if err != nil {
		httputil.InternalServerError(w, "Failed to load leaderboard", err)
		return
	}
	if err := views.Render(w, r, views.LeaderboardPage(board)); err != nil {
		httputil.InternalServerError(w, "Failed to render leaderboard", err)
	}
}

func (a *app) bracketPage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	data, err := a.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get tournament", err)
		return
	}
	if err := views.Render(w, r, views.BracketPage(data, a.hub.Viewers(id))); err != nil {
		httputil.InternalServerError(w, "Failed to render bracket", err)
	}
}

// Auth

type loginRequest struct {
	Netid string `json:"netid"`
}

func (a *app) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	player, err := a.players.Login(r.Context(), req.Netid)
	if err != nil {
		httputil.Error(w, "Failed to log in", err)
		return
	}
	a.startPlayerSession(w, r, player)
}

func (a *app) startPlayerSession(w http.ResponseWriter, r *http.Request, player *players.Player) {
	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionNetid, player.Netid)
	httputil.WriteJSON(w, http.StatusOK, player)
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessionManager.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *app) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	admin, err := a.admins.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.Error(w, "Admin login failed", err)
		return
	}
	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionAdminID, admin.ID.String())
	httputil.WriteJSON(w, http.StatusOK, admin)
}

func (a *app) beginProviderAuth(w http.ResponseWriter, r *http.Request) {
	if !a.cfg.GoogleEnabled() {
		httputil.NotFound(w, "External login is not configured", nil)
		return
	}
	gothic.BeginAuthHandler(w, gothic.GetContextWithProvider(r, chi.URLParam(r, "provider")))
}

func (a *app) completeProviderAuth(w http.ResponseWriter, r *http.Request) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}

	player, err := a.players.FindOrCreateByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.Error(w, "Failed to find or create player", err)
		return
	}
	if err := a.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	a.sessionManager.Put(r.Context(), middleware.SessionNetid, player.Netid)

	http.Redirect(w, r, "/", http.StatusFound)
}

type meResponse struct {
	Player *players.Player `json:"player,omitempty"`
	Admin  *players.Admin  `json:"admin,omitempty"`
}

func (a *app) me(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, meResponse{
		Player: middleware.GetAuthenticatedPlayer(r.Context()),
		Admin:  middleware.GetAuthenticatedAdmin(r.Context()),
	})
}

type profileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *app) completeProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	player := middleware.GetAuthenticatedPlayer(r.Context())
	updated, err := a.players.CompleteProfile(r.Context(), player.Netid, req.FirstName, req.LastName)
	if err != nil {
		httputil.Error(w, "Failed to update profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// Players and games

func (a *app) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.players.Leaderboard(r.Context(), intQuery(r, "limit"))
	if err != nil {
		httputil.InternalServerError(w, "Failed to load leaderboard", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, board)
}

func (a *app) searchPlayers(w http.ResponseWriter, r *http.Request) {
	found, err := a.players.Search(r.Context(), r.URL.Query().Get("q"), intQuery(r, "limit"))
	if err != nil {
		httputil.InternalServerError(w, "Failed to search players", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, found)
}

func (a *app) playerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.players.Stats(r.Context(), chi.URLParam(r, "netid"))
	if err != nil {
		httputil.Error(w, "Failed to load player stats", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (a *app) playerGames(w http.ResponseWriter, r *http.Request) {
	history, err := a.games.History(r.Context(), chi.URLParam(r, "netid"), intQuery(r, "limit"))
	if err != nil {
		httputil.InternalServerError(w, "Failed to load game history", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, history)
}

func (a *app) recentGames(w http.ResponseWriter, r *http.Request) {
	recent, err := a.games.Recent(r.Context(), intQuery(r, "limit"))
	if err != nil {
		httputil.InternalServerError(w, "Failed to load games", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recent)
}

type singlesRequest struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Winner  string `json:"winner"`
}

type gameResponse struct {
	Game    *game.Game             `json:"game"`
	Ratings []service.RatingChange `json:"ratings"`
}

func (a *app) reportSingles(w http.ResponseWriter, r *http.Request) {
	var req singlesRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if !canReportGame(r, req.Player1, req.Player2) {
		httputil.Forbidden(w, "you can only report games you played in")
		return
	}

	g, changes, err := a.games.ReportSingles(r.Context(), req.Player1, req.Player2, req.Winner)
	if err != nil {
		httputil.Error(w, "Failed to report game", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, gameResponse{Game: g, Ratings: changes})
}

type doublesRequest struct {
	Team1       [2]string `json:"team1"`
	Team2       [2]string `json:"team2"`
	WinningTeam int       `json:"winning_team"`
}

func (a *app) reportDoubles(w http.ResponseWriter, r *http.Request) {
	var req doublesRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if !canReportGame(r, req.Team1[0], req.Team1[1], req.Team2[0], req.Team2[1]) {
		httputil.Forbidden(w, "you can only report games you played in")
		return
	}

	g, changes, err := a.games.ReportDoubles(r.Context(), req.Team1, req.Team2, req.WinningTeam)
	if err != nil {
		httputil.Error(w, "Failed to report game", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, gameResponse{Game: g, Ratings: changes})
}

func (a *app) deleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := a.games.DeleteGame(r.Context(), id); err != nil {
		httputil.Error(w, "Failed to delete game", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tournaments

func (a *app) listTournaments(w http.ResponseWriter, r *http.Request) {
	status := bracket.TournamentStatus(r.URL.Query().Get("status"))
	tournaments, err := a.tournaments.ListTournaments(r.Context(), status)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (a *app) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	data, err := a.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, data)
}

type createTournamentRequest struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

func (a *app) createTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	admin := middleware.GetAuthenticatedAdmin(r.Context())
	tournament, err := a.tournaments.CreateTournament(r.Context(), req.Name, req.Format, &admin.ID)
	if err != nil {
		httputil.Error(w, "Failed to create tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tournament)
}

type signupRequest struct {
	SelfRating int `json:"self_rating"`
}

func (a *app) signup(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req signupRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	player := middleware.GetAuthenticatedPlayer(r.Context())
	if err := a.tournaments.Signup(r.Context(), id, player.Netid, req.SelfRating); err != nil {
		httputil.Error(w, "Failed to sign up", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *app) withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	player := middleware.GetAuthenticatedPlayer(r.Context())
	if err := a.tournaments.Withdraw(r.Context(), id, player.Netid); err != nil {
		httputil.Error(w, "Failed to withdraw", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) activateTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	activation, err := a.tournaments.ActivateTournament(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to activate tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, activation)
}

func (a *app) tournamentUpdates(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	a.hub.ServeWS(w, r, id)
}

// Matches

func (a *app) getMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	match, err := a.matches.GetMatch(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, match)
}

type reportMatchRequest struct {
	Winner string `json:"winner"`
}

func (a *app) reportMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req reportMatchRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	result, err := a.matches.ReportMatchResult(r.Context(), id, req.Winner, reporter(r))
	if err != nil {
		httputil.Error(w, "Failed to report match", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// Admin

func (a *app) listPlayers(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("archived"))
	list, err := a.players.ListPlayers(r.Context(), includeArchived)
	if err != nil {
		httputil.InternalServerError(w, "Failed to list players", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

type addPlayerRequest struct {
	Netid     string `json:"netid"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (a *app) addPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	player, err := a.players.AddPlayer(r.Context(), req.Netid, req.FirstName, req.LastName)
	if err != nil {
		httputil.Error(w, "Failed to add player", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, player)
}

func (a *app) archivePlayer(w http.ResponseWriter, r *http.Request) {
	if err := a.players.Archive(r.Context(), chi.URLParam(r, "netid")); err != nil {
		httputil.Error(w, "Failed to archive player", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) unarchivePlayer(w http.ResponseWriter, r *http.Request) {
	if err := a.players.Unarchive(r.Context(), chi.URLParam(r, "netid")); err != nil {
		httputil.Error(w, "Failed to unarchive player", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) deletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := a.players.DeletePlayer(r.Context(), chi.URLParam(r, "netid")); err != nil {
		httputil.Error(w, "Failed to delete player", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) createAdmin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	admin, err := a.admins.CreateAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.Error(w, "Failed to create admin", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, admin)
}

type changePasswordRequest struct {
	Current string `json:"current_password"`
	New     string `json:"new_password"`
}

func (a *app) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	admin := middleware.GetAuthenticatedAdmin(r.Context())
	if err := a.admins.ChangePassword(r.Context(), admin.ID, req.Current, req.New); err != nil {
		httputil.Error(w, "Failed to change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// helpers

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func reporter(r *http.Request) service.Reporter {
	rep := service.Reporter{IsAdmin: middleware.GetAuthenticatedAdmin(r.Context()) != nil}
	if player := middleware.GetAuthenticatedPlayer(r.Context()); player != nil {
		rep.Netid = player.Netid
	}
	return rep
}

// canReportGame allows admins anything and players only games they are in.
func canReportGame(r *http.Request, netids ...string) bool {
	rep := reporter(r)
	if rep.IsAdmin {
		return true
	}
	normalized := make([]string, 0, len(netids))
	for _, n := range netids {
		if netid, err := players.NormalizeNetid(n); err == nil {
			normalized = append(normalized, netid)
		}
	}
	return rep.Netid != "" && slices.Contains(normalized, rep.Netid)
}
