package handlers

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/gamemaster-scheduling/pickup/internal/auth"
	"github.com/gamemaster-scheduling/pickup/internal/games"
	"github.com/gamemaster-scheduling/pickup/internal/rsvp"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	DB    *sqlx.DB
	Games *games.Service
	RSVPs *rsvp.Engine
	Authn auth.Authenticator
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", Healthz(d.DB))

	// Games
	mux.HandleFunc("GET /games", ListGames(d.Games))
	mux.HandleFunc("POST /games", RequireUser(CreateGame(d.Games)))
	mux.HandleFunc("GET /games/{id}", GetGame(d.Games))
	mux.HandleFunc("PATCH /games/{id}", RequireUser(UpdateGame(d.Games)))
	mux.HandleFunc("DELETE /games/{id}", RequireUser(DeleteGame(d.Games)))

	// RSVPs
	mux.HandleFunc("GET /games/{id}/rsvps", ListRSVPs(d.RSVPs))
	mux.HandleFunc("POST /games/{id}/rsvps", RequireUser(SubmitRSVP(d.RSVPs)))
	mux.HandleFunc("PATCH /rsvps/{id}", RequireUser(UpdateRSVP(d.RSVPs)))
	mux.HandleFunc("DELETE /rsvps/{id}", RequireUser(CancelRSVP(d.RSVPs)))

	// Users
	mux.HandleFunc("GET /users/{id}", GetUser(d.Games))
	mux.HandleFunc("GET /users/{id}/hosted", UserGames(d.Games.Hosted))
	mux.HandleFunc("GET /users/{id}/rsvps", UserGames(d.Games.Attending))
	mux.HandleFunc("GET /users/{id}/past", UserGames(d.Games.Past))
	mux.HandleFunc("GET /users/{id}/past-hosted", UserGames(d.Games.PastHosted))

	var h http.Handler = mux
	h = AuthMiddleware(d.Authn, d.DB)(h)
	h = RecoverMiddleware(h)
	h = LoggingMiddleware(h)
	h = RequestIDMiddleware(h)
	return h
}

// Healthz reports whether the database answers.
func Healthz(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
