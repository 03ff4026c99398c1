package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
	"github.com/gamemaster-scheduling/pickup/internal/auth"
	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/models"
)

// AuthMiddleware resolves the caller's identity and stores it in the request
// context. Anonymous requests pass through; invalid credentials are rejected.
// Known callers are mirrored into the users table so that they can organize
// games and RSVP.
func AuthMiddleware(authn auth.Authenticator, db *sqlx.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.Authenticate(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if id == nil {
				next.ServeHTTP(w, r)
				return
			}

			user := &models.User{ID: id.UserID, Name: id.Name, Email: id.Email, CreatedAt: time.Now()}
			if err := database.UpsertUser(r.Context(), db, user); err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()) == nil {
			writeError(w, r, apperr.Unauthenticated("authentication required"))
			return
		}
		next(w, r)
	}
}

// currentUserID returns the authenticated caller. Only call it behind RequireUser.
func currentUserID(r *http.Request) int64 {
	if id := auth.FromContext(r.Context()); id != nil {
		return id.UserID
	}
	return 0
}
