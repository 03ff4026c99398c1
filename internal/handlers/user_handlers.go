package handlers

import (
	"context"
	"net/http"

	"github.com/gamemaster-scheduling/pickup/internal/games"
)

// GetUser serves GET /users/{id}.
func GetUser(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		user, err := svc.GetUser(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// UserGames serves the per-user game lists (/users/{id}/hosted and friends).
// Unknown users simply have empty lists.
func UserGames[T any](list func(ctx context.Context, userID int64) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		items, err := list(r.Context(), userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(items))
	}
}
