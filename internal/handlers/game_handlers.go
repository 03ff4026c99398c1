package handlers

import (
	"net/http"

	"github.com/gamemaster-scheduling/pickup/internal/games"
	"github.com/gamemaster-scheduling/pickup/internal/models"
)

// deleteGameResponse echoes the removed game.
type deleteGameResponse struct {
	Message string       `json:"message"`
	Game    *models.Game `json:"game"`
}

// ListGames serves GET /games with the optional filter and sort parameters.
func ListGames(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := games.ParseFilter(r.URL.Query())
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := svc.List(r.Context(), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(list))
	}
}

// GetGame serves GET /games/{id}.
func GetGame(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		game, err := svc.Get(r.Context(), gameID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game)
	}
}

// CreateGame serves POST /games. The caller becomes the organizer.
func CreateGame(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in games.GameInput
		if err := decodeJSON(w, r, &in, false); err != nil {
			writeError(w, r, err)
			return
		}
		game, err := svc.Create(r.Context(), currentUserID(r), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, game)
	}
}

// UpdateGame serves PATCH /games/{id}. Only the organizer may edit.
func UpdateGame(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var patch games.GamePatch
		if err := decodeJSON(w, r, &patch, false); err != nil {
			writeError(w, r, err)
			return
		}
		game, err := svc.Update(r.Context(), currentUserID(r), gameID, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, game)
	}
}

// DeleteGame serves DELETE /games/{id}. Only the organizer may delete.
func DeleteGame(svc *games.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		game, err := svc.Delete(r.Context(), currentUserID(r), gameID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteGameResponse{Message: "Game deleted successfully", Game: game})
	}
}

// nonNil makes empty lists encode as [] instead of null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
