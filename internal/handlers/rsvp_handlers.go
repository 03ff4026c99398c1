package handlers

import (
	"net/http"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
	"github.com/gamemaster-scheduling/pickup/internal/models"
	"github.com/gamemaster-scheduling/pickup/internal/rsvp"
)

type createRSVPRequest struct {
	UserID *int64 `json:"user_id"`
}

type updateRSVPRequest struct {
	Status string `json:"status"`
}

type deleteRSVPResponse struct {
	Message string       `json:"message"`
	RSVP    *models.RSVP `json:"rsvp"`
}

// ListRSVPs serves GET /games/{id}/rsvps.
func ListRSVPs(engine *rsvp.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		list, err := engine.ListForGame(r.Context(), gameID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, nonNil(list))
	}
}

// SubmitRSVP serves POST /games/{id}/rsvps. The body's user_id defaults to
// the caller; callers may only RSVP for themselves.
func SubmitRSVP(engine *rsvp.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req createRSVPRequest
		if err := decodeJSON(w, r, &req, true); err != nil {
			writeError(w, r, err)
			return
		}
		userID := currentUserID(r)
		if req.UserID != nil && *req.UserID != userID {
			writeError(w, r, apperr.Forbidden("you can only RSVP for yourself"))
			return
		}

		created, err := engine.Create(r.Context(), gameID, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// UpdateRSVP serves PATCH /rsvps/{id}. Only the RSVP's user may change it.
func UpdateRSVP(engine *rsvp.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsvpID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		var req updateRSVPRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			writeError(w, r, err)
			return
		}
		if err := checkRSVPOwner(r, engine, rsvpID); err != nil {
			writeError(w, r, err)
			return
		}

		updated, err := engine.UpdateStatus(r.Context(), rsvpID, req.Status)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// CancelRSVP serves DELETE /rsvps/{id}. Only the RSVP's user may cancel it.
func CancelRSVP(engine *rsvp.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rsvpID, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := checkRSVPOwner(r, engine, rsvpID); err != nil {
			writeError(w, r, err)
			return
		}

		deleted, err := engine.Delete(r.Context(), rsvpID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteRSVPResponse{Message: "RSVP cancelled successfully", RSVP: deleted})
	}
}

// checkRSVPOwner fails unless the caller owns the RSVP. An RSVP's user never
// changes, so the check may run outside the engine's transaction.
func checkRSVPOwner(r *http.Request, engine *rsvp.Engine, rsvpID int64) error {
	existing, err := engine.Get(r.Context(), rsvpID)
	if err != nil {
		return err
	}
	if existing.UserID != currentUserID(r) {
		return apperr.Forbidden("you can only change your own RSVP")
	}
	return nil
}
