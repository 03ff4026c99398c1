package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gamemaster-scheduling/pickup/internal/models"
)

const rsvpJoinedSelect = `
	SELECT r.id, r.game_id, r.user_id, r.status, r.created_at, r.updated_at,
		u.name AS user_name, u.email AS user_email
	FROM rsvps r
	JOIN users u ON r.user_id = u.id
`

// CreateRSVP inserts an RSVP and returns its ID. A second RSVP for the same
// (game, user) pair fails with a unique violation.
func CreateRSVP(ctx context.Context, q sqlx.ExtContext, rsvp *models.RSVP) (int64, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO rsvps (game_id, user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`),
		rsvp.GameID,
		rsvp.UserID,
		string(rsvp.Status),
		Timestamp(rsvp.CreatedAt),
		Timestamp(rsvp.UpdatedAt),
	).Scan(&id)
	return id, err
}

// GetRSVPByID retrieves an RSVP with its user's display fields.
// Returns sql.ErrNoRows if not found.
func GetRSVPByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.RSVP, error) {
	rsvp := &models.RSVP{}
	if err := sqlx.GetContext(ctx, q, rsvp, q.Rebind(rsvpJoinedSelect+"WHERE r.id = ?"), id); err != nil {
		return nil, err
	}
	return rsvp, nil
}

// LockRSVP reads the bare RSVP row inside a transaction and holds its lock.
// Display fields are left empty.
func LockRSVP(ctx context.Context, tx *sqlx.Tx, id int64) (*models.RSVP, error) {
	rsvp := &models.RSVP{}
	query := tx.Rebind(`SELECT id, game_id, user_id, status, created_at, updated_at FROM rsvps WHERE id = ?` + forUpdate(tx))
	if err := sqlx.GetContext(ctx, tx, rsvp, query, id); err != nil {
		return nil, err
	}
	return rsvp, nil
}

// GetRSVPByUserForGame retrieves a specific user's RSVP for a specific game.
func GetRSVPByUserForGame(ctx context.Context, q sqlx.ExtContext, userID int64, gameID int64) (*models.RSVP, error) {
	rsvp := &models.RSVP{}
	err := sqlx.GetContext(ctx, q, rsvp, q.Rebind(rsvpJoinedSelect+"WHERE r.user_id = ? AND r.game_id = ?"), userID, gameID)
	if err != nil {
		return nil, err
	}
	return rsvp, nil
}

// GetRSVPsForGame retrieves all RSVPs for a game in the order they were made.
func GetRSVPsForGame(ctx context.Context, q sqlx.ExtContext, gameID int64) ([]*models.RSVP, error) {
	rsvps := []*models.RSVP{}
	err := sqlx.SelectContext(ctx, q, &rsvps, q.Rebind(rsvpJoinedSelect+"WHERE r.game_id = ? ORDER BY r.created_at ASC, r.id ASC"), gameID)
	if err != nil {
		return nil, err
	}
	return rsvps, nil
}

// UpdateRSVPStatus sets the status of an RSVP.
func UpdateRSVPStatus(ctx context.Context, q sqlx.ExtContext, id int64, status models.RSVPStatus, now time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind("UPDATE rsvps SET status = ?, updated_at = ? WHERE id = ?"),
		string(status), Timestamp(now), id)
	return err
}

// DeleteRSVP removes an RSVP row.
func DeleteRSVP(ctx context.Context, q sqlx.ExtContext, id int64) error {
	_, err := q.ExecContext(ctx, q.Rebind("DELETE FROM rsvps WHERE id = ?"), id)
	return err
}
