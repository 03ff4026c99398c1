package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gamemaster-scheduling/pickup/internal/models"
)

const gameColumns = `id, organizer_id, title, sport_type, location, scheduled_at, timezone,
	max_capacity, current_capacity, description, created_at, updated_at`

// prefixed game columns for joins
const gameColumnsG = `g.id, g.organizer_id, g.title, g.sport_type, g.location, g.scheduled_at, g.timezone,
	g.max_capacity, g.current_capacity, g.description, g.created_at, g.updated_at`

// CreateGame inserts a new game and returns it as stored. CurrentCapacity always starts at 0.
func CreateGame(ctx context.Context, q sqlx.ExtContext, game *models.Game) (*models.Game, error) {
	var id int64
	err := q.QueryRowxContext(ctx, q.Rebind(`
		INSERT INTO games (organizer_id, title, sport_type, location, scheduled_at, timezone,
			max_capacity, current_capacity, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		RETURNING id
	`),
		game.OrganizerID,
		game.Title,
		game.SportType,
		game.Location,
		Timestamp(game.ScheduledAt),
		game.Timezone,
		game.MaxCapacity,
		game.Description,
		Timestamp(game.CreatedAt),
		Timestamp(game.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	// Retrieve the game to get all fields populated the way they are stored.
	return GetGameByID(ctx, q, id)
}

// GetGameByID retrieves a game by its ID. Returns sql.ErrNoRows if not found.
func GetGameByID(ctx context.Context, q sqlx.ExtContext, id int64) (*models.Game, error) {
	game := &models.Game{}
	err := sqlx.GetContext(ctx, q, game, q.Rebind("SELECT "+gameColumns+" FROM games WHERE id = ?"), id)
	if err != nil {
		return nil, err
	}
	return game, nil
}

// LockGame reads a game inside a transaction, holding its row lock until the
// transaction ends.
func LockGame(ctx context.Context, tx *sqlx.Tx, id int64) (*models.Game, error) {
	game := &models.Game{}
	query := tx.Rebind("SELECT " + gameColumns + " FROM games WHERE id = ?" + forUpdate(tx))
	if err := sqlx.GetContext(ctx, tx, game, query, id); err != nil {
		return nil, err
	}
	return game, nil
}

// UpdateGame writes the editable fields of game. The write only happens while
// the new max_capacity is still >= current_capacity; updated reports whether
// the row was written.
func UpdateGame(ctx context.Context, q sqlx.ExtContext, game *models.Game) (updated bool, err error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE games
		SET title = ?, sport_type = ?, location = ?, scheduled_at = ?, timezone = ?,
			max_capacity = ?, description = ?, updated_at = ?
		WHERE id = ? AND current_capacity <= ?
	`),
		game.Title,
		game.SportType,
		game.Location,
		Timestamp(game.ScheduledAt),
		game.Timezone,
		game.MaxCapacity,
		game.Description,
		Timestamp(game.UpdatedAt),
		game.ID,
		game.MaxCapacity,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteGame removes a game and all of its RSVPs. Run it inside a transaction.
func DeleteGame(ctx context.Context, q sqlx.ExtContext, id int64) error {
	if _, err := q.ExecContext(ctx, q.Rebind("DELETE FROM rsvps WHERE game_id = ?"), id); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, q.Rebind("DELETE FROM games WHERE id = ?"), id)
	return err
}

// IncrementCapacity takes one seat, but only if one is free. It reports
// whether a seat was taken.
func IncrementCapacity(ctx context.Context, q sqlx.ExtContext, gameID int64, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE games
		SET current_capacity = current_capacity + 1, updated_at = ?
		WHERE id = ? AND current_capacity < max_capacity
	`), Timestamp(now), gameID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DecrementCapacity releases one seat, never going below zero.
func DecrementCapacity(ctx context.Context, q sqlx.ExtContext, gameID int64, now time.Time) error {
	_, err := q.ExecContext(ctx, q.Rebind(`
		UPDATE games
		SET current_capacity = CASE WHEN current_capacity > 0 THEN current_capacity - 1 ELSE 0 END,
			updated_at = ?
		WHERE id = ?
	`), Timestamp(now), gameID)
	return err
}

// CountGoingRSVPs counts the RSVPs of a game that hold a seat.
func CountGoingRSVPs(ctx context.Context, q sqlx.ExtContext, gameID int64) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, q, &n, q.Rebind("SELECT COUNT(*) FROM rsvps WHERE game_id = ? AND status = ?"),
		gameID, string(models.RSVPStatusGoing))
	return n, err
}

// ListGames runs a filtered listing. where and orderBy are trusted SQL
// fragments built from a validated filter; every value travels in args.
func ListGames(ctx context.Context, q sqlx.ExtContext, where string, args []any, orderBy string) ([]*models.Game, error) {
	query := "SELECT " + gameColumns + " FROM games"
	if where != "" {
		query += " WHERE " + where
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}

	games := []*models.Game{}
	if err := sqlx.SelectContext(ctx, q, &games, q.Rebind(query), args...); err != nil {
		return nil, err
	}
	return games, nil
}

// GetGamesByOrganizer lists the games a user organizes, either the upcoming
// ones (ascending) or the past ones (most recent first).
func GetGamesByOrganizer(ctx context.Context, q sqlx.ExtContext, organizerID int64, now time.Time, upcoming bool) ([]*models.Game, error) {
	query := "SELECT " + gameColumns + " FROM games WHERE organizer_id = ? AND scheduled_at <= ? ORDER BY scheduled_at DESC, id DESC"
	if upcoming {
		query = "SELECT " + gameColumns + " FROM games WHERE organizer_id = ? AND scheduled_at > ? ORDER BY scheduled_at ASC, id ASC"
	}
	games := []*models.Game{}
	if err := sqlx.SelectContext(ctx, q, &games, q.Rebind(query), organizerID, Timestamp(now)); err != nil {
		return nil, err
	}
	return games, nil
}

// GetGamesByAttendee lists the games a user has an RSVP on, with the RSVP id and status.
func GetGamesByAttendee(ctx context.Context, q sqlx.ExtContext, userID int64, now time.Time, upcoming bool) ([]*models.UserGame, error) {
	cond, order := "g.scheduled_at <= ?", "g.scheduled_at DESC, g.id DESC"
	if upcoming {
		cond, order = "g.scheduled_at > ?", "g.scheduled_at ASC, g.id ASC"
	}
	query := "SELECT " + gameColumnsG + `, r.id AS rsvp_id, r.status AS rsvp_status
		FROM games g
		JOIN rsvps r ON g.id = r.game_id
		WHERE r.user_id = ? AND ` + cond + `
		ORDER BY ` + order

	games := []*models.UserGame{}
	if err := sqlx.SelectContext(ctx, q, &games, q.Rebind(query), userID, Timestamp(now)); err != nil {
		return nil, err
	}
	return games, nil
}
