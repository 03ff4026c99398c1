// Package rsvp is the only writer of RSVP rows and of a game's
// current_capacity. Every mutation runs as one transaction that holds the
// game's row lock, so current_capacity always equals the number of "going"
// RSVPs, even under concurrent requests.
package rsvp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/models"
)

var tracer = otel.Tracer("github.com/gamemaster-scheduling/pickup/internal/rsvp")

// Engine applies RSVP mutations together with their capacity changes.
type Engine struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now. The clock decides when a game has started.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(db *sqlx.DB, opts ...Option) *Engine {
	e := &Engine{db: db, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Create records userID as going to gameID and takes one seat.
//
// Fails with NotFound when the game or user is missing, InvalidState when the
// game has started, and Conflict when the user organizes the game, already
// has an RSVP, or the game is full.
func (e *Engine) Create(ctx context.Context, gameID, userID int64) (_ *models.RSVP, err error) {
	ctx, span := tracer.Start(ctx, "rsvp.Create", trace.WithAttributes(
		attribute.Int64("game.id", gameID),
		attribute.Int64("user.id", userID),
	))
	defer func() { endSpan(span, err) }()

	var id int64
	err = database.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		game, err := database.LockGame(ctx, tx, gameID)
		if err != nil {
			return notFound(err, "game", gameID)
		}
		if _, err := database.GetUserByID(ctx, tx, userID); err != nil {
			return notFound(err, "user", userID)
		}

		now := e.now()
		if err := checkOpen(game, now); err != nil {
			return err
		}
		if game.OrganizerID == userID {
			return apperr.Conflict("organizers cannot RSVP to their own game")
		}
		if _, err := database.GetRSVPByUserForGame(ctx, tx, userID, gameID); err == nil {
			return apperr.Conflict("user %d already has an RSVP for game %d", userID, gameID)
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("create rsvp: check existing: %w", err)
		}

		took, err := database.IncrementCapacity(ctx, tx, gameID, now)
		if err != nil {
			return fmt.Errorf("create rsvp: take seat: %w", err)
		}
		if !took {
			return apperr.Conflict("game is full")
		}

		id, err = database.CreateRSVP(ctx, tx, &models.RSVP{
			GameID:    gameID,
			UserID:    userID,
			Status:    models.RSVPStatusGoing,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("user %d already has an RSVP for game %d", userID, gameID)
			}
			return fmt.Errorf("create rsvp: insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int64("rsvp.id", id))
	return e.Get(ctx, id)
}

// UpdateStatus moves an RSVP to status, adjusting the game's capacity by the
// going/non-going delta. Setting the current status again changes nothing.
func (e *Engine) UpdateStatus(ctx context.Context, rsvpID int64, status string) (_ *models.RSVP, err error) {
	ctx, span := tracer.Start(ctx, "rsvp.UpdateStatus", trace.WithAttributes(
		attribute.Int64("rsvp.id", rsvpID),
		attribute.String("rsvp.status", status),
	))
	defer func() { endSpan(span, err) }()

	to, ok := models.ParseRSVPStatus(status)
	if !ok {
		return nil, apperr.InvalidInput("invalid status %q: must be one of going, maybe, not_going", status)
	}

	err = database.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		// The game row is locked before the RSVP row so every writer takes
		// the locks in the same order.
		current, err := database.GetRSVPByID(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err, "RSVP", rsvpID)
		}
		game, err := database.LockGame(ctx, tx, current.GameID)
		if err != nil {
			return notFound(err, "game", current.GameID)
		}
		row, err := database.LockRSVP(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err, "RSVP", rsvpID)
		}

		now := e.now()
		if err := checkOpen(game, now); err != nil {
			return err
		}
		if row.Status == to {
			return nil
		}

		switch models.CapacityDelta(row.Status, to) {
		case 1:
			took, err := database.IncrementCapacity(ctx, tx, game.ID, now)
			if err != nil {
				return fmt.Errorf("update rsvp: take seat: %w", err)
			}
			if !took {
				return apperr.Conflict("game is full")
			}
		case -1:
			if err := database.DecrementCapacity(ctx, tx, game.ID, now); err != nil {
				return fmt.Errorf("update rsvp: release seat: %w", err)
			}
		}

		if err := database.UpdateRSVPStatus(ctx, tx, rsvpID, to, now); err != nil {
			return fmt.Errorf("update rsvp: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, rsvpID)
}

// Delete withdraws an RSVP. A "going" RSVP gives its seat back.
// The deleted row is returned so clients can show or undo it.
func (e *Engine) Delete(ctx context.Context, rsvpID int64) (_ *models.RSVP, err error) {
	ctx, span := tracer.Start(ctx, "rsvp.Delete", trace.WithAttributes(attribute.Int64("rsvp.id", rsvpID)))
	defer func() { endSpan(span, err) }()

	var deleted *models.RSVP
	err = database.WithTx(ctx, e.db, func(tx *sqlx.Tx) error {
		current, err := database.GetRSVPByID(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err, "RSVP", rsvpID)
		}
		game, err := database.LockGame(ctx, tx, current.GameID)
		if err != nil {
			return notFound(err, "game", current.GameID)
		}
		row, err := database.LockRSVP(ctx, tx, rsvpID)
		if err != nil {
			return notFound(err, "RSVP", rsvpID)
		}

		now := e.now()
		if err := checkOpen(game, now); err != nil {
			return err
		}

		if err := database.DeleteRSVP(ctx, tx, rsvpID); err != nil {
			return fmt.Errorf("delete rsvp: %w", err)
		}
		if row.Status == models.RSVPStatusGoing {
			if err := database.DecrementCapacity(ctx, tx, game.ID, now); err != nil {
				return fmt.Errorf("delete rsvp: release seat: %w", err)
			}
		}

		current.Status = row.Status
		deleted = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// Get returns an RSVP with its user's display fields.
func (e *Engine) Get(ctx context.Context, rsvpID int64) (*models.RSVP, error) {
	r, err := database.GetRSVPByID(ctx, e.db, rsvpID)
	if err != nil {
		return nil, notFound(err, "RSVP", rsvpID)
	}
	return r, nil
}

// ListForGame returns a game's RSVPs in the order they were made.
func (e *Engine) ListForGame(ctx context.Context, gameID int64) ([]*models.RSVP, error) {
	if _, err := database.GetGameByID(ctx, e.db, gameID); err != nil {
		return nil, notFound(err, "game", gameID)
	}
	rsvps, err := database.GetRSVPsForGame(ctx, e.db, gameID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	return rsvps, nil
}

// checkOpen rejects any RSVP change once the game has started.
func checkOpen(game *models.Game, now time.Time) error {
	if game.HasStarted(now) {
		return apperr.InvalidState("game %d was scheduled for %s and can no longer be changed",
			game.ID, game.ScheduledAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// notFound maps sql.ErrNoRows to a NotFound error and wraps anything else.
func notFound(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s %d not found", what, id)
	}
	return fmt.Errorf("load %s %d: %w", what, id, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) == apperr.KindInternal {
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("error.kind", string(apperr.KindOf(err))))
		}
	}
	span.End()
}
