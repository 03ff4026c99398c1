// Package games is the game store: it creates, edits and deletes games, keeps
// max_capacity consistent with the seats already taken, and serves the
// read-only listings.
package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/models"
)

var tracer = otel.Tracer("github.com/gamemaster-scheduling/pickup/internal/games")

// GameInput holds the fields of a new game.
type GameInput struct {
	Title       string  `json:"title"`
	SportType   string  `json:"sport_type"`
	Location    string  `json:"location"`
	ScheduledAt string  `json:"scheduled_at"`
	Timezone    string  `json:"timezone"`
	MaxCapacity int     `json:"max_capacity"`
	Description *string `json:"description"`
}

// GamePatch holds a partial update. Nil fields are left unchanged; an empty
// description clears it. current_capacity is not editable.
type GamePatch struct {
	Title       *string `json:"title"`
	SportType   *string `json:"sport_type"`
	Location    *string `json:"location"`
	ScheduledAt *string `json:"scheduled_at"`
	Timezone    *string `json:"timezone"`
	MaxCapacity *int    `json:"max_capacity"`
	Description *string `json:"description"`
}

func (p GamePatch) empty() bool {
	return p.Title == nil && p.SportType == nil && p.Location == nil && p.ScheduledAt == nil &&
		p.Timezone == nil && p.MaxCapacity == nil && p.Description == nil
}

// Service implements the game store on top of the database package.
type Service struct {
	db  *sqlx.DB
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *sqlx.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates input and stores a new game organized by organizerID.
func (s *Service) Create(ctx context.Context, organizerID int64, in GameInput) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "games.Create", trace.WithAttributes(attribute.Int64("organizer.id", organizerID)))
	defer span.End()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", in.Title},
		{"sport_type", in.SportType},
		{"location", in.Location},
		{"scheduled_at", in.ScheduledAt},
		{"timezone", in.Timezone},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.InvalidInput("missing required fields: %s", strings.Join(missing, ", "))
	}
	if in.MaxCapacity < models.MinCapacity {
		return nil, apperr.InvalidInput("max_capacity must be at least %d", models.MinCapacity)
	}

	loc, err := LoadTimezone(in.Timezone)
	if err != nil {
		return nil, err
	}
	at, err := ParseScheduledAt(in.ScheduledAt, loc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !database.Timestamp(at).After(now) {
		return nil, apperr.InvalidInput("scheduled_at must be in the future")
	}

	if _, err := database.GetUserByID(ctx, s.db, organizerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user %d not found", organizerID)
		}
		return nil, fmt.Errorf("create game: load organizer: %w", err)
	}

	game, err := database.CreateGame(ctx, s.db, &models.Game{
		OrganizerID: organizerID,
		Title:       strings.TrimSpace(in.Title),
		SportType:   strings.TrimSpace(in.SportType),
		Location:    strings.TrimSpace(in.Location),
		ScheduledAt: at,
		Timezone:    loc.String(),
		MaxCapacity: in.MaxCapacity,
		Description: normalizeDescription(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	span.SetAttributes(attribute.Int64("game.id", game.ID))
	return game, nil
}

// Get returns a game by id.
func (s *Service) Get(ctx context.Context, gameID int64) (*models.Game, error) {
	game, err := database.GetGameByID(ctx, s.db, gameID)
	if err != nil {
		return nil, gameErr(err, gameID, "get game")
	}
	return game, nil
}

// Update applies a partial edit. Only the organizer may edit, and max_capacity
// may never drop below the number of players already going.
func (s *Service) Update(ctx context.Context, actorID, gameID int64, patch GamePatch) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "games.Update", trace.WithAttributes(attribute.Int64("game.id", gameID)))
	defer span.End()

	if patch.empty() {
		return nil, apperr.InvalidInput("no fields to update")
	}

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		game, err := database.LockGame(ctx, tx, gameID)
		if err != nil {
			return gameErr(err, gameID, "update game")
		}
		if game.OrganizerID != actorID {
			return apperr.Forbidden("only the organizer can edit this game")
		}
		if err := s.applyPatch(game, patch); err != nil {
			return err
		}

		updated, err := database.UpdateGame(ctx, tx, game)
		if err != nil {
			if database.IsCheckViolation(err) {
				return apperr.Conflict("max_capacity %d is below the %d players already going", game.MaxCapacity, game.CurrentCapacity)
			}
			return fmt.Errorf("update game: %w", err)
		}
		if !updated {
			return apperr.Conflict("max_capacity %d is below the %d players already going", game.MaxCapacity, game.CurrentCapacity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, gameID)
}

func (s *Service) applyPatch(game *models.Game, patch GamePatch) error {
	for _, f := range []struct {
		name  string
		value *string
		dst   *string
	}{
		{"title", patch.Title, &game.Title},
		{"sport_type", patch.SportType, &game.SportType},
		{"location", patch.Location, &game.Location},
	} {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return apperr.InvalidInput("%s cannot be empty", f.name)
		}
		*f.dst = v
	}

	loc, err := LoadTimezone(game.Timezone)
	if patch.Timezone != nil {
		if loc, err = LoadTimezone(*patch.Timezone); err != nil {
			return err
		}
		game.Timezone = loc.String()
	}
	if patch.ScheduledAt != nil {
		now := s.now()
		if game.HasStarted(now) {
			return apperr.InvalidState("game already started at %s; its time can no longer change",
				game.ScheduledAt.UTC().Format(time.RFC3339))
		}
		if err != nil {
			// the stored label is not loadable; wall-clock values fall back to UTC
			loc = time.UTC
		}
		at, err := ParseScheduledAt(*patch.ScheduledAt, loc)
		if err != nil {
			return err
		}
		if !database.Timestamp(at).After(now) {
			return apperr.InvalidInput("scheduled_at must be in the future")
		}
		game.ScheduledAt = at
	}

	if patch.MaxCapacity != nil {
		if *patch.MaxCapacity < models.MinCapacity {
			return apperr.InvalidInput("max_capacity must be at least %d", models.MinCapacity)
		}
		if *patch.MaxCapacity < game.CurrentCapacity {
			return apperr.Conflict("max_capacity %d is below the %d players already going", *patch.MaxCapacity, game.CurrentCapacity)
		}
		game.MaxCapacity = *patch.MaxCapacity
	}
	if patch.Description != nil {
		game.Description = normalizeDescription(patch.Description)
	}
	game.UpdatedAt = s.now()
	return nil
}

// Delete removes a game and its RSVPs. Only the organizer may delete.
func (s *Service) Delete(ctx context.Context, actorID, gameID int64) (*models.Game, error) {
	ctx, span := tracer.Start(ctx, "games.Delete", trace.WithAttributes(attribute.Int64("game.id", gameID)))
	defer span.End()

	var deleted *models.Game
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		game, err := database.LockGame(ctx, tx, gameID)
		if err != nil {
			return gameErr(err, gameID, "delete game")
		}
		if game.OrganizerID != actorID {
			return apperr.Forbidden("only the organizer can delete this game")
		}
		if err := database.DeleteGame(ctx, tx, gameID); err != nil {
			return fmt.Errorf("delete game: %w", err)
		}
		deleted = game
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// List returns the games matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]*models.Game, error) {
	where, args, orderBy := f.Query(database.Timestamp)
	games, err := database.ListGames(ctx, s.db, where, args, orderBy)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// GetUser returns the mirrored identity of a user.
func (s *Service) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := database.GetUserByID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user %d not found", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// Hosted lists the upcoming games a user organizes.
func (s *Service) Hosted(ctx context.Context, userID int64) ([]*models.Game, error) {
	return s.byOrganizer(ctx, userID, true)
}

// PastHosted lists the games a user organized that have already started.
func (s *Service) PastHosted(ctx context.Context, userID int64) ([]*models.Game, error) {
	return s.byOrganizer(ctx, userID, false)
}

// Attending lists the upcoming games a user has an RSVP on.
func (s *Service) Attending(ctx context.Context, userID int64) ([]*models.UserGame, error) {
	return s.byAttendee(ctx, userID, true)
}

// Past lists the started games a user had an RSVP on.
func (s *Service) Past(ctx context.Context, userID int64) ([]*models.UserGame, error) {
	return s.byAttendee(ctx, userID, false)
}

func (s *Service) byOrganizer(ctx context.Context, userID int64, upcoming bool) ([]*models.Game, error) {
	games, err := database.GetGamesByOrganizer(ctx, s.db, userID, s.now(), upcoming)
	if err != nil {
		return nil, fmt.Errorf("list hosted games: %w", err)
	}
	return games, nil
}

func (s *Service) byAttendee(ctx context.Context, userID int64, upcoming bool) ([]*models.UserGame, error) {
	games, err := database.GetGamesByAttendee(ctx, s.db, userID, s.now(), upcoming)
	if err != nil {
		return nil, fmt.Errorf("list rsvp'd games: %w", err)
	}
	return games, nil
}

func gameErr(err error, gameID int64, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("game %d not found", gameID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil
	}
	return &v
}
