// Package seed loads demo data into a freshly reset database.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"

	"github.com/gamemaster-scheduling/pickup/internal/database"
	"github.com/gamemaster-scheduling/pickup/internal/games"
	"github.com/gamemaster-scheduling/pickup/internal/models"
	"github.com/gamemaster-scheduling/pickup/internal/rsvp"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the seed file format.
type File struct {
	Users []User `yaml:"users"`
	Games []Game `yaml:"games"`
}

type User struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// Game is scheduled StartsIn after the seed is applied.
type Game struct {
	Organizer   int64         `yaml:"organizer"`
	Title       string        `yaml:"title"`
	SportType   string        `yaml:"sport_type"`
	Location    string        `yaml:"location"`
	StartsIn    time.Duration `yaml:"starts_in"`
	Timezone    string        `yaml:"timezone"`
	MaxCapacity int           `yaml:"max_capacity"`
	Description string        `yaml:"description,omitempty"`
	RSVPs       []RSVP        `yaml:"rsvps,omitempty"`
}

// RSVP defaults to going.
type RSVP struct {
	User   int64  `yaml:"user"`
	Status string `yaml:"status,omitempty"`
}

// Summary counts what Apply inserted.
type Summary struct {
	Users int
	Games int
	RSVPs int
}

// Load reads a seed file. An empty path selects the built-in demo data.
func Load(path string) (*File, error) {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes seed YAML, rejecting unknown fields.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	return &f, nil
}

// Apply inserts the seed. Games and RSVPs go through the game store and the
// RSVP engine so the seeded data obeys the same rules as live traffic.
func Apply(ctx context.Context, db *sqlx.DB, f *File, now func() time.Time) (Summary, error) {
	var sum Summary
	svc := games.NewService(db, games.WithClock(now))
	engine := rsvp.NewEngine(db, rsvp.WithClock(now))

	for _, u := range f.Users {
		user := &models.User{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: now()}
		if err := database.UpsertUser(ctx, db, user); err != nil {
			return sum, fmt.Errorf("seed user %d: %w", u.ID, err)
		}
		sum.Users++
	}

	for i, g := range f.Games {
		in := games.GameInput{
			Title:       g.Title,
			SportType:   g.SportType,
			Location:    g.Location,
			ScheduledAt: now().Add(g.StartsIn).Format(time.RFC3339),
			Timezone:    g.Timezone,
			MaxCapacity: g.MaxCapacity,
		}
		if g.Description != "" {
			in.Description = &g.Description
		}
		game, err := svc.Create(ctx, g.Organizer, in)
		if err != nil {
			return sum, fmt.Errorf("seed game %d (%s): %w", i, g.Title, err)
		}
		sum.Games++

		for _, r := range g.RSVPs {
			created, err := engine.Create(ctx, game.ID, r.User)
			if err != nil {
				return sum, fmt.Errorf("seed rsvp of user %d to %q: %w", r.User, g.Title, err)
			}
			if r.Status != "" && r.Status != string(models.RSVPStatusGoing) {
				if _, err := engine.UpdateStatus(ctx, created.ID, r.Status); err != nil {
					return sum, fmt.Errorf("seed rsvp of user %d to %q: %w", r.User, g.Title, err)
				}
			}
			sum.RSVPs++
		}
	}
	return sum, nil
}

// Reset drops and recreates the schema, then applies f when it is non-nil.
func Reset(ctx context.Context, db *sqlx.DB, f *File, now func() time.Time) (Summary, error) {
	if err := database.Reset(ctx, db); err != nil {
		return Summary{}, err
	}
	if f == nil {
		return Summary{}, nil
	}
	return Apply(ctx, db, f, now)
}
