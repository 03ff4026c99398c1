package models

import "time"

// Game is a scheduled pickup game. CurrentCapacity counts the "going" RSVPs
// and is only ever written by the RSVP engine.
type Game struct {
	ID              int64     `db:"id" json:"id"`
	OrganizerID     int64     `db:"organizer_id" json:"organizer_id"`
	Title           string    `db:"title" json:"title"`
	SportType       string    `db:"sport_type" json:"sport_type"`
	Location        string    `db:"location" json:"location"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
	Timezone        string    `db:"timezone" json:"timezone"`
	MaxCapacity     int       `db:"max_capacity" json:"max_capacity"`
	CurrentCapacity int       `db:"current_capacity" json:"current_capacity"`
	Description     *string   `db:"description" json:"description"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// MinCapacity is the smallest max_capacity a game may have.
const MinCapacity = 2

// SpotsLeft returns how many seats are still free.
func (g *Game) SpotsLeft() int {
	return g.MaxCapacity - g.CurrentCapacity
}

// IsFull reports whether no seat is left.
func (g *Game) IsFull() bool {
	return g.CurrentCapacity >= g.MaxCapacity
}

// HasStarted reports whether the game's scheduled time is not strictly after now.
// Once a game has started its RSVPs are frozen.
func (g *Game) HasStarted(now time.Time) bool {
	return !g.ScheduledAt.After(now)
}

// UserGame is a game as seen from one user's lists. RSVPID and RSVPStatus are
// set when the list is derived from the user's RSVPs.
type UserGame struct {
	Game
	RSVPID     *int64  `db:"rsvp_id" json:"rsvp_id,omitempty"`
	RSVPStatus *string `db:"rsvp_status" json:"rsvp_status,omitempty"`
}
