package models

import "time"

// RSVPStatus is a user's answer to a game.
type RSVPStatus string

const (
	RSVPStatusGoing    RSVPStatus = "going"
	RSVPStatusMaybe    RSVPStatus = "maybe"
	RSVPStatusNotGoing RSVPStatus = "not_going"
)

// ParseRSVPStatus validates s against the known statuses.
func ParseRSVPStatus(s string) (RSVPStatus, bool) {
	switch st := RSVPStatus(s); st {
	case RSVPStatusGoing, RSVPStatusMaybe, RSVPStatusNotGoing:
		return st, true
	default:
		return "", false
	}
}

// CapacityDelta is the change to a game's current_capacity when an RSVP moves
// from one status to another.
func CapacityDelta(from, to RSVPStatus) int {
	switch {
	case from == to:
		return 0
	case to == RSVPStatusGoing:
		return 1
	case from == RSVPStatusGoing:
		return -1
	default:
		return 0
	}
}

type RSVP struct {
	ID        int64      `db:"id" json:"id"`
	GameID    int64      `db:"game_id" json:"game_id"`
	UserID    int64      `db:"user_id" json:"user_id"`
	Status    RSVPStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	UserName  string     `db:"user_name" json:"user_name"`  // For display
	UserEmail string     `db:"user_email" json:"user_email"` // For display
}
