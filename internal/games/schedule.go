package games

import (
	"strings"
	"time"
	_ "time/tzdata" // IANA zones for hosts without a zoneinfo database

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
)

// Wall-clock layouts accepted for scheduled_at when no UTC offset is given.
// They are interpreted in the game's timezone.
var wallClockLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// LoadTimezone validates an IANA timezone label.
func LoadTimezone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidInput("timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperr.InvalidInput("unknown timezone %q", name)
	}
	return loc, nil
}

// ParseScheduledAt reads an RFC 3339 instant, or a wall-clock time in loc.
func ParseScheduledAt(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperr.InvalidInput("scheduled_at is required")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.InvalidInput("invalid scheduled_at %q: use RFC 3339 or YYYY-MM-DDTHH:MM", value)
}
