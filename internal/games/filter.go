package games

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gamemaster-scheduling/pickup/internal/apperr"
)

// DefaultSort orders games by start time, soonest first.
const DefaultSort = "date-asc"

var sortOrders = map[string]string{
	"date-asc":   "scheduled_at ASC, id ASC",
	"date-desc":  "scheduled_at DESC, id DESC",
	"spots-desc": "(max_capacity - current_capacity) DESC, scheduled_at ASC, id ASC",
	"spots-asc":  "(max_capacity - current_capacity) ASC, scheduled_at ASC, id ASC",
	"newest":     "created_at DESC, id DESC",
	"oldest":     "created_at ASC, id ASC",
}

// Filter selects and orders games for the listing endpoint. Zero values mean
// "no constraint".
type Filter struct {
	SportType string
	Location  string
	DateStart time.Time
	DateEnd   time.Time
	HasSpots  bool
	Search    string
	Sort      string
}

// ParseFilter reads a Filter from query parameters.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{
		SportType: strings.TrimSpace(v.Get("sport_type")),
		Location:  strings.TrimSpace(v.Get("location")),
		Search:    strings.TrimSpace(v.Get("search")),
		Sort:      strings.TrimSpace(v.Get("sort")),
	}
	if f.Sort == "" {
		f.Sort = DefaultSort
	}
	if _, ok := sortOrders[f.Sort]; !ok {
		return Filter{}, apperr.InvalidInput("unknown sort %q", f.Sort)
	}

	var err error
	if s := v.Get("date_start"); s != "" {
		if f.DateStart, err = parseBound(s, false); err != nil {
			return Filter{}, err
		}
	}
	if s := v.Get("date_end"); s != "" {
		if f.DateEnd, err = parseBound(s, true); err != nil {
			return Filter{}, err
		}
	}
	if s := v.Get("has_spots"); s != "" {
		if f.HasSpots, err = strconv.ParseBool(s); err != nil {
			return Filter{}, apperr.InvalidInput("has_spots must be true or false")
		}
	}
	return f, nil
}

// parseBound accepts RFC 3339 or a bare date. A bare end date covers the whole day.
func parseBound(s string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("invalid date %q: use YYYY-MM-DD or RFC 3339", s)
	}
	if end {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return d, nil
}

// predicate accumulates AND-ed clauses with their positional arguments.
type predicate struct {
	clauses []string
	args    []any
}

func (p *predicate) add(clause string, args ...any) {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
}

// Query translates the filter into a WHERE fragment, its arguments and an
// ORDER BY fragment. No user input is ever placed in the SQL text.
func (f Filter) Query(stamp func(time.Time) time.Time) (where string, args []any, orderBy string) {
	var p predicate
	if f.Search != "" {
		pattern := likePattern(f.Search)
		p.add(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}
	if f.SportType != "" {
		p.add("sport_type = ?", f.SportType)
	}
	if f.Location != "" {
		p.add(`LOWER(location) LIKE ? ESCAPE '\'`, likePattern(f.Location))
	}
	if !f.DateStart.IsZero() {
		p.add("scheduled_at >= ?", stamp(f.DateStart))
	}
	if !f.DateEnd.IsZero() {
		p.add("scheduled_at <= ?", stamp(f.DateEnd))
	}
	if f.HasSpots {
		p.add("current_capacity < max_capacity")
	}

	orderBy, ok := sortOrders[f.Sort]
	if !ok {
		orderBy = sortOrders[DefaultSort]
	}
	return strings.Join(p.clauses, " AND "), p.args, orderBy
}

// likePattern builds a case-insensitive "contains" pattern with LIKE
// metacharacters escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
