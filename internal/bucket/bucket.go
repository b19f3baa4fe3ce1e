// Package bucket groups journal entries under human-readable calendar-day keys.
package bucket

import (
	"time"

	"github.com/xolan/hark/internal/entry"
)

// Keys for the two relative days
const (
	Today     = "Today"
	Yesterday = "Yesterday"
)

const (
	dayLayout     = "Monday, January 2"
	dayYearLayout = "Monday, January 2, 2006"
)

// Group is a run of entries sharing one calendar-day key.
type Group struct {
	Key     string
	Entries []entry.Entry
}

// StartOfDay returns midnight (00:00:00) of the given day in the same timezone
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Key returns the display key for t relative to now. The calendar date of t is
// taken in now's location. Dates outside the current year carry the year so
// that keys stay unique per calendar date.
func Key(t, now time.Time) string {
	t = t.In(now.Location())
	if SameDay(now, t) {
		return Today
	}
	// AddDate on the start of day handles 23 and 25 hour days.
	if SameDay(StartOfDay(now).AddDate(0, 0, -1), t) {
		return Yesterday
	}
	if t.Year() != now.Year() {
		return t.Format(dayYearLayout)
	}
	return t.Format(dayLayout)
}

// Bucket partitions entries, already sorted most recent first, into groups.
// Groups appear in first-occurrence order and concatenating them yields the
// input. Keys are computed against now on every call, so an entry moves from
// Today to Yesterday once midnight passes.
func Bucket(entries []entry.Entry, now time.Time) []Group {
	groups := []Group{}
	index := make(map[string]int)

	for _, e := range entries {
		key := Key(e.CreatedAt, now)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

// Flatten concatenates the groups back into a single list.
func Flatten(groups []Group) []entry.Entry {
	var out []entry.Entry
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}
