// Package schooltime converts instants into a school's local calendar.
package schooltime

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

const (
	// DateLayout is the session date format (school local).
	DateLayout = "2006-01-02"
	// ClockLayout is the dismissal time format.
	ClockLayout = "15:04"
)

var (
	locMu sync.RWMutex
	locs  = map[string]*time.Location{}
)

// LoadLocation resolves an IANA zone name, caching lookups. Empty or unknown
// names resolve to UTC together with an error for unknown ones.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}

	locMu.RLock()
	loc, ok := locs[name]
	locMu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", name, err)
	}

	locMu.Lock()
	locs[name] = loc
	locMu.Unlock()
	return loc, nil
}

// LocalDate returns the calendar day of now in loc, as midnight UTC so it can
// be stored in a DATE column unchanged.
func LocalDate(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalClock formats now as HH:MM in loc.
func LocalClock(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(ClockLayout)
}

// NormalizeClock accepts "15:00", "15:00:00" or "3:00" and returns "HH:MM".
func NormalizeClock(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(ClockLayout), nil
		}
	}
	if len(raw) == 4 && raw[1] == ':' {
		return NormalizeClock("0" + raw)
	}
	return "", fmt.Errorf("invalid dismissal time %q", raw)
}
