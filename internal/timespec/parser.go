package timespec

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day form accepted by ParseDate.
const DateLayout = "2006-01-02"

// Parse parses a time specification into a Unix timestamp (milliseconds).
// Supports three formats:
//   - Go duration format: "1h", "30m", "1h30m" (relative to now, in the past)
//   - RFC3339 timestamps: "2024-03-15T13:00:00Z"
//   - Calendar days: "2024-03-15" (midnight UTC)
func Parse(spec string) (int64, error) {
	return parseAt(spec, time.Now())
}

func parseAt(spec string, now time.Time) (int64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}
	if t, err := time.Parse(DateLayout, spec); err == nil {
		return t.UnixMilli(), nil
	}

	// Duration is relative to now (subtract from current time)
	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must be positive)", spec)
		}
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m', a day like '2024-03-15' or RFC3339 like '2024-03-15T13:00:00Z')", spec)
}

// ParseRange parses both --since and --until flags into a time range.
// Zero values indicate "no bound" for that end of the range.
func ParseRange(since, until string) (int64, int64, error) {
	return parseRangeAt(since, until, time.Now())
}

func parseRangeAt(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		if sinceMS, err = parseAt(since, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if untilMS, err = parseAt(until, now); err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}

// ParseDate parses an API date: a calendar day ("2024-03-15", midnight UTC) or
// an RFC3339 timestamp. An empty string yields nil.
func ParseDate(spec string) (*time.Time, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateLayout, spec); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, spec); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("invalid date: %s (use YYYY-MM-DD or RFC3339)", spec)
}

// ParseMonth parses "YYYY-MM" into the first instant of that month in loc.
func ParseMonth(spec string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", strings.TrimSpace(spec), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month: %s (use YYYY-MM)", spec)
	}
	return t, nil
}
