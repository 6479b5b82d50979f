package stats

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
)

const dateKeyLayout = "2006-01-02"

var (
	ErrInvalidDateKey = errors.New("invalid date key")
	ErrInvalidClock   = errors.New("invalid time of day")
)

func DateKey(t time.Time) string {
	return t.In(time.Local).Format(dateKeyLayout)
}

func ParseDateKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, strings.TrimSpace(key), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q (expected YYYY-MM-DD)", ErrInvalidDateKey, key)
	}
	return t, nil
}

// NoonOf is the timestamp used for entries logged against a past day.
func NoonOf(key string) (time.Time, error) {
	day, err := ParseDateKey(key)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(12 * time.Hour), nil
}

// MoveTo returns base moved to another local date, another HH:MM, or
// both. An empty date keeps base's local day; an empty clock keeps its
// local time of day.
func MoveTo(base time.Time, date, clock string) (time.Time, error) {
	local := base.In(time.Local)
	y, m, d := local.Date()
	if date = strings.TrimSpace(date); date != "" {
		day, err := ParseDateKey(date)
		if err != nil {
			return time.Time{}, err
		}
		y, m, d = day.Date()
	}
	hh, mm, ss, ns := local.Hour(), local.Minute(), local.Second(), local.Nanosecond()
	if clock = strings.TrimSpace(clock); clock != "" {
		c, err := time.Parse("15:04", clock)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w %q (expected HH:MM)", ErrInvalidClock, clock)
		}
		hh, mm, ss, ns = c.Hour(), c.Minute(), 0, 0
	}
	return time.Date(y, m, d, hh, mm, ss, ns, time.Local), nil
}

func beginningOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.In(time.Local).Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.Local)
}

type Range struct {
	all  bool
	days int
}

var AllTime = Range{all: true}

var Presets = []Range{LastDays(7), LastDays(30), LastDays(90), LastDays(180), LastDays(365), AllTime}

func LastDays(n int) Range {
	if n < 0 {
		n = 0
	}
	return Range{days: n}
}

func ParseRange(value string) (Range, error) {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "all" {
		return AllTime, nil
	}
	v = strings.TrimSuffix(v, "d")
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return Range{}, fmt.Errorf("invalid range %q (use a positive number of days or \"all\")", value)
	}
	return LastDays(n), nil
}

func (r Range) IsAll() bool { return r.all }

func (r Range) Days() int { return r.days }

func (r Range) String() string {
	if r.all {
		return "all"
	}
	return strconv.Itoa(r.days) + "d"
}

// Bounds returns the closed interval covered by a fixed window.
func (r Range) Bounds(now time.Time) (time.Time, time.Time, bool) {
	if r.all || r.days <= 0 {
		return time.Time{}, time.Time{}, false
	}
	start := beginningOfDay(now).AddDate(0, 0, -(r.days - 1))
	return start, endOfDay(now), true
}

func FilterEntriesByRange(entries []model.Entry, r Range, now time.Time) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	if r.all {
		out = append(out, entries...)
		sortByTimestamp(out)
		return out
	}
	start, end, ok := r.Bounds(now)
	if !ok {
		return out
	}
	for _, e := range entries {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	sortByTimestamp(out)
	return out
}

func EntriesForDay(entries []model.Entry, key string) []model.Entry {
	out := make([]model.Entry, 0)
	for _, e := range entries {
		if DateKey(e.Timestamp) == key {
			out = append(out, e)
		}
	}
	sortByTimestamp(out)
	return out
}

func sortByTimestamp(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
