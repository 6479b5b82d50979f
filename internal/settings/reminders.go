package settings

import (
	"fmt"
	"strings"

	"github.com/saadjs/niclog/internal/model"
)

// SanitizeReminderTimes clamps every "HH:MM" value into range and
// zero-pads it. Unparseable parts become 0. An empty list yields fallback.
func SanitizeReminderTimes(times []string, fallback []string) []string {
	out := make([]string, 0, len(times))
	for _, t := range times {
		out = append(out, FormatTime(t))
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func FormatTime(raw string) string {
	h, m := splitTime(raw)
	return fmt.Sprintf("%02d:%02d", h, m)
}

func splitTime(raw string) (int, int) {
	hourPart, minutePart, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return clamp(leadingInt(hourPart), 0, 23), clamp(leadingInt(minutePart), 0, 59)
}

// ResizeReminderTimes grows or shrinks the list to count entries (1..5),
// filling new slots with the default time.
func ResizeReminderTimes(times []string, count int) []string {
	count = clamp(count, 1, MaxReminderTimes)
	out := append([]string(nil), times...)
	if len(out) > count {
		return out[:count]
	}
	for len(out) < count {
		out = append(out, DefaultReminderTime)
	}
	return out
}

func WithReminderTimes(s model.Settings, times []string) model.Settings {
	s = s.Clone()
	s.ReminderTimes = append([]string(nil), times...)
	return Normalize(s)
}

// WithReminderHour moves the first reminder to hour:00 and keeps the rest.
func WithReminderHour(s model.Settings, hour int) model.Settings {
	s = s.Clone()
	first := fmt.Sprintf("%02d:00", clamp(hour, 0, 23))
	if len(s.ReminderTimes) == 0 {
		s.ReminderTimes = []string{first}
	} else {
		s.ReminderTimes[0] = first
	}
	return Normalize(s)
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if n < 1000 {
			n = n*10 + int(r-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
