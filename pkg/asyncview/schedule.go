package asyncview

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule is the ordered list of waits between successive polls.
// A one-element schedule applies the same wait to every poll.
type Schedule []time.Duration

// DefaultSchedule returns the graduated schedule used when none is configured.
func DefaultSchedule() Schedule {
	return Schedule{500 * time.Millisecond, 2500 * time.Millisecond, 10 * time.Second}
}

// Fixed returns a schedule that waits d before every poll.
func Fixed(d time.Duration) Schedule {
	return Schedule{d}
}

// Graduated returns a schedule that waits ds[i] before poll i and reuses the
// last value once ds is exhausted.
func Graduated(ds ...time.Duration) Schedule {
	s := make(Schedule, len(ds))
	copy(s, ds)
	return s
}

// NextDelay returns the wait before the poll with the given zero-based index.
func (s Schedule) NextDelay(attempt int) time.Duration {
	if len(s) == 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(s) {
		return s[len(s)-1]
	}
	return s[attempt]
}

// Validate reports whether s can drive a poll loop.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty schedule", ErrInvalidSchedule)
	}
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("%w: negative interval %v at index %d", ErrInvalidSchedule, d, i)
		}
	}
	return nil
}

// String formats s the way ParseSchedule reads it.
func (s Schedule) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}

// ParseSchedule parses a comma separated list of intervals. Each item is a Go
// duration ("2.5s") or a bare integer in milliseconds ("2500").
func ParseSchedule(text string) (Schedule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty schedule", ErrInvalidSchedule)
	}

	var s Schedule
	for _, item := range strings.Split(text, ",") {
		d, err := ParseInterval(item)
		if err != nil {
			return nil, err
		}
		s = append(s, d)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseInterval parses a single interval, either a Go duration or an integer
// number of milliseconds.
func ParseInterval(item string) (time.Duration, error) {
	item = strings.TrimSpace(item)
	if ms, err := strconv.ParseInt(item, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(item)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval %q", ErrInvalidSchedule, item)
	}
	return d, nil
}
