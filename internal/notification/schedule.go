package notification

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned when a subscription frequency cannot be parsed.
var ErrInvalidSchedule = errors.New("invalid schedule")

// cronParser supports standard 5-field cron and descriptors like "@daily".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// maxParsedSchedules bounds the parse memo; it is reset once full.
var maxParsedSchedules = 1024

var (
	parsedMu sync.RWMutex
	parsed   = make(map[string]cronlib.Schedule)
)

// ParseSchedule parses a cron expression, caching the result.
// Interval descriptors ("@every 1h") are rejected; they never fall inside the
// dispatcher's look-back window.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	parsedMu.RLock()
	sched, ok := parsed[expr]
	parsedMu.RUnlock()
	if ok {
		return sched, nil
	}

	if isInterval(expr) {
		return nil, fmt.Errorf("%w %q: interval schedules are not supported", ErrInvalidSchedule, expr)
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, expr, err)
	}

	parsedMu.Lock()
	if len(parsed) >= maxParsedSchedules {
		parsed = make(map[string]cronlib.Schedule)
	}
	parsed[expr] = sched
	parsedMu.Unlock()
	return sched, nil
}

// NextFireAfter returns the earliest instant at or after reference that
// matches expr, evaluated in reference's location.
func NextFireAfter(expr string, reference time.Time) (time.Time, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	// Schedule.Next is strictly after its argument at second granularity.
	return sched.Next(reference.Add(-time.Nanosecond)), nil
}

// isInterval reports whether expr is an "@every" descriptor, with or without
// a CRON_TZ/TZ prefix.
func isInterval(expr string) bool {
	fields := strings.Fields(expr)
	if len(fields) > 0 && (strings.HasPrefix(fields[0], "CRON_TZ=") || strings.HasPrefix(fields[0], "TZ=")) {
		fields = fields[1:]
	}
	return len(fields) > 0 && strings.EqualFold(fields[0], "@every")
}
