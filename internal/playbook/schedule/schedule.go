package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	rcron "github.com/robfig/cron/v3"
)

var (
	ErrInvalidExpression = errors.New("invalid cron expression")
	ErrUnknownMode       = errors.New("unknown schedule mode")
)

// Mode is how a playbook gets started
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeEvent     Mode = "event"
	ModeScheduled Mode = "scheduled"
)

func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "":
		return ModeManual, nil
	case ModeManual, ModeEvent, ModeScheduled:
		return Mode(value), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, value)
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

const (
	defaultHour   = 9
	defaultMinute = 0
)

// ToCron translates a frequency and a "HH:MM" time of day into a five field
// cron expression. A malformed or empty time falls back to 09:00 and any
// frequency other than weekly or monthly is treated as daily.
func ToCron(frequency Frequency, timeOfDay string) string {
	hour, minute := parseTimeOfDay(timeOfDay)

	switch frequency {
	case FrequencyWeekly:
		return fmt.Sprintf("%d %d * * 1", minute, hour)
	case FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour)
	default:
		return fmt.Sprintf("%d %d * * *", minute, hour)
	}
}

func parseTimeOfDay(value string) (int, int) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return defaultHour, defaultMinute
	}

	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return defaultHour, defaultMinute
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return defaultHour, defaultMinute
	}

	return hour, minute
}

// Spec is the schedule selection of the builder's metadata form
type Spec struct {
	Mode      Mode      `json:"mode"`
	Frequency Frequency `json:"frequency,omitempty"`
	Time      string    `json:"time,omitempty"`
	// Expression is set when a stored cron does not match any of the
	// generated forms; it is kept verbatim.
	Expression string `json:"expression,omitempty"`
}

// Cron returns the expression attached to the save payload. Only the
// scheduled mode carries one.
func (s Spec) Cron() (string, bool) {
	if s.Mode != ModeScheduled {
		return "", false
	}
	if s.Expression != "" {
		return s.Expression, true
	}
	return ToCron(s.Frequency, s.Time), true
}

// FromCron rebuilds the form selection from a stored expression. An empty
// expression means the playbook is not scheduled.
func FromCron(expr string) Spec {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Spec{Mode: ModeManual}
	}

	fields := strings.Fields(expr)
	if len(fields) == 5 && fields[3] == "*" {
		minute, minuteErr := strconv.Atoi(fields[0])
		hour, hourErr := strconv.Atoi(fields[1])
		if minuteErr == nil && hourErr == nil && minute >= 0 && minute <= 59 && hour >= 0 && hour <= 23 {
			timeOfDay := fmt.Sprintf("%02d:%02d", hour, minute)
			switch {
			case fields[2] == "*" && fields[4] == "*":
				return Spec{Mode: ModeScheduled, Frequency: FrequencyDaily, Time: timeOfDay}
			case fields[2] == "*" && fields[4] == "1":
				return Spec{Mode: ModeScheduled, Frequency: FrequencyWeekly, Time: timeOfDay}
			case fields[2] == "1" && fields[4] == "*":
				return Spec{Mode: ModeScheduled, Frequency: FrequencyMonthly, Time: timeOfDay}
			}
		}
	}

	return Spec{Mode: ModeScheduled, Expression: expr}
}

// Validate checks expr against the standard five field cron syntax.
func Validate(expr string) error {
	_, err := rcron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expr, err)
	}
	return nil
}

// Next returns the first activation of expr strictly after from.
func Next(expr string, from time.Time) (time.Time, error) {
	sched, err := rcron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expr, err)
	}
	return sched.Next(from), nil
}

// Upcoming returns the next n activations of expr after from. A non-positive
// n yields no activations.
func Upcoming(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := rcron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidExpression, expr, err)
	}
	if n < 0 {
		n = 0
	}

	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}
