package booking

import (
	"fmt"
	"regexp"
	"time"
)

const (
	DefaultPickupTime = "08:00:00"
	DefaultDropTime   = "18:00:00"
	MaxMovers         = 3
)

var (
	canonicalTimeRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d$`)
	shortTimeRegex     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Schedule holds the move date, time window and number of movers.
type Schedule struct {
	Date           string `json:"date"`
	PickupTime     string `json:"pickupTime"`
	DropTime       string `json:"dropTime"`
	NumberOfMovers int    `json:"numberOfMovers"`
}

// SchedulePatch carries the fields to merge into a Schedule.
type SchedulePatch struct {
	Date           *string `json:"date,omitempty"`
	PickupTime     *string `json:"pickupTime,omitempty"`
	DropTime       *string `json:"dropTime,omitempty"`
	NumberOfMovers *int    `json:"numberOfMovers,omitempty"`
}

// Apply validates the patch and returns a copy of s with it merged in.
func (p SchedulePatch) Apply(s Schedule) (Schedule, error) {
	setString(&s.Date, p.Date)
	if p.PickupTime != nil {
		t, err := CanonicalTime(*p.PickupTime)
		if err != nil {
			return s, err
		}
		s.PickupTime = t
	}
	if p.DropTime != nil {
		t, err := CanonicalTime(*p.DropTime)
		if err != nil {
			return s, err
		}
		s.DropTime = t
	}
	if p.NumberOfMovers != nil {
		if *p.NumberOfMovers < 0 || *p.NumberOfMovers > MaxMovers {
			return s, fmt.Errorf("number of movers must be between 0 and %d", MaxMovers)
		}
		s.NumberOfMovers = *p.NumberOfMovers
	}
	return s, nil
}

// CanonicalTime returns the HH:MM:SS form of a time of day. HH:MM is accepted and padded.
func CanonicalTime(s string) (string, error) {
	switch {
	case canonicalTimeRegex.MatchString(s):
		return s, nil
	case shortTimeRegex.MatchString(s):
		return s + ":00", nil
	default:
		return "", fmt.Errorf("invalid time %q: expected HH:MM:SS", s)
	}
}

// DisplayDate renders a date as the wizard shows it, e.g. "7 Apr".
func DisplayDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), t.Format("Jan"))
}

// DefaultSchedule returns the schedule a new wizard starts with.
func DefaultSchedule(now time.Time) Schedule {
	return Schedule{
		Date:       DisplayDate(now),
		PickupTime: DefaultPickupTime,
		DropTime:   DefaultDropTime,
	}
}
