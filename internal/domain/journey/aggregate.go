package journey

import (
	"errors"
	"fmt"
	"math"

	"github.com/reliancemove/service-quote/internal/domain/booking"
)

const metersPerMile = 1609.34

var (
	// ErrRouteStatus is returned for a directions response whose status is not OK.
	ErrRouteStatus = errors.New("directions status not OK")
	// ErrNoRoute is returned when an OK response carries no route legs.
	ErrNoRoute = errors.New("directions response has no route")
	// ErrIncompleteLeg is returned when a leg lacks its distance or duration.
	ErrIncompleteLeg = errors.New("route leg missing distance or duration")
)

// Summary is the aggregated distance and duration of a route.
type Summary struct {
	Meters   float64 `json:"meters"`
	Seconds  int     `json:"seconds"`
	Distance string  `json:"distance"`
	Duration string  `json:"duration"`
}

// Journey returns the summary as the draft's journey record, echoing the request as its route.
func (s Summary) Journey(req Request) booking.Journey {
	return booking.Journey{Distance: s.Distance, Duration: s.Duration, Route: req}
}

// Aggregate sums every leg of the first route. A missing leg measurement fails the whole aggregation.
func Aggregate(resp Response) (Summary, error) {
	if resp.Status != StatusOK {
		return Summary{}, fmt.Errorf("%w: %s", ErrRouteStatus, resp.Status)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return Summary{}, ErrNoRoute
	}

	var meters, seconds float64
	for i, leg := range resp.Routes[0].Legs {
		if leg.Distance == nil || leg.Duration == nil {
			return Summary{}, fmt.Errorf("%w: leg %d", ErrIncompleteLeg, i)
		}
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}

	secs := int(math.Round(seconds))
	return Summary{
		Meters:   meters,
		Seconds:  secs,
		Distance: MetersToMilesShort(meters),
		Duration: FormatDuration(secs),
	}, nil
}

// MetersToMilesShort renders meters as miles with one decimal, e.g. "6.2 mi".
func MetersToMilesShort(meters float64) string {
	return fmt.Sprintf("%.1f mi", meters/metersPerMile)
}

// FormatDuration renders seconds as "{h} hr {m} min", or "{m} min" under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
