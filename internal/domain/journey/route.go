package journey

import (
	"context"
	"strings"

	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/domain/booking"
)

// StatusOK is the directions status that signals a usable route.
const StatusOK = "OK"

// Waypoint is an intermediate stop on a directions request.
type Waypoint struct {
	Location string `json:"location"`
	Stopover bool   `json:"stopover"`
}

// Request is a directions request over pickup, the extra stops in stored order, and delivery.
type Request struct {
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	Waypoints         []Waypoint `json:"waypoints"`
	OptimizeWaypoints bool       `json:"optimizeWaypoints"`
	TravelMode        string     `json:"travelMode"`
}

// Key identifies the ordered waypoint list of the request.
func (r Request) Key() string {
	return KeyOf(r.Locations())
}

// Locations returns origin, each waypoint and destination in order.
func (r Request) Locations() []string {
	out := make([]string, 0, len(r.Waypoints)+2)
	out = append(out, r.Origin)
	for _, w := range r.Waypoints {
		out = append(out, w.Location)
	}
	return append(out, r.Destination)
}

// KeyOf joins an ordered waypoint list into a comparable key.
func KeyOf(waypoints []string) string {
	return strings.Join(waypoints, "\x1f")
}

// BuildRequest builds the directions request for a draft snapshot. Stop order is
// preserved so that route legs line up with the stop numbering the user sees.
func BuildRequest(s booking.Snapshot) (Request, error) {
	if strings.TrimSpace(s.Pickup.Location) == "" || strings.TrimSpace(s.Delivery.Location) == "" {
		return Request{}, domain.NewValidationError("pickup and delivery locations are required for a route")
	}
	wps := make([]Waypoint, 0, len(s.ExtraStops))
	for _, st := range s.ExtraStops {
		wps = append(wps, Waypoint{Location: st.Address, Stopover: true})
	}
	return Request{
		Origin:            s.Pickup.Location,
		Destination:       s.Delivery.Location,
		Waypoints:         wps,
		OptimizeWaypoints: false,
		TravelMode:        "DRIVING",
	}, nil
}

// Measure is a leg distance or duration.
type Measure struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// Leg is one origin to destination segment of a route.
type Leg struct {
	Distance *Measure `json:"distance"`
	Duration *Measure `json:"duration"`
}

// Route is one route alternative made of ordered legs.
type Route struct {
	Legs []Leg `json:"legs"`
}

// Response is a directions result as returned by the mapping provider.
type Response struct {
	Status string  `json:"status"`
	Routes []Route `json:"routes"`
}

// Provider fetches directions for a request.
type Provider interface {
	Directions(ctx context.Context, req Request) (Response, error)
}
