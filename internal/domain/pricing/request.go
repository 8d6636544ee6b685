package pricing

import (
	"context"
	"errors"
)

// LocationInput is one end of the move as the pricing endpoint expects it.
type LocationInput struct {
	Location string `json:"location"`
	Floor    int    `json:"floor"`
	Lift     bool   `json:"lift"`
}

// StopAddress is an extra stop reduced to its address. Other stop attributes are not priced.
type StopAddress struct {
	Address string `json:"address"`
}

// PriceRequest is the body of POST /price.
type PriceRequest struct {
	PickupLocation   LocationInput `json:"pickupLocation"`
	DropLocation     LocationInput `json:"dropLocation"`
	VanType          string        `json:"vanType"`
	Worker           int           `json:"worker"`
	ItemsToDismantle int           `json:"itemsToDismantle"`
	ItemsToAssemble  int           `json:"itemsToAssemble"`
	Stoppage         []StopAddress `json:"stoppage"`
}

// PriceResponse is the body returned by POST /price.
type PriceResponse struct {
	Price float64 `json:"price"`
}

// DistanceRequest is the body of POST /distance.
type DistanceRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// TextValue is a Distance Matrix measurement.
type TextValue struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// DistanceElement is one origin/destination cell of a Distance Matrix response.
type DistanceElement struct {
	Status   string     `json:"status,omitempty"`
	Distance *TextValue `json:"distance,omitempty"`
	Duration *TextValue `json:"duration,omitempty"`
}

// DistanceResponse is the Distance Matrix shaped body returned by POST /distance.
type DistanceResponse struct {
	Rows []struct {
		Elements []DistanceElement `json:"elements"`
	} `json:"rows"`
}

// ErrNoDistance is returned when a distance response carries no usable element.
var ErrNoDistance = errors.New("distance response has no element")

// First returns the distance and duration text of rows[0].elements[0].
func (r DistanceResponse) First() (distance, duration string, err error) {
	if len(r.Rows) == 0 || len(r.Rows[0].Elements) == 0 {
		return "", "", ErrNoDistance
	}
	el := r.Rows[0].Elements[0]
	if el.Distance == nil || el.Duration == nil {
		return "", "", ErrNoDistance
	}
	return el.Distance.Text, el.Duration.Text, nil
}

// PricingService computes the authoritative price for a normalized request.
type PricingService interface {
	Price(ctx context.Context, req PriceRequest) (PriceResponse, error)
}

// DistanceService returns a simple two-point distance.
type DistanceService interface {
	Distance(ctx context.Context, req DistanceRequest) (DistanceResponse, error)
}
