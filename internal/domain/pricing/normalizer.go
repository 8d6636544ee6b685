package pricing

import (
	"strings"

	"github.com/reliancemove/service-quote/internal/common/domain"
	"github.com/reliancemove/service-quote/internal/domain/booking"
)

// Normalize builds the pricing request for a draft snapshot.
// It fails without building anything when either end of the move has no location.
func Normalize(s booking.Snapshot) (PriceRequest, error) {
	if strings.TrimSpace(s.Pickup.Location) == "" {
		return PriceRequest{}, domain.NewFieldValidationError("pickup.location", "pickup location is required")
	}
	if strings.TrimSpace(s.Delivery.Location) == "" {
		return PriceRequest{}, domain.NewFieldValidationError("delivery.location", "delivery location is required")
	}

	stops := make([]StopAddress, 0, len(s.ExtraStops))
	for _, st := range s.ExtraStops {
		stops = append(stops, StopAddress{Address: st.Address})
	}

	return PriceRequest{
		PickupLocation:   location(s.Pickup),
		DropLocation:     location(s.Delivery),
		VanType:          string(s.Van.Type.OrDefault()),
		Worker:           s.SelectedDate.NumberOfMovers,
		ItemsToDismantle: s.ItemsToDismantle,
		ItemsToAssemble:  s.ItemsToAssemble,
		Stoppage:         stops,
	}, nil
}

// DistanceRequestFor builds the two-point fallback distance request for a snapshot.
func DistanceRequestFor(s booking.Snapshot) (DistanceRequest, error) {
	if s.Pickup.Location == "" || s.Delivery.Location == "" {
		return DistanceRequest{}, domain.NewValidationError("pickup and delivery locations are required")
	}
	return DistanceRequest{Origin: s.Pickup.Location, Destination: s.Delivery.Location}, nil
}

func location(a booking.Address) LocationInput {
	return LocationInput{
		Location: a.Location,
		Floor:    booking.FloorToNumber(a.Floor),
		Lift:     a.LiftAvailable,
	}
}
