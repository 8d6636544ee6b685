package booking

import (
	"fmt"
	"time"

	"github.com/reliancemove/service-quote/internal/common/domain"
)

// Role selects the pickup or delivery address.
type Role string

const (
	RolePickup   Role = "pickup"
	RoleDelivery Role = "delivery"
)

// ParseRole converts a string to a Role, returning an error if invalid.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePickup, RoleDelivery:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid address role: %s", s)
	}
}

// CalcStatus tracks a server-computed field (price or journey) relative to the inputs it depends on.
type CalcStatus string

const (
	CalcIdle    CalcStatus = "idle"
	CalcPending CalcStatus = "pending"
	CalcReady   CalcStatus = "ready"
	CalcFailed  CalcStatus = "failed"
)

// Draft is the aggregate root for an in-progress moving quote.
// Every mutation reports the field groups it changed; a nil result means nothing changed.
type Draft struct {
	pickup             Address
	delivery           Address
	extraStops         []Stop
	items              []Item
	van                Van
	schedule           Schedule
	itemsToDismantle   int
	itemsToAssemble    int
	additionalServices AdditionalServices
	customerDetails    CustomerDetails
	serviceDetails     ServiceDetails

	journey       Journey
	journeyStatus CalcStatus
	totalPrice    *float64
	priceStatus   CalcStatus

	quoteRef   string
	bookingRef string
}

// NewDraft creates an empty draft with the wizard-start defaults.
func NewDraft(now time.Time) *Draft {
	d := &Draft{}
	d.Reset(now)
	return d
}

// ReconstructDraft rebuilds a Draft from a snapshot (no validation).
func ReconstructDraft(s Snapshot) *Draft {
	c := s.Clone()
	return &Draft{
		pickup:             c.Pickup,
		delivery:           c.Delivery,
		extraStops:         c.ExtraStops,
		items:              c.Items,
		van:                c.Van,
		schedule:           c.SelectedDate,
		itemsToDismantle:   c.ItemsToDismantle,
		itemsToAssemble:    c.ItemsToAssemble,
		additionalServices: c.AdditionalServices,
		customerDetails:    c.CustomerDetails,
		serviceDetails:     c.ServiceDetails,
		journey:            c.Journey,
		journeyStatus:      c.JourneyStatus,
		totalPrice:         c.TotalPrice,
		priceStatus:        c.PriceStatus,
		quoteRef:           c.QuoteRef,
		bookingRef:         c.BookingRef,
	}
}

// Reset returns the draft to the wizard-start defaults.
func (d *Draft) Reset(now time.Time) Groups {
	*d = Draft{
		extraStops:         []Stop{},
		items:              []Item{},
		schedule:           DefaultSchedule(now),
		additionalServices: AdditionalServices{BasicCompensation: true, Dismantling: []string{}, Reassembly: []string{}},
		journeyStatus:      CalcIdle,
		priceStatus:        CalcIdle,
	}
	return AllGroups
}

// --- Getters ---

// Pickup returns the pickup address.
func (d *Draft) Pickup() Address { return d.pickup }

// Delivery returns the delivery address.
func (d *Draft) Delivery() Address { return d.delivery }

// ExtraStops returns a copy of the ordered extra stops.
func (d *Draft) ExtraStops() []Stop { return append([]Stop{}, d.extraStops...) }

// Items returns a copy of the items.
func (d *Draft) Items() []Item { return append([]Item{}, d.items...) }

// Van returns the van selection.
func (d *Draft) Van() Van { return d.van }

// Schedule returns the selected date and movers.
func (d *Draft) Schedule() Schedule { return d.schedule }

// TotalPrice returns the last good price, or nil if none has landed.
func (d *Draft) TotalPrice() *float64 { return d.totalPrice }

// PriceStatus returns whether the price is current for the draft's inputs.
func (d *Draft) PriceStatus() CalcStatus { return d.priceStatus }

// Journey returns the last committed journey summary.
func (d *Draft) Journey() Journey { return d.journey }

// QuoteRef returns the server-issued quotation reference, or "".
func (d *Draft) QuoteRef() string { return d.quoteRef }

// BookingRef returns the server-issued booking reference, or "".
func (d *Draft) BookingRef() string { return d.bookingRef }

// Waypoints returns pickup, each extra stop in stored order, then delivery.
func (d *Draft) Waypoints() []string {
	return d.Snapshot().Waypoints()
}

// Snapshot returns a deep copy of the draft state.
func (d *Draft) Snapshot() Snapshot {
	s := Snapshot{
		Pickup:             d.pickup,
		Delivery:           d.delivery,
		ExtraStops:         d.extraStops,
		Items:              d.items,
		Van:                d.van,
		SelectedDate:       d.schedule,
		ItemsToDismantle:   d.itemsToDismantle,
		ItemsToAssemble:    d.itemsToAssemble,
		AdditionalServices: d.additionalServices,
		CustomerDetails:    d.customerDetails,
		ServiceDetails:     d.serviceDetails,
		Journey:            d.journey,
		JourneyStatus:      d.journeyStatus,
		TotalPrice:         d.totalPrice,
		PriceStatus:        d.priceStatus,
		QuoteRef:           d.quoteRef,
		BookingRef:         d.bookingRef,
	}
	return s.Clone()
}

// --- Behavior: user input ---

// UpdateAddress merges patch into the pickup or delivery address.
func (d *Draft) UpdateAddress(role Role, patch AddressPatch) (Groups, error) {
	if patch.Floor != nil && !patch.Floor.IsValid() {
		return nil, domain.NewFieldValidationError(string(role)+".floor", fmt.Sprintf("invalid floor: %d", *patch.Floor))
	}
	switch role {
	case RolePickup:
		next := patch.Apply(d.pickup)
		if next == d.pickup {
			return nil, nil
		}
		d.pickup = next
		return Groups{GroupPickup}, nil
	case RoleDelivery:
		next := patch.Apply(d.delivery)
		if next == d.delivery {
			return nil, nil
		}
		d.delivery = next
		return Groups{GroupDelivery}, nil
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("invalid address role: %s", role))
	}
}

// AddStop appends an extra stop after any existing ones.
func (d *Draft) AddStop(stop Stop) (Groups, error) {
	if stop.Address == "" {
		return nil, domain.NewFieldValidationError("extraStops.address", "stop address is required")
	}
	if !stop.Floor.IsValid() {
		return nil, domain.NewFieldValidationError("extraStops.floor", fmt.Sprintf("invalid floor: %d", stop.Floor))
	}
	if stop.PropertyType == "" {
		stop.PropertyType = DefaultStopPropertyType
	}
	d.extraStops = append(d.extraStops, stop)
	return Groups{GroupExtraStops}, nil
}

// RemoveStop removes the stop at index. An index outside [0, len) is a no-op.
func (d *Draft) RemoveStop(index int) Groups {
	if index < 0 || index >= len(d.extraStops) {
		return nil
	}
	next := make([]Stop, 0, len(d.extraStops)-1)
	next = append(next, d.extraStops[:index]...)
	d.extraStops = append(next, d.extraStops[index+1:]...)
	return Groups{GroupExtraStops}
}

// UpdateStop merges patch into the stop at index.
func (d *Draft) UpdateStop(index int, patch StopPatch) (Groups, error) {
	if index < 0 || index >= len(d.extraStops) {
		return nil, domain.NewFieldValidationError("extraStops", fmt.Sprintf("stop index %d out of range", index))
	}
	if patch.Floor != nil && !patch.Floor.IsValid() {
		return nil, domain.NewFieldValidationError("extraStops.floor", fmt.Sprintf("invalid floor: %d", *patch.Floor))
	}
	if patch.Address != nil && *patch.Address == "" {
		return nil, domain.NewFieldValidationError("extraStops.address", "stop address is required")
	}
	next := patch.Apply(d.extraStops[index])
	if next == d.extraStops[index] {
		return nil, nil
	}
	stops := d.ExtraStops()
	stops[index] = next
	d.extraStops = stops
	return Groups{GroupExtraStops}, nil
}

// MoveStop moves the stop at from so that it ends up at index to.
func (d *Draft) MoveStop(from, to int) (Groups, error) {
	n := len(d.extraStops)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, domain.NewFieldValidationError("extraStops", fmt.Sprintf("cannot move stop %d to %d", from, to))
	}
	if from == to {
		return nil, nil
	}
	stops := d.ExtraStops()
	moved := stops[from]
	stops = append(stops[:from], stops[from+1:]...)
	stops = append(stops[:to], append([]Stop{moved}, stops[to:]...)...)
	d.extraStops = stops
	return Groups{GroupExtraStops}, nil
}

// SetItems replaces the item list. Names must be unique and quantities positive.
func (d *Draft) SetItems(items []Item) (Groups, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Name == "" {
			return nil, domain.NewFieldValidationError("items.name", "item name is required")
		}
		if it.Quantity <= 0 {
			return nil, domain.NewFieldValidationError("items.quantity", fmt.Sprintf("quantity for %s must be positive", it.Name))
		}
		if _, dup := seen[it.Name]; dup {
			return nil, domain.NewFieldValidationError("items.name", fmt.Sprintf("duplicate item: %s", it.Name))
		}
		seen[it.Name] = struct{}{}
	}
	d.items = append([]Item{}, items...)
	return Groups{GroupItems}, nil
}

// AddItem adds one of the named item. Adding a name already present increments its quantity.
func (d *Draft) AddItem(name string) (Groups, error) {
	if name == "" {
		return nil, domain.NewFieldValidationError("items.name", "item name is required")
	}
	items := d.Items()
	if i := indexOfItem(items, name); i >= 0 {
		items[i].Quantity++
	} else {
		items = append(items, Item{Name: name, Quantity: 1})
	}
	d.items = items
	return Groups{GroupItems}, nil
}

// UpdateItemQuantity sets the quantity of the named item. A quantity <= 0 removes it.
func (d *Draft) UpdateItemQuantity(name string, qty int) Groups {
	if qty <= 0 {
		return d.RemoveItem(name)
	}
	i := indexOfItem(d.items, name)
	if i < 0 || d.items[i].Quantity == qty {
		return nil
	}
	items := d.Items()
	items[i].Quantity = qty
	d.items = items
	return Groups{GroupItems}
}

// RemoveItem removes the named item if present.
func (d *Draft) RemoveItem(name string) Groups {
	i := indexOfItem(d.items, name)
	if i < 0 {
		return nil
	}
	items := d.Items()
	d.items = append(items[:i], items[i+1:]...)
	return Groups{GroupItems}
}

// SetVan selects the van type.
func (d *Draft) SetVan(t VanType) (Groups, error) {
	if !t.IsValid() {
		return nil, domain.NewFieldValidationError("van.type", fmt.Sprintf("invalid van type: %s", t))
	}
	if d.van.Type == t {
		return nil, nil
	}
	d.van.Type = t
	return Groups{GroupVan}, nil
}

// ToggleVan advances the van type through Small, Medium, Large and Luton.
func (d *Draft) ToggleVan() Groups {
	d.van.Type = d.van.Type.Next()
	return Groups{GroupVan}
}

// SetSchedule merges patch into the selected date.
func (d *Draft) SetSchedule(patch SchedulePatch) (Groups, error) {
	next, err := patch.Apply(d.schedule)
	if err != nil {
		return nil, domain.NewFieldValidationError("selectedDate", err.Error())
	}
	if next == d.schedule {
		return nil, nil
	}
	d.schedule = next
	return Groups{GroupSchedule}, nil
}

// SetItemsToDismantle sets the dismantle count.
func (d *Draft) SetItemsToDismantle(n int) (Groups, error) {
	if n < 0 {
		return nil, domain.NewFieldValidationError("itemsToDismantle", "must not be negative")
	}
	if d.itemsToDismantle == n {
		return nil, nil
	}
	d.itemsToDismantle = n
	return Groups{GroupItemsToDismantle}, nil
}

// SetItemsToAssemble sets the assemble count.
func (d *Draft) SetItemsToAssemble(n int) (Groups, error) {
	if n < 0 {
		return nil, domain.NewFieldValidationError("itemsToAssemble", "must not be negative")
	}
	if d.itemsToAssemble == n {
		return nil, nil
	}
	d.itemsToAssemble = n
	return Groups{GroupItemsToAssemble}, nil
}

// SetAdditionalServices merges patch into the additional services.
func (d *Draft) SetAdditionalServices(patch AdditionalServicesPatch) Groups {
	d.additionalServices = patch.Apply(d.additionalServices)
	return Groups{GroupAdditionalServices}
}

// SetCustomerDetails merges patch into the customer details.
func (d *Draft) SetCustomerDetails(patch CustomerDetailsPatch) Groups {
	next := patch.Apply(d.customerDetails)
	if next == d.customerDetails {
		return nil
	}
	d.customerDetails = next
	return Groups{GroupCustomerDetails}
}

// SetServiceDetails merges patch into the service details.
func (d *Draft) SetServiceDetails(patch ServiceDetailsPatch) Groups {
	next := patch.Apply(d.serviceDetails)
	if next == d.serviceDetails {
		return nil
	}
	d.serviceDetails = next
	return Groups{GroupServiceDetails}
}

// --- Behavior: computed fields ---

// MarkPricePending flags the current price as stale while a new one is computed.
func (d *Draft) MarkPricePending() Groups {
	if d.priceStatus == CalcPending {
		return nil
	}
	d.priceStatus = CalcPending
	return Groups{GroupTotalPrice}
}

// MarkPriceIdle clears the price when the draft cannot be priced.
func (d *Draft) MarkPriceIdle() Groups {
	if d.priceStatus == CalcIdle && d.totalPrice == nil {
		return nil
	}
	d.totalPrice = nil
	d.priceStatus = CalcIdle
	return Groups{GroupTotalPrice}
}

// SetTotalPrice commits a fresh price.
func (d *Draft) SetTotalPrice(price float64) Groups {
	d.totalPrice = &price
	d.priceStatus = CalcReady
	return Groups{GroupTotalPrice}
}

// MarkPriceFailed records a failed price computation. The last good price is kept.
func (d *Draft) MarkPriceFailed() Groups {
	d.priceStatus = CalcFailed
	return Groups{GroupTotalPrice}
}

// MarkJourneyPending flags the current journey as stale for the draft's waypoints.
func (d *Draft) MarkJourneyPending() Groups {
	if d.journeyStatus == CalcPending {
		return nil
	}
	d.journeyStatus = CalcPending
	return Groups{GroupJourney}
}

// MarkJourneyIdle clears the journey when the waypoints cannot form a route.
func (d *Draft) MarkJourneyIdle() Groups {
	if d.journeyStatus == CalcIdle && d.journey.Distance == "" && d.journey.Duration == "" && d.journey.Route == nil {
		return nil
	}
	d.journey = Journey{}
	d.journeyStatus = CalcIdle
	return Groups{GroupJourney}
}

// SetJourney commits an aggregated journey.
func (d *Draft) SetJourney(j Journey) Groups {
	d.journey = j
	d.journeyStatus = CalcReady
	return Groups{GroupJourney}
}

// SetJourneyDistance records a fallback distance without committing a route.
func (d *Draft) SetJourneyDistance(distance, duration string) Groups {
	d.journey = Journey{Distance: distance, Duration: duration}
	return Groups{GroupJourney}
}

// MarkJourneyFailed records a failed aggregation. The last journey is kept.
func (d *Draft) MarkJourneyFailed() Groups {
	d.journeyStatus = CalcFailed
	return Groups{GroupJourney}
}

// SetQuoteRef records the quotation reference issued by the backend.
func (d *Draft) SetQuoteRef(ref string) Groups {
	if d.quoteRef == ref {
		return nil
	}
	d.quoteRef = ref
	return Groups{GroupQuoteRef}
}

// SetBookingRef records the booking reference issued after payment.
func (d *Draft) SetBookingRef(ref string) Groups {
	if d.bookingRef == ref {
		return nil
	}
	d.bookingRef = ref
	return Groups{GroupBookingRef}
}
