package booking

// Snapshot is an immutable copy of a draft, as returned to callers and streamed to clients.
type Snapshot struct {
	Pickup             Address            `json:"pickup"`
	Delivery           Address            `json:"delivery"`
	ExtraStops         []Stop             `json:"extraStops"`
	Items              []Item             `json:"items"`
	Van                Van                `json:"van"`
	SelectedDate       Schedule           `json:"selectedDate"`
	ItemsToDismantle   int                `json:"itemsToDismantle"`
	ItemsToAssemble    int                `json:"itemsToAssemble"`
	AdditionalServices AdditionalServices `json:"additionalServices"`
	CustomerDetails    CustomerDetails    `json:"customerDetails"`
	ServiceDetails     ServiceDetails     `json:"serviceDetails"`
	Journey            Journey            `json:"journey"`
	JourneyStatus      CalcStatus         `json:"journeyStatus"`
	TotalPrice         *float64           `json:"totalPrice"`
	PriceStatus        CalcStatus         `json:"priceStatus"`
	QuoteRef           string             `json:"quoteRef,omitempty"`
	BookingRef         string             `json:"bookingRef,omitempty"`
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	s.ExtraStops = append([]Stop{}, s.ExtraStops...)
	s.Items = append([]Item{}, s.Items...)
	s.AdditionalServices.Dismantling = append([]string{}, s.AdditionalServices.Dismantling...)
	s.AdditionalServices.Reassembly = append([]string{}, s.AdditionalServices.Reassembly...)
	if s.TotalPrice != nil {
		p := *s.TotalPrice
		s.TotalPrice = &p
	}
	return s
}

// Waypoints returns pickup, each extra stop in stored order, then delivery.
func (s Snapshot) Waypoints() []string {
	out := make([]string, 0, len(s.ExtraStops)+2)
	out = append(out, s.Pickup.Location)
	for _, st := range s.ExtraStops {
		out = append(out, st.Address)
	}
	return append(out, s.Delivery.Location)
}
