package booking

import (
	"strconv"
	"strings"
)

const (
	notAvailable        = "NA"
	defaultPropertyType = "standard"
	defaultRoute        = "default route"
)

// QuotePayload is the body of the backend's quote create and update calls.
type QuotePayload struct {
	QuotationRef     string          `json:"quotationRef,omitempty"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	PhoneNumber      string          `json:"phoneNumber"`
	Price            float64         `json:"price"`
	Distance         int             `json:"distance"`
	Route            string          `json:"route"`
	Duration         string          `json:"duration"`
	PickupDate       string          `json:"pickupDate"`
	PickupTime       string          `json:"pickupTime"`
	PickupAddress    PostalAddress   `json:"pickupAddress"`
	DropDate         string          `json:"dropDate"`
	DropTime         string          `json:"dropTime"`
	DropAddress      PostalAddress   `json:"dropAddress"`
	VanType          VanType         `json:"vanType"`
	Worker           int             `json:"worker"`
	ItemsToDismantle int             `json:"itemsToDismantle"`
	ItemsToAssemble  int             `json:"itemsToAssemble"`
	Stoppage         []QuoteStop     `json:"stoppage"`
	PickupLocation   QuoteLocation   `json:"pickupLocation"`
	DropLocation     QuoteLocation   `json:"dropLocation"`
	Details          QuoteDetailsDTO `json:"details"`
}

// PostalAddress is the contact block of a pickup or drop address.
type PostalAddress struct {
	Postcode     string `json:"postcode"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	Country      string `json:"country"`
	ContactName  string `json:"contactName"`
	ContactPhone string `json:"contactPhone"`
}

// QuoteStop is an extra stop as carried in the quote payload.
type QuoteStop struct {
	Address      string `json:"address"`
	PropertyType string `json:"propertyType"`
	Floor        int    `json:"floor"`
	Lift         bool   `json:"lift"`
	DoorNumber   string `json:"doorNumber"`
}

// QuoteLocation is a location with its canonical floor and property type.
type QuoteLocation struct {
	Location     string `json:"location"`
	Floor        int    `json:"floor"`
	Lift         bool   `json:"lift"`
	PropertyType string `json:"propertyType"`
}

// QuoteItems lists item names and quantities as parallel arrays.
type QuoteItems struct {
	Name     []string `json:"name"`
	Quantity []int    `json:"quantity"`
}

// QuoteDetailsDTO is the free-form details block of the quote payload.
type QuoteDetailsDTO struct {
	Service             ServiceKind `json:"service"`
	Items               QuoteItems  `json:"items"`
	IsBusinessCustomer  bool        `json:"isBusinessCustomer"`
	MotorBike           string      `json:"motorBike"`
	Piano               string      `json:"piano"`
	SpecialRequirements string      `json:"specialRequirements"`
	PickupFlatNo        string      `json:"pickupFlatNo"`
	DropFlatNo          string      `json:"dropFlatno"`
}

// BuildQuotePayload flattens a snapshot into the quote submission shape.
// A non-empty quote ref on the snapshot is carried for updates.
func BuildQuotePayload(s Snapshot) QuotePayload {
	p := QuotePayload{
		QuotationRef:     s.QuoteRef,
		Username:         orDefault(s.CustomerDetails.Name, notAvailable),
		Email:            orDefault(s.ServiceDetails.QuoteEmail, orDefault(s.CustomerDetails.Email, notAvailable)),
		PhoneNumber:      orDefault(s.CustomerDetails.Phone, notAvailable),
		Distance:         leadingInt(s.Journey.Distance),
		Route:            defaultRoute,
		Duration:         orDefault(s.Journey.Duration, "N/A"),
		PickupDate:       orDefault(s.SelectedDate.Date, notAvailable),
		PickupTime:       orDefault(s.SelectedDate.PickupTime, DefaultPickupTime),
		PickupAddress:    postalAddress(s.Pickup),
		DropDate:         orDefault(s.SelectedDate.Date, notAvailable),
		DropTime:         orDefault(s.SelectedDate.DropTime, DefaultDropTime),
		DropAddress:      postalAddress(s.Delivery),
		VanType:          s.Van.Type.OrDefault(),
		Worker:           s.SelectedDate.NumberOfMovers,
		ItemsToDismantle: s.ItemsToDismantle,
		ItemsToAssemble:  s.ItemsToAssemble,
		Stoppage:         make([]QuoteStop, 0, len(s.ExtraStops)),
		PickupLocation:   quoteLocation(s.Pickup),
		DropLocation:     quoteLocation(s.Delivery),
		Details: QuoteDetailsDTO{
			Service:             s.ServiceDetails.Service,
			Items:               QuoteItems{Name: make([]string, 0, len(s.Items)), Quantity: make([]int, 0, len(s.Items))},
			IsBusinessCustomer:  s.CustomerDetails.IsBusinessCustomer,
			MotorBike:           s.ServiceDetails.MotorbikeType,
			Piano:               s.ServiceDetails.PianoType,
			SpecialRequirements: s.AdditionalServices.SpecialRequirements,
			PickupFlatNo:        s.Pickup.FlatNo,
			DropFlatNo:          s.Delivery.FlatNo,
		},
	}
	if s.TotalPrice != nil {
		p.Price = *s.TotalPrice
	}
	for _, st := range s.ExtraStops {
		p.Stoppage = append(p.Stoppage, QuoteStop{
			Address:      st.Address,
			PropertyType: st.PropertyType,
			Floor:        FloorToNumber(st.Floor),
			Lift:         st.LiftAvailable,
			DoorNumber:   st.DoorFlatNo,
		})
	}
	for _, it := range s.Items {
		p.Details.Items.Name = append(p.Details.Items.Name, it.Name)
		p.Details.Items.Quantity = append(p.Details.Items.Quantity, it.Quantity)
	}
	return p
}

func postalAddress(a Address) PostalAddress {
	return PostalAddress{
		Postcode:     a.Postcode,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		Country:      a.Country,
		ContactName:  a.ContactName,
		ContactPhone: a.ContactPhone,
	}
}

func quoteLocation(a Address) QuoteLocation {
	return QuoteLocation{
		Location:     orDefault(a.Location, "N/A"),
		Floor:        FloorToNumber(a.Floor),
		Lift:         a.LiftAvailable,
		PropertyType: orDefault(a.PropertyType, defaultPropertyType),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// leadingInt parses the integer prefix of s, e.g. "12.3 mi" yields 12. No digits yields 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
