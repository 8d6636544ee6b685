package booking

import (
	"regexp"
	"strings"
)

// Address is a pickup or delivery address value object.
type Address struct {
	Location      string `json:"location"`
	Floor         Floor  `json:"floor"`
	LiftAvailable bool   `json:"liftAvailable"`
	PropertyType  string `json:"propertyType"`
	Postcode      string `json:"postcode"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2"`
	City          string `json:"city"`
	Country       string `json:"country"`
	ContactName   string `json:"contactName"`
	ContactPhone  string `json:"contactPhone"`
	FlatNo        string `json:"flatNo"`
}

// AddressPatch carries the fields to merge into an Address. Nil fields are left untouched.
type AddressPatch struct {
	Location      *string `json:"location,omitempty"`
	Floor         *Floor  `json:"floor,omitempty"`
	LiftAvailable *bool   `json:"liftAvailable,omitempty"`
	PropertyType  *string `json:"propertyType,omitempty"`
	Postcode      *string `json:"postcode,omitempty"`
	AddressLine1  *string `json:"addressLine1,omitempty"`
	AddressLine2  *string `json:"addressLine2,omitempty"`
	City          *string `json:"city,omitempty"`
	Country       *string `json:"country,omitempty"`
	ContactName   *string `json:"contactName,omitempty"`
	ContactPhone  *string `json:"contactPhone,omitempty"`
	FlatNo        *string `json:"flatNo,omitempty"`
}

// Apply returns a copy of a with the patch merged in.
func (p AddressPatch) Apply(a Address) Address {
	setString(&a.Location, p.Location)
	if p.Floor != nil {
		a.Floor = *p.Floor
	}
	if p.LiftAvailable != nil {
		a.LiftAvailable = *p.LiftAvailable
	}
	setString(&a.PropertyType, p.PropertyType)
	setString(&a.Postcode, p.Postcode)
	setString(&a.AddressLine1, p.AddressLine1)
	setString(&a.AddressLine2, p.AddressLine2)
	setString(&a.City, p.City)
	setString(&a.Country, p.Country)
	setString(&a.ContactName, p.ContactName)
	setString(&a.ContactPhone, p.ContactPhone)
	setString(&a.FlatNo, p.FlatNo)
	return a
}

// Stop is an extra waypoint between pickup and delivery.
type Stop struct {
	Address       string `json:"address"`
	PropertyType  string `json:"propertyType"`
	Floor         Floor  `json:"floor"`
	LiftAvailable bool   `json:"liftAvailable"`
	DoorFlatNo    string `json:"doorFlatNo"`
}

// DefaultStopPropertyType is applied to stops added without a property type.
const DefaultStopPropertyType = "Studio"

// NewStop builds a stop with the wizard defaults applied to unset fields.
func NewStop(address string, patch StopPatch) Stop {
	s := Stop{
		Address:      address,
		PropertyType: DefaultStopPropertyType,
		Floor:        FloorGround,
	}
	patch.Address = nil
	s = patch.Apply(s)
	if s.PropertyType == "" {
		s.PropertyType = DefaultStopPropertyType
	}
	return s
}

// StopPatch carries the fields to merge into a Stop.
type StopPatch struct {
	Address       *string `json:"address,omitempty"`
	PropertyType  *string `json:"propertyType,omitempty"`
	Floor         *Floor  `json:"floor,omitempty"`
	LiftAvailable *bool   `json:"liftAvailable,omitempty"`
	DoorFlatNo    *string `json:"doorFlatNo,omitempty"`
}

// Apply returns a copy of s with the patch merged in.
func (p StopPatch) Apply(s Stop) Stop {
	setString(&s.Address, p.Address)
	setString(&s.PropertyType, p.PropertyType)
	if p.Floor != nil {
		s.Floor = *p.Floor
	}
	if p.LiftAvailable != nil {
		s.LiftAvailable = *p.LiftAvailable
	}
	setString(&s.DoorFlatNo, p.DoorFlatNo)
	return s
}

var (
	ukPostcodeRegex = regexp.MustCompile(`(?i)[A-Z]{1,2}[0-9][0-9A-Z]?\s?[0-9][A-Z]{2}`)
	trailingUKRegex = regexp.MustCompile(`,?\s*UK,?$`)
)

// FormatAddressWithPostcode appends the postcode and country to an autocomplete
// description unless it already carries a UK postcode.
func FormatAddressWithPostcode(address, postcode string) string {
	clean := address
	trimmed := strings.TrimSpace(clean)
	if strings.HasSuffix(trimmed, "UK") || strings.HasSuffix(trimmed, "UK,") {
		clean = trailingUKRegex.ReplaceAllString(clean, "")
	}
	if !ukPostcodeRegex.MatchString(clean) {
		return clean + " " + postcode + ", UK"
	}
	return clean + ", UK"
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Prediction is one address autocomplete suggestion.
type Prediction struct {
	Description string `json:"description"`
	PlaceID     string `json:"place_id"`
}
