package booking

import "fmt"

// VanType is the size of van requested for the move.
type VanType string

const (
	VanSmall  VanType = "Small"
	VanMedium VanType = "Medium"
	VanLarge  VanType = "Large"
	VanLuton  VanType = "Luton"
)

var vanCycle = []VanType{VanSmall, VanMedium, VanLarge, VanLuton}

// IsValid returns true if the van type is recognized.
func (v VanType) IsValid() bool {
	for _, t := range vanCycle {
		if t == v {
			return true
		}
	}
	return false
}

// Next returns the following van type in the toggle cycle. An unset type starts at Small.
func (v VanType) Next() VanType {
	for i, t := range vanCycle {
		if t == v {
			return vanCycle[(i+1)%len(vanCycle)]
		}
	}
	return VanSmall
}

// OrDefault returns Small when the type is unset.
func (v VanType) OrDefault() VanType {
	if v == "" {
		return VanSmall
	}
	return v
}

// ParseVanType converts a string to a VanType, returning an error if invalid.
func ParseVanType(s string) (VanType, error) {
	v := VanType(s)
	if !v.IsValid() {
		return "", fmt.Errorf("invalid van type: %s", s)
	}
	return v, nil
}

// Van is the van selection value object.
type Van struct {
	Type VanType `json:"type"`
}
