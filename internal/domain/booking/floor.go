package booking

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Floor is the canonical floor ordinal, Ground (0) through "5th floor +" (5).
type Floor int

const (
	FloorGround Floor = iota
	FloorFirst
	FloorSecond
	FloorThird
	FloorFourth
	FloorFifthPlus
)

// floorLabels is the one lookup table between UI floor labels and ordinals.
var floorLabels = []string{
	"Ground floor",
	"1st floor",
	"2nd floor",
	"3rd floor",
	"4th floor",
	"5th floor +",
}

// IsValid returns true if the floor is one of the six canonical ordinals.
func (f Floor) IsValid() bool {
	return f >= FloorGround && f <= FloorFifthPlus
}

// Label returns the display label for the floor.
func (f Floor) Label() string {
	if !f.IsValid() {
		return ""
	}
	return floorLabels[f]
}

// FloorLabels returns the canonical labels in ordinal order.
func FloorLabels() []string {
	out := make([]string, len(floorLabels))
	copy(out, floorLabels)
	return out
}

func lookupFloorLabel(label string) (Floor, bool) {
	for i, l := range floorLabels {
		if l == label {
			return Floor(i), true
		}
	}
	return 0, false
}

// FloorToNumber maps a floor value of any accepted shape to its ordinal.
// Whole numbers pass through unchanged, canonical labels map through the label
// table, and anything else (unknown labels, fractional numbers, nil) yields 0.
func FloorToNumber(v any) int {
	switch f := v.(type) {
	case Floor:
		return int(f)
	case int:
		return f
	case int64:
		return int(f)
	case float64:
		if f != math.Trunc(f) {
			return 0
		}
		return int(f)
	case string:
		if n, ok := lookupFloorLabel(f); ok {
			return int(n)
		}
		return 0
	default:
		return 0
	}
}

// ParseFloor is the strict counterpart of FloorToNumber used on input:
// the value must be a canonical label or an ordinal in 0..5.
func ParseFloor(v any) (Floor, error) {
	switch f := v.(type) {
	case Floor:
		if f.IsValid() {
			return f, nil
		}
	case int:
		if Floor(f).IsValid() {
			return Floor(f), nil
		}
	case float64:
		if f == math.Trunc(f) && Floor(int(f)).IsValid() {
			return Floor(int(f)), nil
		}
	case string:
		if n, ok := lookupFloorLabel(f); ok {
			return n, nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil && Floor(n).IsValid() {
			return Floor(n), nil
		}
	}
	return 0, fmt.Errorf("invalid floor %v: must be one of %s or 0-5", v, strings.Join(floorLabels, ", "))
}

// MarshalJSON encodes the floor as its ordinal.
func (f Floor) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}

// UnmarshalJSON accepts either an ordinal or a canonical label.
func (f *Floor) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseFloor(raw)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
