package pricing

import (
	"fmt"
	"strconv"
	"strings"
)

const milesPerKm = 0.621371

// KmToMiles converts a kilometre text such as "12.3 km" to the long display
// form with two decimals, e.g. "7.64 miles".
func KmToMiles(kmText string) (string, error) {
	km, err := leadingFloat(kmText)
	if err != nil {
		return "", fmt.Errorf("parse kilometres %q: %w", kmText, err)
	}
	return fmt.Sprintf("%.2f miles", km*milesPerKm), nil
}

// leadingFloat parses the numeric prefix of s, ignoring a unit suffix and thousands separators.
func leadingFloat(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	return strconv.ParseFloat(s[:end], 64)
}
