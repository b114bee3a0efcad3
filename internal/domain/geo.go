package domain

import (
	"strconv"
	"strings"
)

// Coordinate is a validated geographic point extracted from result rows.
type Coordinate struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	Info string  `json:"info"`
}

// ValidLonLat reports whether the pair falls inside WGS84 bounds.
func ValidLonLat(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// ParseCoordinate converts a raw cell value into a coordinate component.
// Besides plain floats it accepts array-like string encodings such as
// "[44.3, 48.0]" left over from upstream ingestion; for those the first
// element is taken when last is false and the last element otherwise.
// Returns false for nulls, empty strings, and unparseable values.
func ParseCoordinate(v any, last bool) (float64, bool) {
	switch val := v.(type) {
	case nil:
		return 0, false
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		return parseCoordinateString(val, last)
	default:
		return 0, false
	}
}

func parseCoordinateString(s string, last bool) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "nan" || s == "None" {
		return 0, false
	}

	if strings.HasPrefix(s, "[") {
		parts := strings.Split(strings.Trim(s, "[]"), ",")
		if len(parts) == 0 {
			return 0, false
		}
		if last {
			s = strings.TrimSpace(parts[len(parts)-1])
		} else {
			s = strings.TrimSpace(parts[0])
		}
		if s == "" {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
