package weather

import (
	"fmt"
	"strings"
)

// RawReading is the decoded weather.json document as returned by the station.
type RawReading map[string]interface{}

// Readings is the flat sensor-id → value map produced by Normalize.
// Values are passed through with the type they had in the raw document.
type Readings map[string]interface{}

// UnitSystem selects which measurement sub-tree of the raw document is read.
type UnitSystem string

const (
	// US customary units (°F, inHg, mph, in)
	US UnitSystem = "us"
	// Metric units
	Metric UnitSystem = "metric"
)

// ParseUnitSystem parses a unit system name, case-insensitively.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch UnitSystem(strings.ToLower(strings.TrimSpace(s))) {
	case US:
		return US, nil
	case Metric:
		return Metric, nil
	default:
		return "", fmt.Errorf("unknown unit system: %q", s)
	}
}

// Keys returns the sensor ids present in r.
func (r Readings) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

// Compact removes every entry whose value is nil.
func (r Readings) Compact() Readings {
	for k, v := range r {
		if v == nil {
			delete(r, k)
		}
	}
	return r
}
