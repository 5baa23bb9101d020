package discovery

import (
	"os"
	"path/filepath"

	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Metadata describes how one sensor id is presented in Home Assistant.
// Empty optional fields are left out of the discovery payload.
type Metadata struct {
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit"`
	MetricUnit  string `yaml:"metric_unit"`
	DeviceClass string `yaml:"class"`
	Icon        string `yaml:"icon"`
}

// UnitFor returns the unit of measurement for the given unit system.
func (m Metadata) UnitFor(units weather.UnitSystem) string {
	if units == weather.Metric && m.MetricUnit != "" {
		return m.MetricUnit
	}
	return m.Unit
}

// Table maps sensor ids to their metadata. Sensor ids missing from the
// table are never announced.
type Table map[string]Metadata

// DefaultTable returns a copy of the built-in metadata table.
func DefaultTable() Table {
	t := make(Table, len(defaultTable))
	for k, v := range defaultTable {
		t[k] = v
	}
	return t
}

var defaultTable = Table{
	"timestamp":                 {Name: "Last Report", Icon: "mdi:clock-outline"},
	"battery_volts":             {Name: "Battery", Unit: "V", DeviceClass: "voltage"},
	"signal_dbm":                {Name: "Signal Strength", Unit: "dBm", DeviceClass: "signal_strength"},
	"signal_quality":            {Name: "Signal Quality", Unit: "%", Icon: "mdi:signal"},
	"temp_air_current":          {Name: "Air Temperature", Unit: "°F", MetricUnit: "°C", DeviceClass: "temperature"},
	"humidity_current":          {Name: "Humidity", Unit: "%", DeviceClass: "humidity"},
	"pressure_current":          {Name: "Barometric Pressure", Unit: "inHg", MetricUnit: "hPa", DeviceClass: "pressure"},
	"wind_speed_current":        {Name: "Wind Speed", Unit: "mph", MetricUnit: "km/h", Icon: "mdi:weather-windy"},
	"wind_direction_current":    {Name: "Wind Direction Degrees", Unit: "°", Icon: "mdi:compass-outline"},
	"wind_direction_cardinal":   {Name: "Wind Direction", Icon: "mdi:compass-rose"},
	"rain_today":                {Name: "Rain Today", Unit: "in", MetricUnit: "mm", Icon: "mdi:weather-rainy"},
	"solar_radiation_current":   {Name: "Solar Radiation", Unit: "W/m²", Icon: "mdi:weather-sunny"},
	"solar_radiation_2_current": {Name: "Solar Radiation 2", Unit: "W/m²", Icon: "mdi:weather-sunny"},
	"uv_index_current":          {Name: "UV Index", Icon: "mdi:sun-wireless"},
	"leaf_wetness_current":      {Name: "Leaf Wetness", Icon: "mdi:leaf"},
	"temp_1_current":            {Name: "Probe Temperature 1", Unit: "°F", MetricUnit: "°C", DeviceClass: "temperature"},
	"temp_2_current":            {Name: "Probe Temperature 2", Unit: "°F", MetricUnit: "°C", DeviceClass: "temperature"},
	"soil_moisture_current":     {Name: "Soil Moisture", Unit: "cb (kPa)", Icon: "mdi:water-percent"},
	"temp_inside_current":       {Name: "Inside Temperature", Unit: "°F", MetricUnit: "°C", DeviceClass: "temperature"},
}

// LoadMetadata reads a YAML metadata file and merges it over the built-in
// table. Entries in the file replace built-in entries with the same id.
// An empty path returns the built-in table.
func LoadMetadata(path string) (Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "read metadata file %s", path)
	}

	var overrides Table
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return nil, errors.Wrapf(err, "parse metadata file %s", path)
	}

	for id, meta := range overrides {
		if meta.Name == "" {
			return nil, errors.Errorf("metadata for %s has no name", id)
		}
		table[id] = meta
	}
	return table, nil
}
