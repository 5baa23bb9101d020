package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDevice() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{"rainwise_ip100_station"},
		Name:         "Rainwise IP-100 Weather Station",
		Model:        "IP-100",
		Manufacturer: "Rainwise",
	}
}

func topics(messages []Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.Topic)
	}
	return out
}

func TestGenerateTopicsAreIntersection(t *testing.T) {
	g := NewGenerator("", nil, weather.US)
	readings := weather.Readings{
		"temp_air_current": 72.5,
		"humidity_current": 45,
		"not_in_table":     1,
	}

	messages, err := g.Generate(readings, "rainwise/station/state", testDevice())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"homeassistant/sensor/rainwise_humidity_current/config",
		"homeassistant/sensor/rainwise_temp_air_current/config",
	}, topics(messages))
}

func TestGeneratePayload(t *testing.T) {
	g := NewGenerator("ha", nil, weather.US)
	messages, err := g.Generate(weather.Readings{"temp_air_current": 72.5}, "rainwise/station/state", testDevice())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ha/sensor/rainwise_temp_air_current/config", messages[0].Topic)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].Payload, &cfg))
	assert.Equal(t, "Air Temperature", cfg["name"])
	assert.Equal(t, "rainwise_temp_air_current", cfg["unique_id"])
	assert.Equal(t, "rainwise/station/state", cfg["state_topic"])
	assert.Equal(t, "{{ value_json.temp_air_current }}", cfg["value_template"])
	assert.Equal(t, "°F", cfg["unit_of_measurement"])
	assert.Equal(t, "temperature", cfg["device_class"])
	assert.NotContains(t, cfg, "icon")

	device, ok := cfg["device"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Rainwise IP-100 Weather Station", device["name"])
	assert.Equal(t, []interface{}{"rainwise_ip100_station"}, device["identifiers"])
}

func TestGenerateOmitsEmptyOptionalFields(t *testing.T) {
	g := NewGenerator("", Table{"leaf_wetness_current": {Name: "Leaf Wetness"}}, weather.US)
	messages, err := g.Generate(weather.Readings{"leaf_wetness_current": "dry"}, "s", testDevice())
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].Payload, &cfg))
	assert.NotContains(t, cfg, "unit_of_measurement")
	assert.NotContains(t, cfg, "device_class")
	assert.NotContains(t, cfg, "icon")
}

func TestGenerateMetricUnits(t *testing.T) {
	g := NewGenerator("", nil, weather.Metric)
	messages, err := g.Generate(weather.Readings{"rain_today": 1.5, "humidity_current": 40}, "s", testDevice())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	units := map[string]string{}
	for _, m := range messages {
		var cfg SensorConfig
		require.NoError(t, json.Unmarshal(m.Payload, &cfg))
		units[cfg.UniqueID] = cfg.UnitOfMeasurement
	}
	assert.Equal(t, "mm", units["rainwise_rain_today"])
	assert.Equal(t, "%", units["rainwise_humidity_current"])
}

func TestGenerateIsIdempotent(t *testing.T) {
	g := NewGenerator("", nil, weather.US)
	readings := weather.Readings{
		"battery_volts":      4.1,
		"wind_speed_current": 3,
		"rain_today":         0.2,
		"uv_index_current":   5,
	}

	first, err := g.Generate(readings, "s", testDevice())
	require.NoError(t, err)
	second, err := g.Generate(readings, "s", testDevice())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateEmptyReadings(t *testing.T) {
	g := NewGenerator("", nil, weather.US)
	messages, err := g.Generate(weather.Readings{}, "s", testDevice())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestDefaultTableCoversCurrentSensors(t *testing.T) {
	raw := weather.RawReading{
		"time": "t", "batt": 4.1, "signal": -70, "quality": 90,
		"us": map[string]interface{}{
			"atmp": map[string]interface{}{"ic": 1},
			"rh":   map[string]interface{}{"ic": 1},
			"bp":   map[string]interface{}{"ic": 1},
			"tmp1": map[string]interface{}{"ic": 1},
			"tmp2": map[string]interface{}{"ic": 1},
			"sm":   map[string]interface{}{"ic": 1},
			"itmp": map[string]interface{}{"ic": 1},
			"wnd":  map[string]interface{}{"wic": 1, "wict": 1},
			"rf":   map[string]interface{}{"rfd": 1},
			"sr":   map[string]interface{}{"src": 1},
			"sr2":  map[string]interface{}{"sr2c": 1},
			"uv":   map[string]interface{}{"uvc": 1},
			"lw":   map[string]interface{}{"lwc": 1},
		},
	}
	readings, ok := weather.Normalize(raw, weather.US)
	require.True(t, ok)

	table := DefaultTable()
	for _, id := range readings.Keys() {
		assert.Contains(t, table, id)
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.yaml")
	content := `
rain_today:
  name: Daily Rain
  unit: in
  metric_unit: mm
  icon: mdi:water
custom_sensor:
  name: Custom
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Name: "Daily Rain", Unit: "in", MetricUnit: "mm", Icon: "mdi:water"}, table["rain_today"])
	assert.Equal(t, Metadata{Name: "Custom"}, table["custom_sensor"])
	assert.Contains(t, table, "temp_air_current")

	// the built-in table is not modified by overrides
	assert.Equal(t, "Rain Today", DefaultTable()["rain_today"].Name)
}

func TestLoadMetadataErrors(t *testing.T) {
	_, err := LoadMetadata(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x:\n  unit: V\n"), 0644))
	_, err = LoadMetadata(path)
	assert.Error(t, err)

	table, err := LoadMetadata("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)
}
