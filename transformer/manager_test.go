package transformer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/eddielth/rainwise2mqtt/config"
	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardinalScript = `
function transform(input) {
  var r = JSON.parse(input);
  if (r.wind_direction_current !== undefined) {
    r.wind_direction_cardinal = cardinal(r.wind_direction_current);
  }
  r.dropped = null;
  return r;
}
`

func TestNoScriptIsPassthrough(t *testing.T) {
	m, err := NewManager(config.Transformer{})
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	in := weather.Readings{"humidity_current": 45}
	out, err := m.Transform(in)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestTransformAddsDerivedSensor(t *testing.T) {
	m, err := NewManager(config.Transformer{ScriptCode: cardinalScript})
	require.NoError(t, err)
	require.True(t, m.Enabled())

	out, err := m.Transform(weather.Readings{
		"wind_direction_current": json.Number("270"),
		"temp_air_current":       json.Number("72.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "W", out["wind_direction_cardinal"])
	assert.Equal(t, json.Number("270"), out["wind_direction_current"])
	assert.Equal(t, json.Number("72.5"), out["temp_air_current"])
	assert.NotContains(t, out, "dropped")
}

func TestTransformCanonicalizesNumbers(t *testing.T) {
	m, err := NewManager(config.Transformer{ScriptCode: `function transform(input) { return JSON.parse(input); }`})
	require.NoError(t, err)

	out, err := m.Transform(weather.Readings{
		"battery_volts":    json.Number("4.10"),
		"temp_air_current": json.Number("72.50"),
		"humidity_current": json.Number("45"),
	})
	require.NoError(t, err)

	assert.Equal(t, json.Number("4.1"), out["battery_volts"])
	assert.Equal(t, json.Number("72.5"), out["temp_air_current"])
	assert.Equal(t, json.Number("45"), out["humidity_current"])
}

func TestTransformErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"throws", `function transform(input) { throw new Error("boom"); }`},
		{"returns scalar", `function transform(input) { return 42; }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(config.Transformer{ScriptCode: tt.script})
			require.NoError(t, err)
			_, err = m.Transform(weather.Readings{"a": 1})
			assert.Error(t, err)
		})
	}
}

func TestNewManagerRejectsBadScripts(t *testing.T) {
	_, err := NewManager(config.Transformer{ScriptCode: "function transform( {"})
	assert.Error(t, err)

	_, err = NewManager(config.Transformer{ScriptCode: "var transform = 3;"})
	assert.Error(t, err)

	_, err = NewManager(config.Transformer{ScriptPath: filepath.Join(t.TempDir(), "missing.js")})
	assert.Error(t, err)
}

func TestReloadFromFile(t *testing.T) {
	m, err := NewManager(config.Transformer{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "t.js")
	require.NoError(t, os.WriteFile(path, []byte(`function transform(input) { var r = JSON.parse(input); r.ok = validateRange(r.v, 0, 10); return r; }`), 0644))

	require.NoError(t, m.Reload(config.Transformer{ScriptPath: path}))
	out, err := m.Transform(weather.Readings{"v": 5})
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])

	// a broken reload keeps the previous script
	assert.Error(t, m.Reload(config.Transformer{ScriptCode: "function ("}))
	assert.True(t, m.Enabled())

	require.NoError(t, m.Reload(config.Transformer{}))
	assert.False(t, m.Enabled())
}

func TestCardinal(t *testing.T) {
	m, err := NewManager(config.Transformer{ScriptCode: `function transform(input) {
	  return {a: cardinal(0), b: cardinal(11.2), c: cardinal(11.3), d: cardinal(359), e: cardinal(-90), f: cardinal(135)};
	}`})
	require.NoError(t, err)

	out, err := m.Transform(weather.Readings{})
	require.NoError(t, err)
	assert.Equal(t, weather.Readings{"a": "N", "b": "N", "c": "NNE", "d": "N", "e": "W", "f": "SE"}, out)
}
