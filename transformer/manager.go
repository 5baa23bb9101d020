package transformer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/eddielth/rainwise2mqtt/config"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/eddielth/rainwise2mqtt/weather"
)

// Manager holds the optional readings transform script. With no script
// configured, Transform returns its input unchanged.
type Manager struct {
	transformer *Transformer
	mutex       sync.RWMutex
}

// Transformer is one compiled transform script
type Transformer struct {
	vm         *goja.Runtime
	transform  goja.Callable
	scriptPath string
}

var compass = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// NewManager creates a transformer manager from configuration
func NewManager(cfg config.Transformer) (*Manager, error) {
	manager := &Manager{}

	t, err := load(cfg)
	if err != nil {
		return nil, err
	}
	manager.transformer = t
	if t != nil {
		logger.Info("loaded readings transformer %s", describe(cfg))
	}

	return manager, nil
}

func describe(cfg config.Transformer) string {
	if cfg.ScriptCode != "" {
		return "(inline)"
	}
	return cfg.ScriptPath
}

// load compiles the configured script; nil when none is configured
func load(cfg config.Transformer) (*Transformer, error) {
	var scriptCode string

	// inline code takes precedence over the script file
	if cfg.ScriptCode != "" {
		scriptCode = cfg.ScriptCode
	} else if cfg.ScriptPath != "" {
		scriptBytes, err := os.ReadFile(cfg.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("cannot load script file %s: %v", cfg.ScriptPath, err)
		}
		scriptCode = string(scriptBytes)
	} else {
		return nil, nil
	}

	return newTransformer(scriptCode, cfg.ScriptPath)
}

// newTransformer creates a new transformer
func newTransformer(scriptCode, scriptPath string) (*Transformer, error) {
	vm := goja.New()

	_ = vm.Set("log", func(msg string) {
		logger.Info("[JS] %s", msg)
	})

	_ = vm.Set("parseJSON", func(jsonStr string) interface{} {
		var data interface{}
		err := json.Unmarshal([]byte(jsonStr), &data)
		if err != nil {
			logger.Warn("failed to parse JSON: %v", err)
			return nil
		}
		return data
	})

	_ = vm.Set("formatDate", func(timestamp int64, format string) string {
		if format == "" {
			format = "2006-01-02 15:04:05"
		}
		return time.Unix(timestamp, 0).Format(format)
	})

	// 16-point compass name for a bearing in degrees
	_ = vm.Set("cardinal", func(degrees float64) string {
		d := math.Mod(degrees, 360)
		if d < 0 {
			d += 360
		}
		return compass[int(math.Floor(d/22.5+0.5))%len(compass)]
	})

	_ = vm.Set("validateRange", func(value float64, min float64, max float64) bool {
		return value >= min && value <= max
	})

	_, err := vm.RunString(scriptCode)
	if err != nil {
		return nil, fmt.Errorf("failed to run script: %v", err)
	}

	transformValue := vm.Get("transform")
	if transformValue == nil {
		return nil, fmt.Errorf("script does not define a 'transform' function")
	}

	transform, ok := goja.AssertFunction(transformValue)
	if !ok {
		return nil, fmt.Errorf("'transform' is not a function")
	}

	return &Transformer{
		vm:         vm,
		transform:  transform,
		scriptPath: scriptPath,
	}, nil
}

// Enabled reports whether a script is loaded
func (m *Manager) Enabled() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.transformer != nil
}

// Transform passes the readings, as a JSON string, to the script's
// transform function and returns the object it produces. Null values in
// the result are dropped. Numbers pass through JavaScript doubles, so
// their text is canonicalized: 4.10 comes back as 4.1 and 1e2 as 100.
func (m *Manager) Transform(readings weather.Readings) (weather.Readings, error) {
	m.mutex.RLock()
	transformer := m.transformer
	m.mutex.RUnlock()

	if transformer == nil {
		return readings, nil
	}

	input, err := json.Marshal(readings)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize readings: %v", err)
	}

	result, err := transformer.transform(goja.Undefined(), transformer.vm.ToValue(string(input)))
	if err != nil {
		return nil, fmt.Errorf("failed to execute transform: %v", err)
	}

	jsResult := result.Export()
	if _, ok := jsResult.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("transform must return an object, got %T", jsResult)
	}

	jsonData, err := json.Marshal(jsResult)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transform result: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var out weather.Readings
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode transform result: %v", err)
	}

	return out.Compact(), nil
}

// Reload replaces the script. An empty configuration disables the transformer.
func (m *Manager) Reload(cfg config.Transformer) error {
	t, err := load(cfg)
	if err != nil {
		return fmt.Errorf("failed to create transformer: %v", err)
	}

	m.mutex.Lock()
	m.transformer = t
	m.mutex.Unlock()

	if t == nil {
		logger.Info("readings transformer disabled")
	} else {
		logger.Info("reloaded readings transformer %s", describe(cfg))
	}
	return nil
}
