package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/eddielth/rainwise2mqtt/discovery"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/eddielth/rainwise2mqtt/validator"
	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Station     StationConfig        `mapstructure:"station"`
	MQTT        MQTTConfig           `mapstructure:"mqtt"`
	Poll        PollConfig           `mapstructure:"poll"`
	Device      discovery.DeviceInfo `mapstructure:"device"`
	Discovery   DiscoveryConfig      `mapstructure:"discovery"`
	Transformer Transformer          `mapstructure:"transformer"`
	Logger      LoggerConfig         `mapstructure:"logger"`
	Metrics     MetricsConfig        `mapstructure:"metrics"`
}

// StationConfig represents the weather station connection
type StationConfig struct {
	Address         string        `mapstructure:"address"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Units           string        `mapstructure:"units"`
	FieldSets       []string      `mapstructure:"field_sets"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerOpen     time.Duration `mapstructure:"breaker_open"`
}

// MQTTConfig represents the MQTT broker connection
type MQTTConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	QoS             int    `mapstructure:"qos"`
	StateTopic      string `mapstructure:"state_topic"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

// PollConfig represents the poll loop timing
type PollConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// DiscoveryConfig represents Home Assistant discovery settings
type DiscoveryConfig struct {
	MetadataPath string `mapstructure:"metadata_path"`
}

// Transformer represents the optional post-normalize script
type Transformer struct {
	ScriptPath string `mapstructure:"script_path"`
	ScriptCode string `mapstructure:"script_code"`
}

// LoggerConfig represents the logger configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	FilePath string `mapstructure:"file_path"`
	Console  bool   `mapstructure:"console"`
}

// MetricsConfig represents the metrics and health HTTP listener
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ConfigChangeCallback is called with the new configuration when the file changes
type ConfigChangeCallback func(cfg *Config) error

// environment variables per key, first name wins
var envBindings = map[string][]string{
	"station.address":          {"DEVICE_ADDR", "RAINWISE_IP"},
	"station.timeout":          {"DEVICE_TIMEOUT"},
	"station.units":            {"UNIT_SYSTEM"},
	"station.field_sets":       {"FIELD_SETS"},
	"station.breaker_failures": {"FETCH_BREAKER_FAILURES"},
	"station.breaker_open":     {"FETCH_BREAKER_OPEN"},
	"mqtt.host":                {"BROKER_HOST", "MQTT_BROKER"},
	"mqtt.port":                {"BROKER_PORT", "MQTT_PORT"},
	"mqtt.username":            {"BROKER_USER", "MQTT_USERNAME"},
	"mqtt.password":            {"BROKER_PASS", "MQTT_PASSWORD"},
	"mqtt.client_id":           {"MQTT_CLIENT_ID"},
	"mqtt.qos":                 {"MQTT_QOS"},
	"mqtt.state_topic":         {"MQTT_STATE_TOPIC"},
	"mqtt.discovery_prefix":    {"DISCOVERY_PREFIX"},
	"poll.interval_seconds":    {"POLL_INTERVAL_SECONDS", "POLL_INTERVAL"},
	"discovery.metadata_path":  {"DISCOVERY_METADATA"},
	"transformer.script_path":  {"TRANSFORM_SCRIPT"},
	"logger.level":             {"LOG_LEVEL"},
	"logger.file_path":         {"LOG_FILE"},
	"metrics.addr":             {"METRICS_ADDR"},
}

var (
	active   *viper.Viper
	activeMu sync.Mutex
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("station.address", "192.168.86.207")
	v.SetDefault("station.timeout", 10*time.Second)
	v.SetDefault("station.units", string(weather.US))
	v.SetDefault("station.field_sets", []string{string(weather.SetCurrent)})
	v.SetDefault("station.breaker_failures", 0)
	v.SetDefault("station.breaker_open", 5*time.Minute)

	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", "")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.state_topic", "rainwise/station/state")
	v.SetDefault("mqtt.discovery_prefix", discovery.DefaultPrefix)

	v.SetDefault("poll.interval_seconds", 60)

	v.SetDefault("device.identifiers", []string{"rainwise_ip100_station"})
	v.SetDefault("device.name", "Rainwise IP-100 Weather Station")
	v.SetDefault("device.model", "IP-100")
	v.SetDefault("device.manufacturer", "Rainwise")

	v.SetDefault("discovery.metadata_path", "")
	v.SetDefault("transformer.script_path", "")
	v.SetDefault("transformer.script_code", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.file_path", "")
	v.SetDefault("logger.console", true)

	v.SetDefault("metrics.addr", "")
}

// LoadConfig loads defaults, then the YAML file at configPath if it exists,
// then environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "read config file %s", configPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat config file %s", configPath)
		}
	}

	config, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	activeMu.Lock()
	active = v
	activeMu.Unlock()

	return config, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	config.Station.Units = strings.ToLower(strings.TrimSpace(config.Station.Units))
	config.Station.FieldSets = splitList(config.Station.FieldSets)
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "rainwise2mqtt-" + uuid.NewString()[:8]
	}

	return &config, nil
}

// FIELD_SETS arrives as one comma separated string
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if s := strings.ToLower(strings.TrimSpace(part)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	sets := make([]string, 0, len(weather.AllFieldSets))
	for _, s := range weather.AllFieldSets {
		sets = append(sets, string(s))
	}

	return validator.Validate(c,
		&validator.NotEmptyValidator{Field: "Station.Address"},
		&validator.RangeValidator{Field: "Station.Timeout", Min: float64(time.Second), Max: float64(5 * time.Minute)},
		&validator.OneOfValidator{Field: "Station.Units", Allowed: []string{string(weather.US), string(weather.Metric)}},
		&validator.OneOfValidator{Field: "Station.FieldSets", Allowed: sets},
		&validator.RangeValidator{Field: "Station.BreakerFailures", Min: 0, Max: 1000},
		&validator.NotEmptyValidator{Field: "MQTT.Host"},
		&validator.RangeValidator{Field: "MQTT.Port", Min: 1, Max: 65535},
		&validator.RangeValidator{Field: "MQTT.QoS", Min: 0, Max: 2},
		&validator.NotEmptyValidator{Field: "MQTT.StateTopic"},
		&validator.RangeValidator{Field: "Poll.IntervalSeconds", Min: 1, Max: 86400},
		&validator.NotEmptyValidator{Field: "Device.Name"},
	)
}

// UnitSystem returns the configured unit system
func (c *Config) UnitSystem() weather.UnitSystem {
	u, err := weather.ParseUnitSystem(c.Station.Units)
	if err != nil {
		return weather.US
	}
	return u
}

// FieldSets returns the configured field sets, ignoring unknown names
func (c *Config) FieldSets() []weather.FieldSet {
	out := make([]weather.FieldSet, 0, len(c.Station.FieldSets))
	for _, s := range c.Station.FieldSets {
		if fs, err := weather.ParseFieldSet(s); err == nil {
			out = append(out, fs)
		}
	}
	return out
}

// PollInterval returns the fixed wait between cycles
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// WatchConfig watches the file loaded by LoadConfig and calls callback on writes
func WatchConfig(configPath string, callback ConfigChangeCallback) error {
	activeMu.Lock()
	v := active
	activeMu.Unlock()
	if v == nil {
		return errors.New("config not loaded")
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return errors.Wrapf(err, "watch config file %s", configPath)
	}

	v.SetConfigFile(absPath)
	v.WatchConfig()

	// debounce, editors often write twice
	var lastChangeTime time.Time
	var debounceInterval = 2 * time.Second

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&fsnotify.Write != fsnotify.Write {
			return
		}

		now := time.Now()
		if now.Sub(lastChangeTime) < debounceInterval {
			return
		}
		lastChangeTime = now

		logger.Info("config file changed: %s", e.Name)

		newConfig, err := unmarshal(v)
		if err != nil {
			logger.Error("failed to decode updated config: %v", err)
			return
		}

		if err := callback(newConfig); err != nil {
			logger.Error("failed to apply updated config: %v", err)
			return
		}

		logger.Info("updated config applied")
	})

	return nil
}
