package discovery

// DeviceInfo holds the Home Assistant device registry fields shared by
// every discovery payload, so all sensors group under one device.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers" mapstructure:"identifiers"`
	Name         string   `json:"name" mapstructure:"name"`
	Model        string   `json:"model" mapstructure:"model"`
	Manufacturer string   `json:"manufacturer" mapstructure:"manufacturer"`
}

// SensorConfig is the JSON payload of an HA MQTT sensor discovery message.
type SensorConfig struct {
	Name              string     `json:"name"`
	UniqueID          string     `json:"unique_id"`
	StateTopic        string     `json:"state_topic"`
	ValueTemplate     string     `json:"value_template"`
	Device            DeviceInfo `json:"device"`
	UnitOfMeasurement string     `json:"unit_of_measurement,omitempty"`
	DeviceClass       string     `json:"device_class,omitempty"`
	Icon              string     `json:"icon,omitempty"`
}

// Message is one retained discovery publish.
type Message struct {
	Topic   string
	Payload []byte
}
