package discovery

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/pkg/errors"
)

const (
	// DefaultPrefix is Home Assistant's default discovery prefix.
	DefaultPrefix = "homeassistant"

	idPrefix = "rainwise_"
)

// Generator builds discovery messages from a metadata table.
type Generator struct {
	Prefix   string
	Metadata Table
	Units    weather.UnitSystem
}

// NewGenerator creates a Generator. An empty prefix falls back to
// DefaultPrefix and a nil table to DefaultTable.
func NewGenerator(prefix string, metadata Table, units weather.UnitSystem) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if metadata == nil {
		metadata = DefaultTable()
	}
	return &Generator{Prefix: prefix, Metadata: metadata, Units: units}
}

// Topic returns the discovery config topic for a sensor id.
func (g *Generator) Topic(sensorID string) string {
	return fmt.Sprintf("%s/sensor/%s%s/config", g.Prefix, idPrefix, sensorID)
}

// Generate returns one message per sensor id present in both readings and
// the metadata table, ordered by sensor id.
func (g *Generator) Generate(readings weather.Readings, stateTopic string, device DeviceInfo) ([]Message, error) {
	ids := make([]string, 0, len(readings))
	for id := range readings {
		if _, ok := g.Metadata[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	messages := make([]Message, 0, len(ids))
	for _, id := range ids {
		meta := g.Metadata[id]
		cfg := SensorConfig{
			Name:              meta.Name,
			UniqueID:          idPrefix + id,
			StateTopic:        stateTopic,
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", id),
			Device:            device,
			UnitOfMeasurement: meta.UnitFor(g.Units),
			DeviceClass:       meta.DeviceClass,
			Icon:              meta.Icon,
		}

		payload, err := json.Marshal(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal discovery payload for %s", id)
		}
		messages = append(messages, Message{Topic: g.Topic(id), Payload: payload})
	}
	return messages, nil
}
