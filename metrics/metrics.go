package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes
const (
	ResultOK             = "ok"
	ResultFetchError     = "fetch_error"
	ResultInvalidPayload = "invalid_payload"
	ResultPublishError   = "publish_error"
)

// Publish kinds
const (
	KindState     = "state"
	KindDiscovery = "discovery"
)

// Metrics holds the bridge's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	cycles      *prometheus.CounterVec
	publishes   *prometheus.CounterVec
	discovery   prometheus.Gauge
	sensors     prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainwise",
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rainwise",
			Name:      "publishes_total",
			Help:      "MQTT publishes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		discovery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainwise",
			Name:      "discovery_published",
			Help:      "1 once discovery configs have been published.",
		}),
		sensors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainwise",
			Name:      "sensors",
			Help:      "Sensors in the last published state document.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rainwise",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful cycle.",
		}),
	}

	reg.MustRegister(m.cycles, m.publishes, m.discovery, m.sensors, m.lastSuccess)
	return m
}

// Cycle records the outcome of one poll cycle
func (m *Metrics) Cycle(result string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

// Publish records one publish attempt
func (m *Metrics) Publish(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.publishes.WithLabelValues(kind, outcome).Inc()
}

// DiscoveryPublished marks discovery as done
func (m *Metrics) DiscoveryPublished() {
	if m == nil {
		return
	}
	m.discovery.Set(1)
}

// Sensors records the size of the last state document
func (m *Metrics) Sensors(n int) {
	if m == nil {
		return
	}
	m.sensors.Set(float64(n))
}
