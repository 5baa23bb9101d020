package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Cycle(ResultOK)
	m.Cycle(ResultOK)
	m.Cycle(ResultFetchError)
	m.Publish(KindState, nil)
	m.Publish(KindDiscovery, errors.New("nope"))
	m.DiscoveryPublished()
	m.Sensors(12)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues(ResultFetchError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues(KindState, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues(KindDiscovery, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discovery))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.sensors))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Cycle(ResultOK)
		m.Publish(KindState, nil)
		m.DiscoveryPublished()
		m.Sensors(3)
	})
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		code      int
		body      string
	}{
		{"connected", true, http.StatusOK, `{"status":"ok","mqtt_connected":true}`},
		{"disconnected", false, http.StatusServiceUnavailable, `{"status":"down","mqtt_connected":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(func() bool { return tt.connected })
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestServerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Cycle(ResultInvalidPayload)

	s := NewServer(":0", reg, func() bool { return true })
	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `rainwise_poll_cycles_total{result="invalid_payload"} 1`)
}
