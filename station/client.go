package station

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eddielth/rainwise2mqtt/config"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

var (
	// ErrStatus is returned when the station answers with a non-2xx status
	ErrStatus = errors.New("unexpected status from station")
	// ErrEmptyPayload is returned when the body decodes to nothing
	ErrEmptyPayload = errors.New("empty payload from station")
)

// maximum weather.json body accepted
const maxBodySize = 1 << 20

// Client fetches weather.json from a Rainwise IP-100 station
type Client struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a station client. When BreakerFailures is positive the
// client stops contacting the station for BreakerOpen after that many
// consecutive failures.
func NewClient(cfg config.StationConfig) *Client {
	c := &Client{
		url:  URL(cfg.Address),
		http: &http.Client{Timeout: cfg.Timeout},
	}

	if cfg.BreakerFailures > 0 {
		threshold := uint32(cfg.BreakerFailures)
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "station",
			MaxRequests: 1,
			Timeout:     cfg.BreakerOpen,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("%s circuit breaker: %s -> %s", name, from, to)
			},
		})
	}

	return c
}

// URL returns the weather.json address for a station
func URL(address string) string {
	return fmt.Sprintf("http://%s/weather.json", address)
}

// Fetch retrieves and decodes the current weather document. Numbers are
// kept as json.Number so they are republished exactly as received.
func (c *Client) Fetch(ctx context.Context) (weather.RawReading, error) {
	if c.breaker == nil {
		return c.fetch(ctx)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(weather.RawReading), nil
}

func (c *Client) fetch(ctx context.Context) (weather.RawReading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build station request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", c.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, errors.Wrapf(ErrStatus, "fetch %s: %s", c.url, resp.Status)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize))
	dec.UseNumber()

	var raw weather.RawReading
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", c.url)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.Errorf("decode %s: trailing data after JSON document", c.url)
	}
	if len(raw) == 0 {
		return nil, errors.Wrapf(ErrEmptyPayload, "fetch %s", c.url)
	}

	logger.Debug("fetched %s in %v (%d root keys)", c.url, time.Since(start), len(raw))
	return raw, nil
}
