// Package poller drives the fetch → normalize → discover → publish → wait
// cycle that bridges the station to the broker.
package poller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/eddielth/rainwise2mqtt/discovery"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/eddielth/rainwise2mqtt/metrics"
	"github.com/eddielth/rainwise2mqtt/weather"
	"github.com/pkg/errors"
)

// Fetcher retrieves the raw station document
type Fetcher interface {
	Fetch(ctx context.Context) (weather.RawReading, error)
}

// Broker is the MQTT connection used for every publish
type Broker interface {
	Connect() error
	Publish(topic string, payload []byte, retain bool) error
	Disconnect()
}

// Transformer optionally rewrites normalized readings
type Transformer interface {
	Transform(readings weather.Readings) (weather.Readings, error)
}

// State is owned by the poll loop for the life of the process
type State struct {
	// DiscoveryPublished is set once every discovery config of a cycle was
	// published and is never reset.
	DiscoveryPublished bool
}

// Options configures a Poller
type Options struct {
	Units      weather.UnitSystem
	Normalizer weather.Normalizer
	Generator  *discovery.Generator
	Device     discovery.DeviceInfo
	StateTopic string
	Interval   time.Duration
	// Wait decides the pause after each cycle. Defaults to a constant
	// Interval; a policy returning backoff.Stop ends the loop.
	Wait backoff.BackOff
}

// Poller runs the poll loop. It is not safe for concurrent use.
type Poller struct {
	fetcher     Fetcher
	broker      Broker
	transformer Transformer
	metrics     *metrics.Metrics
	opts        Options
	wait        backoff.BackOff
	state       State
}

// New creates a Poller. transformer and m may be nil.
func New(fetcher Fetcher, broker Broker, transformer Transformer, m *metrics.Metrics, opts Options) *Poller {
	if opts.Generator == nil {
		opts.Generator = discovery.NewGenerator("", nil, opts.Units)
	}
	if opts.Wait == nil {
		// the wait is the same after success and failure
		opts.Wait = backoff.NewConstantBackOff(opts.Interval)
	}
	return &Poller{
		fetcher:     fetcher,
		broker:      broker,
		transformer: transformer,
		metrics:     m,
		opts:        opts,
		wait:        opts.Wait,
	}
}

// State returns a copy of the loop state
func (p *Poller) State() State {
	return p.state
}

// Run connects to the broker, then runs cycles until ctx is cancelled and
// disconnects. A connect failure is returned immediately; nothing after
// connecting is fatal.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.broker.Connect(); err != nil {
		return errors.Wrap(err, "connect to broker")
	}
	defer p.broker.Disconnect()

	logger.Info("polling station every %v", p.opts.Interval)
	p.wait.Reset()

	for {
		// a cycle runs to completion once started
		p.Cycle(context.WithoutCancel(ctx))

		next := p.wait.NextBackOff()
		if next == backoff.Stop {
			logger.Info("wait policy stopped the poll loop")
			return nil
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("shutdown requested, stopping poll loop")
			return nil
		case <-timer.C:
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Cycle runs one fetch → normalize → discover → publish pass and returns
// its outcome as a metrics result label.
func (p *Poller) Cycle(ctx context.Context) string {
	result := p.cycle(ctx)
	p.metrics.Cycle(result)
	return result
}

func (p *Poller) cycle(ctx context.Context) string {
	raw, err := p.fetcher.Fetch(ctx)
	if err != nil {
		logger.Warn("could not retrieve station data, retrying in %v: %v", p.opts.Interval, err)
		return metrics.ResultFetchError
	}

	readings, ok := p.opts.Normalizer.Normalize(raw, p.opts.Units)
	if !ok || len(readings) == 0 {
		logger.Warn("station payload has no %q measurements, retrying in %v", p.opts.Units, p.opts.Interval)
		return metrics.ResultInvalidPayload
	}

	if p.transformer != nil {
		transformed, err := p.transformer.Transform(readings)
		if err != nil {
			logger.Warn("readings transform failed, publishing untransformed readings: %v", err)
		} else {
			readings = transformed
		}
	}

	if !p.state.DiscoveryPublished {
		p.publishDiscovery(readings)
	}

	if err := p.publishState(readings); err != nil {
		logger.Warn("failed to publish state, retrying in %v: %v", p.opts.Interval, err)
		return metrics.ResultPublishError
	}

	return metrics.ResultOK
}

// publishDiscovery announces every known sensor in readings. The flag is
// only set when all publishes succeed; configs are retained, so a retry
// on the next cycle re-sends them harmlessly.
func (p *Poller) publishDiscovery(readings weather.Readings) {
	messages, err := p.opts.Generator.Generate(readings, p.opts.StateTopic, p.opts.Device)
	if err != nil {
		logger.Error("failed to build discovery configs: %v", err)
		return
	}

	logger.Info("publishing Home Assistant discovery messages...")
	failed := 0
	for _, msg := range messages {
		err := p.broker.Publish(msg.Topic, msg.Payload, true)
		p.metrics.Publish(metrics.KindDiscovery, err)
		if err != nil {
			failed++
			logger.Warn("discovery publish to %s failed: %v", msg.Topic, err)
		}
	}

	if failed > 0 {
		logger.Warn("%d of %d discovery messages failed, will retry next cycle", failed, len(messages))
		return
	}

	p.state.DiscoveryPublished = true
	p.metrics.DiscoveryPublished()
	logger.Info("published %d discovery messages", len(messages))
}

func (p *Poller) publishState(readings weather.Readings) error {
	payload, err := json.Marshal(readings)
	if err != nil {
		return errors.Wrap(err, "marshal state document")
	}

	err = p.broker.Publish(p.opts.StateTopic, payload, false)
	p.metrics.Publish(metrics.KindState, err)
	if err != nil {
		return err
	}

	p.metrics.Sensors(len(readings))
	logger.Debug("published %d sensors to %s", len(readings), p.opts.StateTopic)
	return nil
}
