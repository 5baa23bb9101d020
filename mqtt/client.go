package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eddielth/rainwise2mqtt/config"
	"github.com/eddielth/rainwise2mqtt/logger"
	"github.com/pkg/errors"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// Client represents an MQTT client used for publishing station data
type Client struct {
	client mqtt.Client
	config config.MQTTConfig
}

// NewClient creates a new MQTT client. It does not connect.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("MQTT broker address cannot be empty")
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(cfg.Host, cfg.Port))

	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error("MQTT connection lost: %v", err)
	})

	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("trying to reconnect to MQTT broker...")
	})

	return newClient(mqtt.NewClient(opts), cfg), nil
}

func newClient(client mqtt.Client, cfg config.MQTTConfig) *Client {
	return &Client{
		client: client,
		config: cfg,
	}
}

// BrokerURL returns the tcp URL for a broker host and port
func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

// Connect connects to the MQTT broker
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connection to MQTT broker timed out")
	}

	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "connect to %s", BrokerURL(c.config.Host, c.config.Port))
	}

	logger.Info("successfully connected to MQTT broker: %s", BrokerURL(c.config.Host, c.config.Port))
	return nil
}

// Publish publishes payload to topic and waits for the broker to acknowledge
// it at the configured QoS
func (c *Client) Publish(topic string, payload []byte, retain bool) error {
	token := c.client.Publish(topic, byte(c.config.QoS), retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to topic %s timed out", topic)
	}

	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to topic %s", topic)
	}

	logger.Debug("published %d bytes to %s (retain=%t)", len(payload), topic, retain)
	return nil
}

// IsConnected reports whether the broker connection is currently up
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Disconnect disconnects from the MQTT broker
func (c *Client) Disconnect() {
	c.client.Disconnect(quiesceMillis)
	logger.Info("disconnected from MQTT broker")
}
