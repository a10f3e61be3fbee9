// Package broker is the MQTT session used by the publisher, built on the
// Eclipse Paho client. Reconnects are left to the caller: the client never
// reconnects on its own.
package broker

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
)

type timeoutError struct{}

func (timeoutError) Error() string { return "mqtt operation timed out" }
func (timeoutError) Timeout() bool { return true }

var (
	// ErrTimeout is wrapped by every error caused by an expired timeout.
	ErrTimeout error = timeoutError{}
	// ErrNotConnected is returned when publishing without a session.
	ErrNotConnected = errors.New("mqtt client not connected")
)

const subscribeFailure = 0x80

type Client struct {
	client mqtt.Client
	log    logrus.FieldLogger
}

// BrokerURL is the tcp:// URL for host and port.
func BrokerURL(cfg models.MQTTConfig) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
}

func New(cfg models.MQTTConfig, log logrus.FieldLogger) *Client {
	c := &Client{log: log.WithField("broker", BrokerURL(cfg))}

	opts := mqtt.NewClientOptions().
		AddBroker(BrokerURL(cfg)).
		SetClientID(cfg.User.ClientID).
		SetCleanSession(true).
		SetKeepAlive(time.Duration(cfg.KeepAliveSec) * time.Second).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.log.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			c.log.Info("mqtt connected")
		})
	if cfg.User.Username != "" {
		opts.SetUsername(cfg.User.Username)
		opts.SetPassword(cfg.User.Password)
	}

	c.client = mqtt.NewClient(opts)
	return c
}

// IsConnected reports whether the broker session is currently open.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Connect opens the session unless it is already open.
func (c *Client) Connect(timeout time.Duration) error {
	if c.client.IsConnectionOpen() {
		return nil
	}
	t := c.client.Connect()
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("connect: %w", ErrTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// Subscribe registers onMessage for topic. Messages are dispatched on the
// Paho client's goroutines.
func (c *Client) Subscribe(topic string, qos byte, timeout time.Duration, onMessage func(topic string, payload []byte)) error {
	t := c.client.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
		onMessage(m.Topic(), m.Payload())
	})
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("subscribe %s: %w", topic, ErrTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	if st, ok := t.(*mqtt.SubscribeToken); ok {
		if code, found := st.Result()[topic]; found && code == subscribeFailure {
			return fmt.Errorf("subscribe %s: rejected by broker", topic)
		}
	}
	return nil
}

// Publish sends payload and waits for the broker acknowledgement.
func (c *Client) Publish(topic string, qos byte, payload []byte, timeout time.Duration) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	// Paho holds on to the slice until the packet is written, which can
	// outlive a timed-out wait; the caller reuses its buffer next cycle.
	msg := append([]byte(nil), payload...)

	t := c.client.Publish(topic, qos, false, msg)
	if !t.WaitTimeout(timeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrTimeout)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects, waiting up to quiesce for in-flight work.
func (c *Client) Close(quiesce time.Duration) {
	if c.client.IsConnected() {
		c.client.Disconnect(uint(quiesce / time.Millisecond))
	}
}
