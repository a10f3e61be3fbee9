package publisher

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
)

// Guard keeps the broker session usable. Link status is probed on every
// call because the link can drop between cycles without notice.
type Guard struct {
	network          Network
	broker           Broker
	topic            string
	qos              byte
	connectTimeout   time.Duration
	subscribeTimeout time.Duration
	onMessage        func(topic string, payload []byte)
	log              logrus.FieldLogger
}

func NewGuard(network Network, broker Broker, opts Options, onMessage func(topic string, payload []byte), log logrus.FieldLogger) *Guard {
	return &Guard{
		network:          network,
		broker:           broker,
		topic:            opts.Topic,
		qos:              opts.QoS,
		connectTimeout:   opts.ConnectTimeout,
		subscribeTimeout: opts.SubscribeTimeout,
		onMessage:        onMessage,
		log:              log,
	}
}

// EnsureConnected returns immediately when the link is acquired. Otherwise
// it reconnects to the broker and subscribes again.
func (g *Guard) EnsureConnected() error {
	status := g.network.LinkStatus()
	if status == models.LinkAcquired {
		return nil
	}
	g.log.WithField("link", status).Debug("link not acquired, reconnecting broker")
	return g.Reconnect()
}

// Reconnect connects and subscribes without looking at the link. Subscribe
// is not attempted when the connect fails.
func (g *Guard) Reconnect() error {
	if err := g.broker.Connect(g.connectTimeout); err != nil {
		return wrap(ErrBrokerUnreachable, err)
	}
	if err := g.broker.Subscribe(g.topic, g.qos, g.subscribeTimeout, g.onMessage); err != nil {
		return wrap(ErrSubscribeFailed, err)
	}
	g.log.WithField("topic", g.topic).Info("broker session established")
	return nil
}
