package publisher

import (
	"context"
	"time"

	"github.com/kirbo/go-telemetry/internal/models"
)

// Network reports the state of the network link. It is probed every
// cycle and never cached.
type Network interface {
	LinkStatus() models.LinkStatus
}

// Broker is the MQTT session the controller publishes through. Every call
// blocks for at most its timeout.
type Broker interface {
	Connect(timeout time.Duration) error
	Subscribe(topic string, qos byte, timeout time.Duration, onMessage func(topic string, payload []byte)) error
	Publish(topic string, qos byte, payload []byte, timeout time.Duration) error
}

// Sensors reads every enabled sensor in one blocking call.
type Sensors interface {
	ReadAll(ctx context.Context) (models.SampleSet, error)
}

// Battery reads the cell voltage.
type Battery interface {
	ReadMillivolts(ctx context.Context) (uint32, error)
}

// Sink receives every record that was published successfully.
type Sink interface {
	Deliver(ctx context.Context, rec models.Record) error
}
