package publisher

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/telemetry"
)

// Inbox holds the latest message received on the subscribed topic. It is
// written from the broker client's dispatch goroutine and read by the
// diagnostic API; it never touches the outbound cycle's buffers.
type Inbox struct {
	count atomic.Uint32

	mu      sync.RWMutex
	topic   *telemetry.FixedBuffer
	payload *telemetry.FixedBuffer

	log logrus.FieldLogger
}

// NewInbox sizes both the topic and the payload buffer to capacity bytes.
func NewInbox(capacity int, log logrus.FieldLogger) *Inbox {
	return &Inbox{
		topic:   telemetry.NewFixedBuffer(capacity),
		payload: telemetry.NewFixedBuffer(capacity),
		log:     log,
	}
}

// OnMessage is the subscribe callback. Topic and payload are truncated to
// capacity-1 bytes. It never blocks on the outbound cycle and never fails.
func (in *Inbox) OnMessage(topic string, payload []byte) {
	n := in.count.Add(1)

	in.mu.Lock()
	in.topic.Reset()
	_, _ = in.topic.WriteString(topic)
	in.payload.Reset()
	_, _ = in.payload.Write(payload)
	t, p := in.topic.String(), in.payload.String()
	truncated := in.topic.Truncated() || in.payload.Truncated()
	in.mu.Unlock()

	in.log.WithFields(logrus.Fields{
		"count":     n,
		"topic":     t,
		"payload":   p,
		"truncated": truncated,
	}).Info("incoming message")
}

// Snapshot returns the latest message and the total received so far.
func (in *Inbox) Snapshot() models.IncomingMessage {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return models.IncomingMessage{
		Count:   in.count.Load(),
		Topic:   in.topic.String(),
		Payload: in.payload.String(),
	}
}
