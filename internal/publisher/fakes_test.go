package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kirbo/go-telemetry/internal/models"
)

type fakeNetwork struct {
	status models.LinkStatus
	probes int
}

func (n *fakeNetwork) LinkStatus() models.LinkStatus {
	n.probes++
	return n.status
}

type fakeBroker struct {
	mu sync.Mutex

	connectErr   error
	subscribeErr error
	publishErr   error

	connects   int
	subscribes int
	published  [][]byte
	timeouts   []time.Duration
	handler    func(topic string, payload []byte)
	onPublish  func()
}

func (b *fakeBroker) Connect(timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	b.timeouts = append(b.timeouts, timeout)
	return b.connectErr
}

func (b *fakeBroker) Subscribe(topic string, qos byte, timeout time.Duration, onMessage func(topic string, payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes++
	b.timeouts = append(b.timeouts, timeout)
	if b.subscribeErr != nil {
		return b.subscribeErr
	}
	b.handler = onMessage
	return nil
}

func (b *fakeBroker) Publish(topic string, qos byte, payload []byte, timeout time.Duration) error {
	if b.onPublish != nil {
		b.onPublish()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeouts = append(b.timeouts, timeout)
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, append([]byte(nil), payload...))
	return nil
}

type fakeSensors struct {
	sample models.SampleSet
	err    error
	reads  int
}

func (s *fakeSensors) ReadAll(context.Context) (models.SampleSet, error) {
	s.reads++
	return s.sample, s.err
}

type fakeBattery struct {
	mv    uint32
	err   error
	reads int
}

func (b *fakeBattery) ReadMillivolts(context.Context) (uint32, error) {
	b.reads++
	return b.mv, b.err
}

type fakeSink struct {
	records []models.Record
	err     error
}

func (s *fakeSink) Deliver(_ context.Context, rec models.Record) error {
	s.records = append(s.records, rec)
	return s.err
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

var errBoom = errors.New("boom")

func testSample() models.SampleSet {
	return models.SampleSet{
		Accel:            models.Vector3{X: 1, Y: 2, Z: 3},
		Gyro:             models.Vector3{X: 4, Y: 5, Z: 6},
		Mag:              models.MagVector{X: 7, Y: 8, Z: 9, R: 10},
		Humidity:         45,
		Pressure:         98000,
		Light:            1200,
		TemperatureMilli: 21500,
	}
}

func testOptions() Options {
	return Options{
		DeviceID:         "XDK1",
		Topic:            "XDK/XDK1",
		QoS:              1,
		Period:           5 * time.Second,
		BufferCapacity:   512,
		ConnectTimeout:   60 * time.Second,
		SubscribeTimeout: 20 * time.Second,
		PublishTimeout:   20 * time.Second,
	}
}
