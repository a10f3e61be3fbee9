package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/telemetry"
)

type harness struct {
	network *fakeNetwork
	broker  *fakeBroker
	sensors *fakeSensors
	battery *fakeBattery
	sink    *fakeSink
	hook    *test.Hook
	c       *Controller
}

func newHarness(opts Options) *harness {
	logger, hook := test.NewNullLogger()
	h := &harness{
		network: &fakeNetwork{status: models.LinkNotAcquired},
		broker:  &fakeBroker{},
		sensors: &fakeSensors{sample: testSample()},
		battery: &fakeBattery{mv: 4304},
		sink:    &fakeSink{},
		hook:    hook,
	}
	h.c = New(opts, Deps{
		Network: h.network,
		Broker:  h.broker,
		Sensors: h.sensors,
		Battery: h.battery,
		Sinks:   []Sink{h.sink},
		Logger:  logger,
	})
	return h
}

func (h *harness) abnormal() []*logrus.Entry {
	var out []*logrus.Entry
	for _, e := range h.hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) batteryLogged() bool {
	for _, e := range h.hook.AllEntries() {
		if e.Message == "battery" {
			return true
		}
	}
	return false
}

func TestCycleHappyPath(t *testing.T) {
	h := newHarness(testOptions())

	r := h.c.Cycle(context.Background())

	assert.True(t, r.Published)
	assert.Equal(t, Publishing, r.Reached)
	assert.NoError(t, r.ConnectErr)
	assert.Equal(t, 1, h.broker.connects)
	assert.Equal(t, 1, h.broker.subscribes)
	require.Len(t, h.broker.published, 1)
	assert.Equal(t, r.Length, len(h.broker.published[0]))
	assert.False(t, r.Truncated)

	m, err := telemetry.Decode(h.broker.published[0])
	require.NoError(t, err)
	assert.Equal(t, "XDK1", m.ID)
	assert.Equal(t, "100", m.Battery)
	assert.Equal(t, "21.500000", m.Temperature)

	assert.Empty(t, h.abnormal())
	assert.True(t, h.batteryLogged())

	require.Len(t, h.sink.records, 1)
	rec := h.sink.records[0]
	assert.Equal(t, "XDK1", rec.DeviceID)
	assert.Equal(t, string(h.broker.published[0]), rec.Payload)
	assert.Equal(t, int32(100), rec.Sample.BatteryPercent)
}

func TestRunSleepsFullPeriod(t *testing.T) {
	h := newHarness(testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var slept []time.Duration
	h.c.sleep = func(_ context.Context, d time.Duration) bool {
		slept = append(slept, d)
		if len(slept) == 3 {
			cancel()
			return false
		}
		return true
	}

	err := h.c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, slept)

	st := h.c.Status()
	assert.Equal(t, uint64(3), st.Cycles)
	assert.Equal(t, uint64(3), st.Published)
	assert.Equal(t, Idle, st.State)
}

func TestCycleBrokerUnreachable(t *testing.T) {
	h := newHarness(testOptions())
	h.broker.connectErr = errBoom

	var slept int
	h.c.sleep = func(context.Context, time.Duration) bool {
		slept++
		return false
	}

	r := h.c.Cycle(context.Background())
	require.ErrorIs(t, r.ConnectErr, ErrBrokerUnreachable)
	assert.Equal(t, Sampling, r.Reached)
	assert.False(t, r.Published)
	assert.Zero(t, h.broker.subscribes)
	assert.Equal(t, 1, h.sensors.reads)
	assert.Equal(t, 1, h.battery.reads)
	assert.True(t, h.batteryLogged())
	assert.Empty(t, h.broker.published)
	assert.Empty(t, h.sink.records)

	require.NoError(t, h.c.Run(context.Background()))
	assert.Equal(t, 1, slept)
	assert.Equal(t, uint64(2), h.c.Status().Failed)
}

func TestCycleSensorFailure(t *testing.T) {
	h := newHarness(testOptions())
	h.network.status = models.LinkAcquired
	h.sensors.err = errBoom

	r := h.c.Cycle(context.Background())
	require.ErrorIs(t, r.AcquireErr, ErrSensorReadFailed)
	assert.Equal(t, Sampling, r.Reached)
	assert.True(t, h.batteryLogged())
	assert.Empty(t, h.broker.published)
}

func TestCycleBatteryFailure(t *testing.T) {
	h := newHarness(testOptions())
	h.network.status = models.LinkAcquired
	h.battery.err = errBoom

	r := h.c.Cycle(context.Background())
	require.ErrorIs(t, r.AcquireErr, ErrBatteryReadFailed)
	assert.False(t, h.batteryLogged())
	assert.Empty(t, h.broker.published)
}

func TestCycleTruncatedStillPublished(t *testing.T) {
	opts := testOptions()
	opts.DeviceID = strings.Repeat("d", 600)
	h := newHarness(opts)

	r := h.c.Cycle(context.Background())
	assert.True(t, r.Published)
	assert.True(t, r.Truncated)
	assert.Equal(t, 511, r.Length)
	require.Len(t, h.broker.published, 1)
	assert.Len(t, h.broker.published[0], 511)

	abnormal := h.abnormal()
	require.Len(t, abnormal, 1)
	assert.Equal(t, "message truncated to buffer capacity", abnormal[0].Message)
	assert.True(t, h.sink.records[0].Truncated)
}

func TestCycleEncodeEmpty(t *testing.T) {
	opts := testOptions()
	opts.BufferCapacity = 1
	h := newHarness(opts)

	r := h.c.Cycle(context.Background())
	require.ErrorIs(t, r.EncodeErr, telemetry.ErrEmpty)
	assert.Equal(t, Encoding, r.Reached)
	assert.Empty(t, h.broker.published)
}

func TestCyclePublishFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"timeout", timeoutErr{}, ErrPublishTimeout},
		{"deadline", context.DeadlineExceeded, ErrPublishTimeout},
		{"unreachable", errBoom, ErrPublishUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testOptions())
			h.broker.publishErr = tt.err

			r := h.c.Cycle(context.Background())
			require.ErrorIs(t, r.PublishErr, tt.want)
			assert.False(t, r.Published)
			assert.Equal(t, Publishing, r.Reached)
			assert.Equal(t, []time.Duration{60 * time.Second, 20 * time.Second, 20 * time.Second}, h.broker.timeouts)
			assert.Empty(t, h.sink.records)
		})
	}
}

func TestCycleInboundMidCycle(t *testing.T) {
	h := newHarness(testOptions())
	long := strings.Repeat("t", 700)
	h.broker.onPublish = func() {
		h.broker.handler(long, []byte("hello"))
	}

	r := h.c.Cycle(context.Background())
	assert.True(t, r.Published)

	m := h.c.Inbox().Snapshot()
	assert.Equal(t, uint32(1), m.Count)
	assert.Equal(t, long[:511], m.Topic)
	assert.Equal(t, "hello", m.Payload)
	assert.NotContains(t, string(h.broker.published[0]), "hello")
}

func TestSinkFailureDoesNotFailCycle(t *testing.T) {
	h := newHarness(testOptions())
	h.sink.err = errBoom

	r := h.c.Cycle(context.Background())
	assert.True(t, r.Published)
	require.Len(t, h.abnormal(), 1)
	assert.Equal(t, "sink", h.abnormal()[0].Data["step"])
}

func TestInitAlwaysConnects(t *testing.T) {
	h := newHarness(testOptions())
	h.network.status = models.LinkAcquired

	require.NoError(t, h.c.Init())
	assert.Equal(t, 1, h.broker.connects)
	assert.Zero(t, h.network.probes)

	h.broker.subscribeErr = errBoom
	require.ErrorIs(t, h.c.Init(), ErrSubscribeFailed)
}
