// Package publisher runs the periodic publish cycle: check connectivity,
// acquire a sample set, encode it and publish it, then sleep. No failure
// inside a cycle stops the loop.
package publisher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/telemetry"
)

// State is the step a cycle is in.
type State int32

const (
	Idle State = iota
	Connecting
	Sampling
	Encoding
	Publishing
	Sleeping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Sampling:
		return "sampling"
	case Encoding:
		return "encoding"
	case Publishing:
		return "publishing"
	case Sleeping:
		return "sleeping"
	}
	return "unknown"
}

type Options struct {
	DeviceID         string
	Topic            string
	QoS              byte
	Period           time.Duration
	BufferCapacity   int
	ConnectTimeout   time.Duration
	SubscribeTimeout time.Duration
	PublishTimeout   time.Duration
}

// OptionsFromConfig takes the controller settings out of a loaded config.
func OptionsFromConfig(cfg models.Config) Options {
	return Options{
		DeviceID:         cfg.DeviceID,
		Topic:            cfg.MQTT.Topic,
		QoS:              cfg.MQTT.QoS,
		Period:           cfg.PublishPeriod(),
		BufferCapacity:   int(cfg.BufferCapacity),
		ConnectTimeout:   cfg.MQTT.ConnectTimeout(),
		SubscribeTimeout: cfg.MQTT.SubscribeTimeout(),
		PublishTimeout:   cfg.MQTT.PublishTimeout(),
	}
}

// Deps are the collaborators the controller drives.
type Deps struct {
	Network Network
	Broker  Broker
	Sensors Sensors
	Battery Battery
	Sinks   []Sink
	Logger  logrus.FieldLogger
}

// CycleReport describes how far one cycle got and why it stopped.
type CycleReport struct {
	Started    time.Time
	Finished   time.Time
	Reached    State
	Sample     models.SampleSet
	Length     int
	Truncated  bool
	Published  bool
	ConnectErr error
	AcquireErr error
	EncodeErr  error
	PublishErr error
}

// Status is a snapshot of the controller's counters.
type Status struct {
	State     State
	Cycles    uint64
	Published uint64
	Failed    uint64
	Last      CycleReport
}

// Controller owns the outgoing buffer and runs cycles strictly one after
// another, so the buffer is never shared.
type Controller struct {
	opts     Options
	guard    *Guard
	acquirer *Acquirer
	broker   Broker
	inbox    *Inbox
	sinks    []Sink
	out      *telemetry.FixedBuffer
	log      logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time

	state  atomic.Int32
	mu     sync.Mutex
	status Status
}

func New(opts Options, deps Deps) *Controller {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	inbox := NewInbox(opts.BufferCapacity, log.WithField("component", "inbox"))

	return &Controller{
		opts:     opts,
		guard:    NewGuard(deps.Network, deps.Broker, opts, inbox.OnMessage, log.WithField("component", "guard")),
		acquirer: NewAcquirer(deps.Sensors, deps.Battery),
		broker:   deps.Broker,
		inbox:    inbox,
		sinks:    deps.Sinks,
		out:      telemetry.NewFixedBuffer(opts.BufferCapacity),
		log:      log.WithField("device", opts.DeviceID),
		sleep:    sleepCtx,
		now:      time.Now,
	}
}

// Inbox exposes the received-message state for display.
func (c *Controller) Inbox() *Inbox {
	return c.inbox
}

// Init connects and subscribes once before the first cycle. An error here
// is terminal for the caller; steady-state failures never are.
func (c *Controller) Init() error {
	c.setState(Connecting)
	defer c.setState(Idle)
	return c.guard.Reconnect()
}

// Run repeats cycles with a fixed sleep between them until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		c.Cycle(ctx)

		c.setState(Sleeping)
		if !c.sleep(ctx, c.opts.Period) {
			c.setState(Idle)
			return ctx.Err()
		}
		c.setState(Idle)
	}
}

// Cycle runs one connect, sample, encode, publish pass. It does not sleep.
func (c *Controller) Cycle(ctx context.Context) CycleReport {
	r := CycleReport{Started: c.now()}

	r.Reached = c.setState(Connecting)
	if err := c.guard.EnsureConnected(); err != nil {
		// Still sample so the battery gets logged, but nothing is
		// published this cycle.
		r.ConnectErr = err
		c.warn("connect", err, "connectivity check failed")
	}

	r.Reached = c.setState(Sampling)
	sample, err := c.acquirer.Acquire(ctx)
	r.Sample = sample
	c.logBattery(sample, err)
	if err != nil {
		r.AcquireErr = err
		c.warn("sample", err, "sample acquisition failed, skipping publish")
		return c.finish(r)
	}
	if r.ConnectErr != nil {
		c.log.WithField("step", "sample").Warn("no broker session, skipping publish")
		return c.finish(r)
	}

	r.Reached = c.setState(Encoding)
	n, err := telemetry.Encode(sample, c.opts.DeviceID, sample.BatteryPercent, c.out)
	switch {
	case errors.Is(err, telemetry.ErrTruncated):
		r.Truncated = true
		c.log.WithFields(logrus.Fields{
			"step":     "encode",
			"length":   n,
			"capacity": c.out.Cap(),
		}).Warn("message truncated to buffer capacity")
	case err != nil:
		r.EncodeErr = err
		c.warn("encode", err, "encoding failed, skipping publish")
		return c.finish(r)
	}
	r.Length = n

	r.Reached = c.setState(Publishing)
	if err := c.broker.Publish(c.opts.Topic, c.opts.QoS, c.out.Bytes(), c.opts.PublishTimeout); err != nil {
		r.PublishErr = publishError(err)
		c.warn("publish", r.PublishErr, "publish failed")
		return c.finish(r)
	}
	r.Published = true
	c.log.WithFields(logrus.Fields{"topic": c.opts.Topic, "length": n}).Debug("published")

	c.deliver(ctx, r)
	return c.finish(r)
}

// Status returns the counters and the last cycle's report.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.status
	s.State = State(c.state.Load())
	return s
}

func (c *Controller) setState(s State) State {
	c.state.Store(int32(s))
	return s
}

func (c *Controller) finish(r CycleReport) CycleReport {
	r.Finished = c.now()

	c.mu.Lock()
	c.status.Cycles++
	if r.Published {
		c.status.Published++
	} else {
		c.status.Failed++
	}
	c.status.Last = r
	c.mu.Unlock()

	return r
}

func (c *Controller) logBattery(s models.SampleSet, err error) {
	if errors.Is(err, ErrBatteryReadFailed) {
		c.warn("battery", err, "battery read failed")
		return
	}
	c.log.WithFields(logrus.Fields{
		"millivolts": s.BatteryMillivolts,
		"percent":    s.BatteryPercent,
	}).Info("battery")
}

func (c *Controller) warn(step string, err error, msg string) {
	c.log.WithField("step", step).WithError(err).Warn(msg)
}

func (c *Controller) deliver(ctx context.Context, r CycleReport) {
	if len(c.sinks) == 0 {
		return
	}
	rec := models.Record{
		DeviceID:   c.opts.DeviceID,
		Timestamp:  r.Started.UnixNano() / int64(time.Millisecond),
		TimestampZ: r.Started.UTC().Format(time.RFC3339),
		Sample:     r.Sample,
		Payload:    c.out.String(),
		Truncated:  r.Truncated,
	}
	for _, s := range c.sinks {
		if err := s.Deliver(ctx, rec); err != nil {
			c.warn("sink", err, "record delivery failed")
		}
	}
}

// sleepCtx sleeps for d or until ctx is cancelled. Returns false if
// cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
