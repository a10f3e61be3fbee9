package publisher

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirbo/go-telemetry/internal/models"
)

func newTestGuard(network *fakeNetwork, broker *fakeBroker) *Guard {
	logger, _ := test.NewNullLogger()
	return NewGuard(network, broker, testOptions(), func(string, []byte) {}, logger)
}

func TestGuardAcquiredIsIdempotent(t *testing.T) {
	network := &fakeNetwork{status: models.LinkAcquired}
	broker := &fakeBroker{}
	g := newTestGuard(network, broker)

	require.NoError(t, g.EnsureConnected())
	require.NoError(t, g.EnsureConnected())

	assert.Equal(t, 2, network.probes)
	assert.Zero(t, broker.connects)
	assert.Zero(t, broker.subscribes)
}

func TestGuardReconnects(t *testing.T) {
	network := &fakeNetwork{status: models.LinkNotAcquired}
	broker := &fakeBroker{}
	g := newTestGuard(network, broker)

	require.NoError(t, g.EnsureConnected())

	assert.Equal(t, 1, broker.connects)
	assert.Equal(t, 1, broker.subscribes)
	assert.NotNil(t, broker.handler)
	assert.Equal(t, []time.Duration{60 * time.Second, 20 * time.Second}, broker.timeouts)
}

func TestGuardConnectFailureSkipsSubscribe(t *testing.T) {
	broker := &fakeBroker{connectErr: errBoom}
	g := newTestGuard(&fakeNetwork{}, broker)

	err := g.EnsureConnected()
	require.ErrorIs(t, err, ErrBrokerUnreachable)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 1, broker.connects)
	assert.Zero(t, broker.subscribes)
}

func TestGuardSubscribeFailure(t *testing.T) {
	broker := &fakeBroker{subscribeErr: errBoom}
	g := newTestGuard(&fakeNetwork{}, broker)

	err := g.EnsureConnected()
	require.ErrorIs(t, err, ErrSubscribeFailed)
	assert.NotErrorIs(t, err, ErrBrokerUnreachable)
	assert.Equal(t, 1, broker.subscribes)
}

func TestGuardReconnectIgnoresLink(t *testing.T) {
	network := &fakeNetwork{status: models.LinkAcquired}
	broker := &fakeBroker{}
	g := newTestGuard(network, broker)

	require.NoError(t, g.Reconnect())
	assert.Zero(t, network.probes)
	assert.Equal(t, 1, broker.connects)
	assert.Equal(t, 1, broker.subscribes)
}
