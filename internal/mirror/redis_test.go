package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirbo/go-telemetry/internal/models"
)

type fakeStore struct {
	published map[string]string
	set       map[string]string
	err       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{published: map[string]string{}, set: map[string]string{}}
}

func (f *fakeStore) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.published[channel] = message.(string)
	return redis.NewIntResult(1, nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.set[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func TestDeliver(t *testing.T) {
	store := newFakeStore()
	logger, _ := test.NewNullLogger()
	m := New(store, logger)

	rec := models.Record{
		DeviceID:  "XDK1",
		Timestamp: 1700000000000,
		Sample:    models.SampleSet{TemperatureMilli: 21000, BatteryPercent: 80},
		Payload:   `{"id":"XDK1"}`,
	}
	require.NoError(t, m.Deliver(context.Background(), rec))

	require.Contains(t, store.published, "telemetry:XDK1")
	assert.Equal(t, store.published["telemetry:XDK1"], store.set["telemetry:XDK1"])

	var got models.Record
	require.NoError(t, json.Unmarshal([]byte(store.set["telemetry:XDK1"]), &got))
	assert.Equal(t, rec, got)
}

func TestDeliverPublishError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	logger, _ := test.NewNullLogger()

	err := New(store, logger).Deliver(context.Background(), models.Record{DeviceID: "XDK1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry:XDK1")
	assert.Empty(t, store.set)
}
