// Package mirror copies every published record into redis so local
// consumers (the collector, dashboards) see it without a broker session.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/channels"
	"github.com/kirbo/go-telemetry/internal/models"
)

const deliverTimeout = 2 * time.Second

type store interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Connect builds the redis client. It does not dial until first use.
func Connect(cfg models.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       0,
	})
}

type Redis struct {
	rdb store
	log logrus.FieldLogger
}

func New(rdb store, log logrus.FieldLogger) *Redis {
	return &Redis{rdb: rdb, log: log}
}

// Deliver stores rec under telemetry:<device> and publishes it on the
// channel of the same name.
func (m *Redis) Deliver(ctx context.Context, rec models.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	channel := channels.Telemetry + rec.DeviceID
	if err := m.setAndPublish(ctx, channel, string(data)); err != nil {
		return fmt.Errorf("mirror %s: %w", channel, err)
	}
	m.log.WithField("channel", channel).Debug("record mirrored")
	return nil
}

func (m *Redis) setAndPublish(ctx context.Context, channel string, data string) error {
	if err := m.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return err
	}
	return m.rdb.Set(ctx, channel, data, 0).Err()
}
