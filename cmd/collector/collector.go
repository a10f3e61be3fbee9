package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/archive"
	"github.com/kirbo/go-telemetry/internal/channels"
	"github.com/kirbo/go-telemetry/internal/models"
)

const (
	namespace    = "/"
	room         = ""
	updateEvent  = "update"
	initialEvent = "initial"
)

type broadcaster interface {
	BroadcastToRoom(namespace string, room string, event string, args ...interface{}) bool
}

type collector struct {
	rdb   *redis.Client
	store archive.Store
	out   broadcaster
	log   logrus.FieldLogger
}

func parseRecord(row string) (rec models.Record, err error) {
	if err = json.Unmarshal([]byte(row), &rec); err != nil {
		return rec, fmt.Errorf("parse record: %w", err)
	}
	if rec.DeviceID == "" {
		return rec, fmt.Errorf("parse record: missing device id")
	}
	return rec, nil
}

func broadcastMessage(rec models.Record) models.BroadcastMessage {
	return models.BroadcastMessage{
		Timestamp:   rec.TimestampZ,
		DeviceID:    rec.DeviceID,
		Temperature: rec.Sample.Temperature(),
		Humidity:    rec.Sample.Humidity,
		Pressure:    rec.Sample.Pressure,
		Light:       rec.Sample.Light,
		Battery:     rec.Sample.BatteryPercent,
		Millivolts:  rec.Sample.BatteryMillivolts,
	}
}

// handle archives one mirrored record and pushes it to web clients.
func (c *collector) handle(ctx context.Context, channel, payload string) error {
	rec, err := parseRecord(payload)
	if err != nil {
		return err
	}
	if want := strings.TrimPrefix(channel, channels.Telemetry); want != rec.DeviceID {
		return fmt.Errorf("record for %q arrived on %s", rec.DeviceID, channel)
	}

	if err := c.store.InsertRecord(ctx, rec); err != nil {
		return err
	}
	c.out.BroadcastToRoom(namespace, room, updateEvent, broadcastMessage(rec))
	return nil
}

// subscribe blocks until ctx is done or the subscription breaks.
func (c *collector) subscribe(ctx context.Context) error {
	pubsub := c.rdb.PSubscribe(ctx, channels.Telemetry+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := c.handle(ctx, msg.Channel, msg.Payload); err != nil {
				c.log.WithField("channel", msg.Channel).WithError(err).Warn("dropping record")
			}
		}
	}
}

// latest collects the last mirrored record of every device.
func (c *collector) latest(ctx context.Context) ([]models.BroadcastMessage, error) {
	var out []models.BroadcastMessage

	iter := c.rdb.Scan(ctx, 0, channels.Telemetry+"*", 10).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		row, err := c.rdb.Get(ctx, key).Result()
		if err != nil {
			c.log.WithField("key", key).WithError(err).Debug("no data found")
			continue
		}
		rec, err := parseRecord(row)
		if err != nil {
			c.log.WithField("key", key).WithError(err).Warn("skipping stored record")
			continue
		}
		out = append(out, broadcastMessage(rec))
	}
	return out, iter.Err()
}
