// Package config loads the publisher and collector settings. Values come
// from an optional JSON file, are overridden by environment variables and
// finally filled from built-in defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/imdario/mergo"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/sensors"
)

// Defaults mirror the device firmware: 5 s period, 512 byte buffers, QoS 1,
// 60 s connect and 20 s subscribe/publish timeouts.
func Defaults() models.Config {
	return models.Config{
		DeviceID:        "XDK1",
		PublishPeriodMs: 5000,
		BufferCapacity:  512,
		LogLevel:        "info",
		MQTT: models.MQTTConfig{
			Host:               "127.0.0.1",
			Port:               1883,
			QoS:                1,
			KeepAliveSec:       100,
			ConnectTimeoutMs:   60000,
			SubscribeTimeoutMs: 20000,
			PublishTimeoutMs:   20000,
		},
		Sensors: models.SensorConfig{
			Driver: sensors.DriverRuuviTag,
			RuuviTag: models.RuuviTagConfig{
				MaxAgeMs:      60000,
				ScannerBuffer: 10,
			},
			Battery: models.BatteryConfig{
				Source:    sensors.BatteryRuuviTag,
				SysfsPath: sensors.DefaultSysfsPath,
			},
		},
		Redis: models.RedisConfig{
			Port: "6379",
		},
	}
}

// Load reads path (a missing file is fine), applies the environment and
// fills defaults.
func Load(path string) (models.Config, error) {
	var cfg models.Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return cfg, fmt.Errorf("merge defaults: %w", err)
	}

	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "XDK/" + cfg.DeviceID
	}
	if cfg.MQTT.User.ClientID == "" {
		cfg.MQTT.User.ClientID = cfg.DeviceID
	}

	return cfg, Validate(cfg)
}

func Validate(cfg models.Config) error {
	switch {
	case cfg.DeviceID == "":
		return errors.New("device id must be set")
	case cfg.MQTT.Port < 1 || cfg.MQTT.Port > 65535:
		return fmt.Errorf("mqtt port %d out of range", cfg.MQTT.Port)
	case cfg.MQTT.QoS != 1:
		return fmt.Errorf("mqtt qos must be 1, got %d", cfg.MQTT.QoS)
	case cfg.BufferCapacity < 2:
		return fmt.Errorf("buffer capacity %d too small", cfg.BufferCapacity)
	case cfg.PublishPeriodMs <= 0:
		return fmt.Errorf("publish period %d ms must be positive", cfg.PublishPeriodMs)
	case cfg.MQTT.ConnectTimeoutMs <= 0 || cfg.MQTT.SubscribeTimeoutMs <= 0 || cfg.MQTT.PublishTimeoutMs <= 0:
		return errors.New("mqtt timeouts must be positive")
	}
	return nil
}

func applyEnv(cfg *models.Config) error {
	envString(&cfg.DeviceID, "DEVICE_ID")
	envString(&cfg.LogLevel, "LOG_LEVEL")
	envString(&cfg.DiagAddr, "DIAG_ADDR")
	envString(&cfg.MQTT.Host, "MQTT_HOST")
	envString(&cfg.MQTT.Topic, "MQTT_TOPIC")
	envString(&cfg.MQTT.User.ClientID, "MQTT_CLIENT_ID")
	envString(&cfg.MQTT.User.Username, "MQTT_USERNAME")
	envString(&cfg.MQTT.User.Password, "MQTT_PASSWORD")
	envString(&cfg.Network.Interface, "NETWORK_INTERFACE")
	envString(&cfg.Sensors.Driver, "SENSOR_DRIVER")
	envString(&cfg.Sensors.RuuviTag.Address, "RUUVITAG_ADDRESS")
	envString(&cfg.Sensors.Battery.Source, "BATTERY_SOURCE")
	envString(&cfg.Sensors.Battery.SysfsPath, "BATTERY_SYSFS_PATH")
	envString(&cfg.Redis.Host, "REDIS_MASTER_HOST")
	envString(&cfg.Redis.Port, "REDIS_MASTER_PORT")
	envString(&cfg.Redis.Password, "REDIS_MASTER_PASSWORD")

	ints := []struct {
		dst *int32
		key string
	}{
		{&cfg.MQTT.Port, "MQTT_PORT"},
		{&cfg.PublishPeriodMs, "PUBLISH_PERIOD_MS"},
		{&cfg.BufferCapacity, "BUFFER_CAPACITY"},
		{&cfg.MQTT.KeepAliveSec, "MQTT_KEEPALIVE_SEC"},
		{&cfg.MQTT.ConnectTimeoutMs, "MQTT_CONNECT_TIMEOUT_MS"},
		{&cfg.MQTT.SubscribeTimeoutMs, "MQTT_SUBSCRIBE_TIMEOUT_MS"},
		{&cfg.MQTT.PublishTimeoutMs, "MQTT_PUBLISH_TIMEOUT_MS"},
		{&cfg.Sensors.RuuviTag.MaxAgeMs, "RUUVITAG_MAX_AGE_MS"},
	}
	for _, i := range ints {
		if err := envInt32(i.dst, i.key); err != nil {
			return err
		}
	}

	if v, ok := os.LookupEnv("MQTT_QOS"); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("MQTT_QOS: %w", err)
		}
		cfg.MQTT.QoS = byte(n)
	}
	if v, ok := os.LookupEnv("BATTERY_FIXED_MV"); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("BATTERY_FIXED_MV: %w", err)
		}
		cfg.Sensors.Battery.FixedMillivolts = uint32(n)
	}
	if v, ok := os.LookupEnv("LINK_TRACK_SESSION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LINK_TRACK_SESSION: %w", err)
		}
		cfg.Network.TrackSession = &b
	}
	return nil
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt32(dst *int32, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = int32(n)
	return nil
}

// LoadCollector reads the collector settings from the environment.
func LoadCollector() models.CollectorConfig {
	cfg := models.CollectorConfig{
		Addr: os.Getenv("COLLECTOR_ADDR"),
		Redis: models.RedisConfig{
			Host:     os.Getenv("REDIS_MASTER_HOST"),
			Port:     os.Getenv("REDIS_MASTER_PORT"),
			Password: os.Getenv("REDIS_MASTER_PASSWORD"),
		},
		Postgres: models.PostgresConfig{
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			User:     os.Getenv("POSTGRES_USERNAME"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: os.Getenv("POSTGRES_DATABASE"),
			Table:    os.Getenv("POSTGRES_TELEMETRY_TABLE"),
		},
	}
	_ = mergo.Merge(&cfg, models.CollectorConfig{
		Addr:     ":8000",
		Redis:    models.RedisConfig{Host: "localhost", Port: "6379"},
		Postgres: models.PostgresConfig{Host: "localhost", Port: "5432", Table: "telemetry_metrics"},
	})
	return cfg
}
