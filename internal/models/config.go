package models

import "time"

// Config is the publisher configuration. It is fixed once loaded.
type Config struct {
	DeviceID        string        `json:"deviceId"`
	PublishPeriodMs int32         `json:"publishPeriodMs"`
	BufferCapacity  int32         `json:"bufferCapacity"`
	LogLevel        string        `json:"logLevel"`
	DiagAddr        string        `json:"diagAddr"`
	MQTT            MQTTConfig    `json:"mqtt"`
	Network         NetworkConfig `json:"network"`
	Sensors         SensorConfig  `json:"sensors"`
	Redis           RedisConfig   `json:"redis"`
}

// PublishPeriod is the fixed sleep between cycles.
func (c Config) PublishPeriod() time.Duration {
	return time.Duration(c.PublishPeriodMs) * time.Millisecond
}

type NetworkConfig struct {
	Interface    string `json:"interface"`
	TrackSession *bool  `json:"trackSession"`
}

// SessionTracking reports whether a dropped broker session counts as a
// lost link.
func (n NetworkConfig) SessionTracking() bool {
	return n.TrackSession == nil || *n.TrackSession
}

type RuuviTagConfig struct {
	Address       string `json:"address"`
	MaxAgeMs      int32  `json:"maxAgeMs"`
	ScannerBuffer int32  `json:"scannerBuffer"`
}

type BatteryConfig struct {
	Source          string `json:"source"`
	SysfsPath       string `json:"sysfsPath"`
	FixedMillivolts uint32 `json:"fixedMillivolts"`
}

type SensorConfig struct {
	Driver   string         `json:"driver"`
	RuuviTag RuuviTagConfig `json:"ruuvitag"`
	Battery  BatteryConfig  `json:"battery"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
}

// Enabled reports whether a redis mirror was configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

// CollectorConfig configures cmd/collector.
type CollectorConfig struct {
	Addr     string         `json:"addr"`
	Redis    RedisConfig    `json:"redis"`
	Postgres PostgresConfig `json:"postgres"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	Table    string `json:"table"`
}
