package sensors

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/peknur/ruuvitag"
	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
)

const latestKey = "latest"

// Reading is one RuuviTag broadcast in the tag's own units: degrees C,
// %RH, Pa, g and volts.
type Reading struct {
	DeviceID     string
	Format       uint8
	Temperature  float64
	Humidity     float64
	Pressure     float64
	AccelX       float64
	AccelY       float64
	AccelZ       float64
	BatteryVolts float64
	Seen         time.Time
}

// RuuviTag keeps the newest broadcast from a BLE RuuviTag. Broadcasts
// older than the configured max age expire and reads fail until a new one
// arrives.
type RuuviTag struct {
	address string
	cache   *cache.Cache
	log     logrus.FieldLogger
}

func NewRuuviTag(cfg models.RuuviTagConfig, log logrus.FieldLogger) *RuuviTag {
	maxAge := time.Duration(cfg.MaxAgeMs) * time.Millisecond
	return &RuuviTag{
		address: cfg.Address,
		cache:   cache.New(maxAge, 2*maxAge),
		log:     log,
	}
}

// Scan opens the BLE scanner and feeds broadcasts into the driver until
// ctx is done.
func (r *RuuviTag) Scan(ctx context.Context, buffer int) error {
	scanner, err := ruuvitag.OpenScanner(buffer)
	if err != nil {
		return fmt.Errorf("open ruuvitag scanner: %w", err)
	}

	output := scanner.Start()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case data, ok := <-output:
				if !ok {
					r.log.Warn("ruuvitag scanner stopped")
					return
				}
				r.Observe(data)
			}
		}
	}()
	return nil
}

// Observe records one broadcast.
func (r *RuuviTag) Observe(data ruuvitag.Measurement) {
	r.store(Reading{
		DeviceID:     data.DeviceID(),
		Format:       uint8(data.Format()),
		Temperature:  float64(data.Temperature()),
		Humidity:     float64(data.Humidity()),
		Pressure:     float64(data.Pressure()),
		AccelX:       float64(data.AccelerationX()),
		AccelY:       float64(data.AccelerationY()),
		AccelZ:       float64(data.AccelerationZ()),
		BatteryVolts: float64(data.BatteryVoltage()),
		Seen:         time.Now(),
	})
}

func (r *RuuviTag) store(rd Reading) {
	if r.address != "" && !strings.EqualFold(rd.DeviceID, r.address) {
		return
	}

	var ping time.Duration
	if prev, err := r.latest(); err == nil {
		ping = rd.Seen.Sub(prev.Seen)
	}
	r.cache.Set(latestKey, rd, cache.DefaultExpiration)

	r.log.WithFields(logrus.Fields{
		"tag":    rd.DeviceID,
		"format": rd.Format,
		"ping":   ping,
	}).Debug("ruuvitag broadcast")
}

func (r *RuuviTag) latest() (Reading, error) {
	x, found := r.cache.Get(latestKey)
	if !found {
		return Reading{}, ErrNoReading
	}
	return x.(Reading), nil
}

func milli(v float64) int32 {
	return int32(math.Round(v * 1000))
}

// ReadAll converts the newest broadcast: acceleration to milli-g and
// temperature to milli-degrees. The tag has no gyroscope, magnetometer or
// light sensor, so those stay zero.
func (r *RuuviTag) ReadAll(context.Context) (models.SampleSet, error) {
	rd, err := r.latest()
	if err != nil {
		return models.SampleSet{}, err
	}
	return models.SampleSet{
		Accel:            models.Vector3{X: milli(rd.AccelX), Y: milli(rd.AccelY), Z: milli(rd.AccelZ)},
		Humidity:         uint32(math.Round(rd.Humidity)),
		Pressure:         uint32(math.Round(rd.Pressure)),
		TemperatureMilli: milli(rd.Temperature),
	}, nil
}

// ReadMillivolts reports the tag's own battery.
func (r *RuuviTag) ReadMillivolts(context.Context) (uint32, error) {
	rd, err := r.latest()
	if err != nil {
		return 0, err
	}
	return uint32(math.Round(rd.BatteryVolts * 1000)), nil
}
