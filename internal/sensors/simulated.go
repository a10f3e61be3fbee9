package sensors

import (
	"context"
	"math"
	"time"

	"github.com/kirbo/go-telemetry/internal/models"
)

// Simulated produces slowly varying readings for bench runs without
// hardware. Values depend only on the time since start.
type Simulated struct {
	start time.Time
	now   func() time.Time
}

func NewSimulated() *Simulated {
	return &Simulated{start: time.Now(), now: time.Now}
}

func (s *Simulated) elapsed() float64 {
	return s.now().Sub(s.start).Seconds()
}

func wave(t, period, mid, amp float64) float64 {
	return mid + amp*math.Sin(2*math.Pi*t/period)
}

func (s *Simulated) ReadAll(context.Context) (models.SampleSet, error) {
	t := s.elapsed()
	return models.SampleSet{
		Accel: models.Vector3{X: int32(wave(t, 7, 0, 20)), Y: int32(wave(t, 11, 0, 20)), Z: 1000},
		Gyro:  models.Vector3{X: int32(wave(t, 5, 0, 150)), Y: int32(wave(t, 13, 0, 150)), Z: 0},
		Mag: models.MagVector{
			X: int32(wave(t, 60, 20, 3)),
			Y: int32(wave(t, 60, -5, 3)),
			Z: int32(wave(t, 60, -40, 3)),
			R: 6000,
		},
		Humidity:         uint32(wave(t, 600, 45, 10)),
		Pressure:         uint32(wave(t, 3600, 101325, 300)),
		Light:            uint32(wave(t, 86400, 50000, 49000)),
		TemperatureMilli: int32(wave(t, 1800, 21500, 1500)),
	}, nil
}

// ReadMillivolts discharges linearly from 4200 mV by 1 mV a minute.
func (s *Simulated) ReadMillivolts(context.Context) (uint32, error) {
	drop := uint32(s.elapsed() / 60)
	if drop > 4200 {
		return 0, nil
	}
	return 4200 - drop, nil
}
