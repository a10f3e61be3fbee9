package publisher

import (
	"context"
	"errors"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/telemetry"
)

// Acquirer turns the sensor and battery reads into one step.
type Acquirer struct {
	sensors Sensors
	battery Battery
}

func NewAcquirer(sensors Sensors, battery Battery) *Acquirer {
	return &Acquirer{sensors: sensors, battery: battery}
}

// Acquire reads the battery and then all sensors. The battery is read even
// if the sensors are going to fail, and the returned set carries the
// battery fields whenever that read succeeded, including alongside an
// ErrSensorReadFailed error.
func (a *Acquirer) Acquire(ctx context.Context) (models.SampleSet, error) {
	mv, batteryErr := a.battery.ReadMillivolts(ctx)
	if batteryErr != nil {
		batteryErr = wrap(ErrBatteryReadFailed, batteryErr)
	}

	s, sensorErr := a.sensors.ReadAll(ctx)
	if sensorErr != nil {
		s = models.SampleSet{}
		sensorErr = wrap(ErrSensorReadFailed, sensorErr)
	}

	s.BatteryMillivolts, s.BatteryPercent = 0, 0
	if batteryErr == nil {
		s.BatteryMillivolts = mv
		s.BatteryPercent = telemetry.BatteryPercent(mv)
	}

	return s, errors.Join(sensorErr, batteryErr)
}
