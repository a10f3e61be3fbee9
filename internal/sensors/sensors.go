// Package sensors holds the sensor and battery drivers the publisher reads
// every cycle.
package sensors

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kirbo/go-telemetry/internal/models"
	"github.com/kirbo/go-telemetry/internal/publisher"
)

// ErrNoReading means no fresh measurement is available.
var ErrNoReading = errors.New("no recent sensor reading")

const (
	DriverRuuviTag  = "ruuvitag"
	DriverSimulated = "simulated"

	BatterySysfs     = "sysfs"
	BatteryRuuviTag  = "ruuvitag"
	BatteryFixed     = "fixed"
	BatterySimulated = "simulated"
)

// Open builds the configured drivers. A RuuviTag driver starts scanning
// immediately and stops when ctx is done.
func Open(ctx context.Context, cfg models.SensorConfig, log logrus.FieldLogger) (publisher.Sensors, publisher.Battery, error) {
	var (
		sensors publisher.Sensors
		tag     *RuuviTag
		sim     *Simulated
	)

	switch cfg.Driver {
	case DriverRuuviTag:
		tag = NewRuuviTag(cfg.RuuviTag, log.WithField("driver", DriverRuuviTag))
		if err := tag.Scan(ctx, int(cfg.RuuviTag.ScannerBuffer)); err != nil {
			return nil, nil, err
		}
		sensors = tag
	case DriverSimulated:
		sim = NewSimulated()
		sensors = sim
	default:
		return nil, nil, fmt.Errorf("unknown sensor driver %q", cfg.Driver)
	}

	switch cfg.Battery.Source {
	case BatterySysfs:
		return sensors, Sysfs{Path: cfg.Battery.SysfsPath}, nil
	case BatteryFixed:
		return sensors, Fixed(cfg.Battery.FixedMillivolts), nil
	case BatteryRuuviTag:
		if tag == nil {
			return nil, nil, fmt.Errorf("battery source %q needs the %q sensor driver", BatteryRuuviTag, DriverRuuviTag)
		}
		return sensors, tag, nil
	case BatterySimulated:
		if sim == nil {
			sim = NewSimulated()
		}
		return sensors, sim, nil
	}
	return nil, nil, fmt.Errorf("unknown battery source %q", cfg.Battery.Source)
}
