// Package telemetry renders sample sets into the fixed-schema text record
// sent to the broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kirbo/go-telemetry/internal/models"
)

var (
	// ErrEmpty means rendering produced no bytes at all.
	ErrEmpty = errors.New("encoded message is empty")
	// ErrTruncated means the record did not fit and was cut at capacity-1
	// bytes. The truncated message is still usable.
	ErrTruncated = errors.New("encoded message truncated")
)

type Vector struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

type MagVector struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
	R string `json:"r"`
}

// Message is the wire record. Every numeric field is carried as text and
// the field order is fixed.
type Message struct {
	Accelerometer Vector    `json:"accelerometer"`
	Gyro          Vector    `json:"gyro"`
	Magnetometer  MagVector `json:"magnetometer"`
	Humidity      string    `json:"humidity"`
	Pressure      string    `json:"pressure"`
	Light         string    `json:"light"`
	Temperature   string    `json:"temperature"`
	ID            string    `json:"id"`
	Battery       string    `json:"battery"`
}

func itoa(v int32) string  { return strconv.FormatInt(int64(v), 10) }
func utoa(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

// FormatTemperature renders milli-degrees as decimal degrees with six
// fractional digits.
func FormatTemperature(milli int32) string {
	return strconv.FormatFloat(float64(milli)/1000, 'f', 6, 64)
}

// NewMessage builds the wire record for one sample set.
func NewMessage(s models.SampleSet, deviceID string, batteryPct int32) Message {
	return Message{
		Accelerometer: Vector{X: itoa(s.Accel.X), Y: itoa(s.Accel.Y), Z: itoa(s.Accel.Z)},
		Gyro:          Vector{X: itoa(s.Gyro.X), Y: itoa(s.Gyro.Y), Z: itoa(s.Gyro.Z)},
		Magnetometer:  MagVector{X: itoa(s.Mag.X), Y: itoa(s.Mag.Y), Z: itoa(s.Mag.Z), R: itoa(s.Mag.R)},
		Humidity:      utoa(s.Humidity),
		Pressure:      utoa(s.Pressure),
		Light:         utoa(s.Light),
		Temperature:   FormatTemperature(s.TemperatureMilli),
		ID:            deviceID,
		Battery:       itoa(batteryPct),
	}
}

// Encode renders s into out, replacing its previous contents, and returns
// the number of bytes written. When the record is longer than out can hold
// it is truncated and Encode returns the written length together with
// ErrTruncated. Encode never writes past out's capacity.
func Encode(s models.SampleSet, deviceID string, batteryPct int32, out *FixedBuffer) (int, error) {
	out.Reset()

	data, err := json.Marshal(NewMessage(s, deviceID, batteryPct))
	if err != nil {
		return 0, fmt.Errorf("render record: %w", err)
	}

	n, err := out.Write(data)
	if n == 0 {
		return 0, ErrEmpty
	}
	if err != nil {
		return n, ErrTruncated
	}
	return n, nil
}

// Decode parses a complete (non-truncated) record.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode record: %w", err)
	}
	return m, nil
}
