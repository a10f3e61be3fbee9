package models

type Vector3 struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

type MagVector struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
	R int32 `json:"r"`
}

// SampleSet is one snapshot of every onboard sensor plus the battery.
// Temperature is kept in milli-degrees as read from the driver.
type SampleSet struct {
	Accel             Vector3   `json:"accelerometer"`
	Gyro              Vector3   `json:"gyro"`
	Mag               MagVector `json:"magnetometer"`
	Humidity          uint32    `json:"humidity"`
	Pressure          uint32    `json:"pressure"`
	Light             uint32    `json:"light"`
	TemperatureMilli  int32     `json:"temperatureMilli"`
	BatteryMillivolts uint32    `json:"batteryMillivolts"`
	BatteryPercent    int32     `json:"batteryPercent"`
}

// Temperature returns the temperature in degrees.
func (s SampleSet) Temperature() float64 {
	return float64(s.TemperatureMilli) / 1000
}

// Record is what a successful cycle hands to the mirror.
type Record struct {
	DeviceID   string    `json:"id"`
	Timestamp  int64     `json:"timestamp"`
	TimestampZ string    `json:"timestampZ"`
	Sample     SampleSet `json:"sample"`
	Payload    string    `json:"payload"`
	Truncated  bool      `json:"truncated"`
}

// IncomingMessage is the latest message received on the subscribed topic.
type IncomingMessage struct {
	Count   uint32 `json:"count"`
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

type BroadcastMessage struct {
	Timestamp   string  `json:"time"`
	DeviceID    string  `json:"deviceId"`
	Temperature float64 `json:"temperature"`
	Humidity    uint32  `json:"humidity"`
	Pressure    uint32  `json:"pressure"`
	Light       uint32  `json:"light"`
	Battery     int32   `json:"battery"`
	Millivolts  uint32  `json:"millivolts"`
}
