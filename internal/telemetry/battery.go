package telemetry

const (
	// BatteryEmptyMillivolts reads as 0%.
	BatteryEmptyMillivolts = 3304
	// BatteryRangeMillivolts is the span between 0% and 100%.
	BatteryRangeMillivolts = 1000
)

// BatteryPercent maps a cell voltage linearly onto a charge percentage:
// 3304 mV is 0% and 4304 mV is 100%. The result is not clamped, so
// voltages outside that window give negative or >100 values.
func BatteryPercent(millivolts uint32) int32 {
	return int32((float64(millivolts) - BatteryEmptyMillivolts) / BatteryRangeMillivolts * 100)
}
