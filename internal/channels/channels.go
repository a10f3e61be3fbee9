package channels

// Telemetry prefixes both the redis key holding a device's latest record
// and the channel it is published on, e.g. "telemetry:XDK1".
const Telemetry = "telemetry:"
