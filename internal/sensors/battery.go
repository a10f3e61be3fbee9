package sensors

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultSysfsPath is the usual Linux fuel-gauge voltage node.
const DefaultSysfsPath = "/sys/class/power_supply/BAT0/voltage_now"

// Sysfs reads a power_supply voltage_now node, which reports microvolts.
type Sysfs struct {
	Path string
}

func (s Sysfs) ReadMillivolts(context.Context) (uint32, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.Path, err)
	}
	uv, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return uint32(uv / 1000), nil
}

// Fixed always reports the same voltage.
type Fixed uint32

func (f Fixed) ReadMillivolts(context.Context) (uint32, error) {
	return uint32(f), nil
}
