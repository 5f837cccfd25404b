package util

import "fmt"

const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

var units = []string{"KiB", "MiB", "GiB"}

// FormatBytes renders a byte count with a binary unit suffix, for log fields.
func FormatBytes(n int64) string {
	if n < KiB {
		return fmt.Sprintf("%dB", n)
	}

	value, unit := float64(n)/KiB, 0
	for value >= KiB && unit < len(units)-1 {
		value /= KiB
		unit++
	}

	return fmt.Sprintf("%.1f%s", value, units[unit])
}
