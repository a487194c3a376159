package progress

import (
	"fmt"
	"math"
	"time"
)

// FormatSize converts bytes into a human-readable string.
func FormatSize(bytes int64) string {
	const unit = 1000
	if bytes < 0 {
		return "Unknown"
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	d := float64(bytes)
	exp := 0
	for d >= unit {
		d /= unit
		exp++
	}
	prefixes := "kMGTPE"
	idx := exp - 1
	if idx >= len(prefixes) {
		idx = len(prefixes) - 1
	}

	return fmt.Sprintf("%.1f %cB", d, prefixes[idx])
}

// FormatSpeed renders a bytes/sec value, "--/s" when unknown.
func FormatSpeed(speed *float64) string {
	if speed == nil || math.IsNaN(*speed) {
		return "--/s"
	}

	return FormatSize(int64(*speed)) + "/s"
}

// FormatETA renders a seconds value, "--" when unknown.
func FormatETA(eta *float64) string {
	if eta == nil || *eta < 0 {
		return "--"
	}

	return FormatDuration(time.Duration(*eta * float64(time.Second)))
}

// FormatDuration returns a more user-friendly duration string.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		m := d / time.Minute
		s := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dm %ds", m, s)
	}

	h := d / time.Hour
	m := (d % time.Hour) / time.Minute

	return fmt.Sprintf("%dh %dm", h, m)
}
