package util

import (
	"fmt"
	"time"
)

// FormatDuration formats duration into human readable format (e.g., "1h30m", "5m10s", "45s").
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	}

	if duration < time.Hour {
		m := int(duration.Minutes())
		s := int(duration.Seconds()) % 60

		return fmt.Sprintf("%dm%ds", m, s)
	}

	h := int(duration.Hours())
	m := int(duration.Minutes()) % 60

	return fmt.Sprintf("%dh%dm", h, m)
}

// FormatWait renders a waiting period for end users, e.g. "15 min", "1 h 30 min", "45 s".
// Minutes and above are rounded up so the message never promises a shorter wait.
func FormatWait(duration time.Duration) string {
	if duration < time.Minute {
		return fmt.Sprintf("%d s", int(duration.Round(time.Second).Seconds()))
	}

	minutes := int((duration + time.Minute - 1) / time.Minute)
	if minutes < 60 {
		return fmt.Sprintf("%d min", minutes)
	}

	h, m := minutes/60, minutes%60
	if m == 0 {
		return fmt.Sprintf("%d h", h)
	}

	return fmt.Sprintf("%d h %d min", h, m)
}
