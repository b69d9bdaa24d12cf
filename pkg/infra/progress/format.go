package progress

import (
	"fmt"
	"time"
)

// FormatBytes formats a byte count for humans. Negative counts are "unknown".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats a transfer rate
func FormatSpeed(bytes int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "-"
	}
	perSec := int64(float64(bytes) / elapsed.Seconds())
	return FormatBytes(perSec) + "/s"
}
