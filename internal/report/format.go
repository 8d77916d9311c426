package report

import "fmt"

// FormatBytes formats a byte count with binary units, e.g. "1.5 KB".
func FormatBytes(bytes float64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%.0f B", bytes)
	}
	div, exp := float64(unit), 0
	for n := bytes / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", bytes/div, "KMGTP"[exp])
}

// FormatRate formats a per-second transfer rate, e.g. "1.5 KB/s".
func FormatRate(bytesPerSec float64) string {
	return FormatBytes(bytesPerSec) + "/s"
}
