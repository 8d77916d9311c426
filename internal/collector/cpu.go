// CPU usage collector: gathers overall and per-core utilization and the
// current clock frequency.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUResult holds the collected CPU usage data.
type CPUResult struct {
	Overall float64   `json:"overall"`
	Cores   []float64 `json:"cores"`
	FreqMHz float64   `json:"freq_mhz"`
}

// CPUCollector collects CPU usage metrics.
type CPUCollector struct{}

// NewCPUCollector creates a new CPU collector.
func NewCPUCollector() *CPUCollector {
	return &CPUCollector{}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return NameCPU }

// Collect gathers CPU usage without blocking: with a zero interval gopsutil
// reports the average since the previous call, i.e. over the last tick.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	overall, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}

	// Per-core and frequency are display-only; failures are non-fatal.
	cores, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		cores = nil
	}

	result := CPUResult{Cores: cores}
	if len(overall) > 0 {
		result.Overall = overall[0]
	}
	if info, err := cpu.InfoWithContext(ctx); err == nil && len(info) > 0 {
		result.FreqMHz = info[0].Mhz
	}

	return result, nil
}

// IsAvailable returns true: CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }
