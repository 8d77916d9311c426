// Network I/O collector: gathers cumulative byte counters per interface.
// Rates are derived by the monitor from consecutive samples.
package collector

import (
	"context"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/watchpost/internal/models"
)

// NetworkCollector collects per-interface network byte counters.
type NetworkCollector struct{}

// NewNetworkCollector creates a new network collector.
func NewNetworkCollector() *NetworkCollector {
	return &NetworkCollector{}
}

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return NameNetwork }

// Collect returns the sent/received byte counters keyed by interface name.
func (c *NetworkCollector) Collect(ctx context.Context) (interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	result := make(map[string]models.NetCounters, len(counters))
	for _, ic := range counters {
		result[ic.Name] = models.NetCounters{
			BytesSent: ic.BytesSent,
			BytesRecv: ic.BytesRecv,
		}
	}
	return result, nil
}

// IsAvailable returns true: network metrics are available on all platforms.
func (c *NetworkCollector) IsAvailable() bool { return true }
