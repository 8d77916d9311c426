// Package collector defines the Collector interface and the gopsutil-backed
// implementations that together form the metrics source of the monitor.
package collector

import "context"

// Result keys under which the registry stores each collector's output.
const (
	NameCPU         = "cpu"
	NameMemory      = "memory"
	NameDisk        = "disk"
	NameNetwork     = "network"
	NameProcesses   = "processes"
	NameGPU         = "gpu"
	NameTemperature = "temperature"
)

// Collector is the interface that all metric collectors must implement.
// Each collector gathers a specific type of system metric.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the metric data and returns it.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current platform.
	// Collectors that return false will not be registered.
	IsAvailable() bool
}
