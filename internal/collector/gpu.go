// GPU collector: load, memory and temperature through the platform layer.
package collector

import (
	"context"

	"github.com/Guliveer/watchpost/internal/platform"
)

// GPUCollector collects per-GPU statistics.
type GPUCollector struct {
	platform platform.Platform
}

// NewGPUCollector creates a GPU collector backed by p.
func NewGPUCollector(p platform.Platform) *GPUCollector {
	return &GPUCollector{platform: p}
}

// Name returns the collector identifier.
func (c *GPUCollector) Name() string { return NameGPU }

// Collect returns the GPU list; an empty list means no supported GPU.
func (c *GPUCollector) Collect(ctx context.Context) (interface{}, error) {
	return c.platform.GPUStats(ctx)
}

// IsAvailable reports whether a platform backend is configured.
func (c *GPUCollector) IsAvailable() bool { return c.platform != nil }
