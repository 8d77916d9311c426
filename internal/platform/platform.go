// Package platform provides hardware queries that gopsutil does not cover.
// GPU statistics come from nvidia-smi where the platform ships it.
package platform

import (
	"context"

	"github.com/Guliveer/watchpost/internal/models"
)

// Platform provides OS-specific functionality beyond what gopsutil offers.
type Platform interface {
	// GPUStats returns one entry per detected GPU.
	// An empty result with a nil error means no supported GPU is present.
	GPUStats(ctx context.Context) ([]models.GPUStat, error)

	// Name returns the platform name (nvidia, stub).
	Name() string
}
