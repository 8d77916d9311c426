//go:build !windows && !linux

package platform

import (
	"context"

	"github.com/Guliveer/watchpost/internal/models"
)

// StubPlatform reports no GPUs on systems without nvidia-smi.
type StubPlatform struct{}

// New creates a stub platform instance.
func New() Platform {
	return &StubPlatform{}
}

// Name returns the platform identifier.
func (p *StubPlatform) Name() string { return "stub" }

// GPUStats always returns no GPUs.
func (p *StubPlatform) GPUStats(ctx context.Context) ([]models.GPUStat, error) {
	return nil, nil
}
