//go:build windows || linux

package platform

// New returns the nvidia-smi backed platform; nvidia-smi ships with the
// drivers on Windows and Linux.
func New() Platform {
	return &NvidiaPlatform{run: execRun}
}
