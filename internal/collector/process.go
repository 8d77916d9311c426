// Per-process collector: samples CPU and memory usage of every process.
package collector

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/models"
)

// ProcessAccessError reports a process that could not be inspected, usually
// because access was denied or it exited during the scan.
type ProcessAccessError struct {
	PID int32
	Op  string
	Err error
}

func (e *ProcessAccessError) Error() string {
	return fmt.Sprintf("process %d: %s: %v", e.PID, e.Op, e.Err)
}

func (e *ProcessAccessError) Unwrap() error { return e.Err }

// procHandle is the part of *process.Process the collector reads.
type procHandle interface {
	CreateTimeWithContext(ctx context.Context) (int64, error)
	NameWithContext(ctx context.Context) (string, error)
	PercentWithContext(ctx context.Context, interval time.Duration) (float64, error)
	MemoryInfoWithContext(ctx context.Context) (*process.MemoryInfoStat, error)
}

// trackedProcess is a handle kept between collections. created identifies
// the process instance, since pids are reused.
type trackedProcess struct {
	handle  procHandle
	created int64
}

// ProcessCollector samples every running process. Process handles are kept
// between calls so CPU usage is measured over the interval since the
// previous collection rather than over the process lifetime.
type ProcessCollector struct {
	logger *zap.Logger
	cores  int

	totalMemory func(ctx context.Context) (uint64, error)
	pids        func(ctx context.Context) ([]int32, error)
	open        func(ctx context.Context, pid int32) (procHandle, error)

	tracked map[int32]trackedProcess
}

// NewProcessCollector creates a new process collector.
func NewProcessCollector(logger *zap.Logger) *ProcessCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = runtime.NumCPU()
	}
	return &ProcessCollector{
		logger:      logger,
		cores:       cores,
		totalMemory: systemMemory,
		pids:        process.PidsWithContext,
		open:        openProcess,
		tracked:     make(map[int32]trackedProcess),
	}
}

func systemMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

func openProcess(ctx context.Context, pid int32) (procHandle, error) {
	return process.NewProcessWithContext(ctx, pid)
}

// Name returns the collector identifier.
func (c *ProcessCollector) Name() string { return NameProcesses }

// Collect returns one ProcessSample per process that could be inspected.
// Processes that fail to report are skipped without aborting the scan.
func (c *ProcessCollector) Collect(ctx context.Context) (interface{}, error) {
	total, err := c.totalMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading total memory: %w", err)
	}
	pids, err := c.pids(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	seen := make(map[int32]struct{}, len(pids))
	samples := make([]models.ProcessSample, 0, len(pids))
	skipped := 0
	for _, pid := range pids {
		seen[pid] = struct{}{}
		h, err := c.handle(ctx, pid)
		if err != nil {
			skipped++
			c.logger.Debug("Skipping process", zap.Error(err))
			continue
		}

		s, err := c.sample(ctx, pid, h, total)
		if err != nil {
			skipped++
			c.logger.Debug("Skipping process", zap.Error(err))
			continue
		}
		samples = append(samples, s)
	}

	for pid := range c.tracked {
		if _, ok := seen[pid]; !ok {
			delete(c.tracked, pid)
		}
	}

	if skipped > 0 {
		c.logger.Debug("Process scan finished with skipped entries",
			zap.Int("sampled", len(samples)),
			zap.Int("skipped", skipped))
	}
	return samples, nil
}

// handle returns the tracked handle for pid, replacing it when the pid now
// belongs to a different process. gopsutil handles cache the name and create
// time, so a fresh handle is opened to read the current create time.
func (c *ProcessCollector) handle(ctx context.Context, pid int32) (procHandle, error) {
	fresh, err := c.open(ctx, pid)
	if err != nil {
		return nil, &ProcessAccessError{PID: pid, Op: "open", Err: err}
	}
	created, err := fresh.CreateTimeWithContext(ctx)
	if err != nil {
		return nil, &ProcessAccessError{PID: pid, Op: "create time", Err: err}
	}

	if t, ok := c.tracked[pid]; ok && t.created == created {
		return t.handle, nil
	}
	c.tracked[pid] = trackedProcess{handle: fresh, created: created}
	return fresh, nil
}

func (c *ProcessCollector) sample(ctx context.Context, pid int32, p procHandle, totalMem uint64) (models.ProcessSample, error) {
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return models.ProcessSample{}, &ProcessAccessError{PID: pid, Op: "name", Err: err}
	}
	raw, err := p.PercentWithContext(ctx, 0)
	if err != nil {
		return models.ProcessSample{}, &ProcessAccessError{PID: pid, Op: "cpu", Err: err}
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return models.ProcessSample{}, &ProcessAccessError{PID: pid, Op: "memory", Err: err}
	}

	return models.ProcessSample{
		PID:           pid,
		Name:          name,
		CPUPercent:    NormalizeCPU(raw, c.cores),
		MemoryPercent: MemoryPercent(info.RSS, totalMem),
	}, nil
}

// NormalizeCPU converts a per-process percentage that counts every core as
// 100% into a share of the whole machine.
func NormalizeCPU(raw float64, cores int) float64 {
	if cores < 1 {
		return raw
	}
	return raw / float64(cores)
}

// MemoryPercent returns rss as a percentage of total system memory.
func MemoryPercent(rss, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(rss) / float64(total) * 100
}

// IsAvailable returns true: process listing is available on all platforms.
func (c *ProcessCollector) IsAvailable() bool { return true }
