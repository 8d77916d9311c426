package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/models"
)

// sampleTimeout bounds one full collection pass.
const sampleTimeout = 10 * time.Second

// ErrNoData is returned by Sample when every collector failed.
var ErrNoData = errors.New("collector: no collector produced data")

// Registry manages all registered collectors and orchestrates concurrent collection.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
	now        func() time.Time
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
		now:        time.Now,
	}
}

// Register adds a collector if it's available on the current platform.
// Unavailable collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
		return
	}
	r.collectors = append(r.collectors, c)
	r.logger.Debug("Registered collector", zap.String("name", c.Name()))
}

// CollectAll runs all registered collectors concurrently and returns a map
// of collector name -> result data. Failed collectors are logged but do not
// prevent other collectors from completing.
func (r *Registry) CollectAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{}, len(r.collectors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range r.collectors {
		wg.Add(1)
		go func(col Collector) {
			defer wg.Done()
			data, err := col.Collect(ctx)
			if err != nil {
				r.logger.Warn("Collection failed",
					zap.String("collector", col.Name()),
					zap.Error(err))
				return
			}
			mu.Lock()
			results[col.Name()] = data
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}

// Sample runs every collector once and assembles the results into a Sample.
// Missing results leave the corresponding fields zero.
func (r *Registry) Sample(ctx context.Context) (models.Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, sampleTimeout)
	defer cancel()

	results := r.CollectAll(ctx)
	s := Assemble(results)
	s.Timestamp = r.now()
	if len(results) == 0 && len(r.collectors) > 0 {
		return s, ErrNoData
	}
	return s, nil
}

// Assemble maps collector results into a Sample.
func Assemble(results map[string]interface{}) models.Sample {
	var s models.Sample

	if cpu, ok := results[NameCPU].(CPUResult); ok {
		s.CPUPercent = cpu.Overall
		s.CPUCores = cpu.Cores
		s.CPUFreqMHz = cpu.FreqMHz
	}
	if mem, ok := results[NameMemory].(MemoryResult); ok {
		s.MemoryPercent = mem.Percent
		s.MemoryUsed = mem.Used
		s.MemoryTotal = mem.Total
	}
	if disks, ok := results[NameDisk].([]models.DiskUsage); ok {
		s.Disks = disks
	}
	if counters, ok := results[NameNetwork].(map[string]models.NetCounters); ok {
		s.Network = counters
	}
	if procs, ok := results[NameProcesses].([]models.ProcessSample); ok {
		s.Processes = procs
	}
	if gpus, ok := results[NameGPU].([]models.GPUStat); ok {
		s.GPUs = gpus
	}
	if temp, ok := results[NameTemperature].(TemperatureResult); ok {
		s.CPUTemp = temp.CPUTemp
	}

	return s
}

// Collectors returns a copy of all registered collectors.
func (r *Registry) Collectors() []Collector {
	result := make([]Collector, len(r.collectors))
	copy(result, r.collectors)
	return result
}
