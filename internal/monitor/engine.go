// Package monitor implements the periodic evaluation loop: every tick it
// samples the metrics source, checks the sample against the configured
// limits and whitelist, records violations as alert/log pairs, and publishes
// the latest metrics for display.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/alertlog"
	"github.com/Guliveer/watchpost/internal/audit"
	"github.com/Guliveer/watchpost/internal/models"
	"github.com/Guliveer/watchpost/internal/notify"
	"github.com/Guliveer/watchpost/internal/policy"
	"github.com/Guliveer/watchpost/internal/scheduler"
)

// DefaultInterval is the time between two ticks.
const DefaultInterval = time.Second

// Source produces one sample of the OS counters per call.
// A non-nil error with a partially filled sample is tolerated.
type Source interface {
	Sample(ctx context.Context) (models.Sample, error)
}

// Options wires an Engine. Source, Limits, Whitelist and Registry are required.
type Options struct {
	Source    Source
	Limits    *policy.LimitStore
	Whitelist *policy.Whitelist
	Registry  *alertlog.Registry

	// Audit, when set, receives one line per alert.
	Audit *audit.Trail
	// Notifier, when set, receives every alert.
	Notifier notify.Notifier

	Interval time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Engine is the single monitoring instance of the process. It is created
// once, started when monitoring begins and stopped on teardown; readers
// share it by reference.
type Engine struct {
	source    Source
	limits    *policy.LimitStore
	whitelist *policy.Whitelist
	registry  *alertlog.Registry
	trail     *audit.Trail
	notifier  notify.Notifier
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	sched     *scheduler.Scheduler

	mu       sync.RWMutex
	snapshot models.MetricsSnapshot
	prevNet  map[string]models.NetCounters
	runID    string
}

// New creates a stopped engine.
func New(opts Options) (*Engine, error) {
	if opts.Source == nil || opts.Limits == nil || opts.Whitelist == nil || opts.Registry == nil {
		return nil, errors.New("monitor: source, limits, whitelist and registry are required")
	}

	e := &Engine{
		source:    opts.Source,
		limits:    opts.Limits,
		whitelist: opts.Whitelist,
		registry:  opts.Registry,
		trail:     opts.Audit,
		notifier:  opts.Notifier,
		interval:  opts.Interval,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.interval <= 0 {
		e.interval = DefaultInterval
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.sched = scheduler.New(e.interval, e.Tick, e.logger.Named("scheduler"))
	return e, nil
}

// Start transitions to Running and performs the first tick immediately.
// Calling Start while running restarts the timer; there is never more
// than one loop.
func (e *Engine) Start(ctx context.Context) {
	runID := uuid.NewString()

	e.mu.Lock()
	e.runID = runID
	e.mu.Unlock()

	e.logger.Info("Monitoring started",
		zap.String("run_id", runID),
		zap.Duration("interval", e.interval))
	e.sched.Start(ctx)
}

// Stop transitions to Stopped. No tick runs after Stop returns.
func (e *Engine) Stop() {
	wasRunning := e.sched.Running()
	e.sched.Stop()
	if wasRunning {
		e.logger.Info("Monitoring stopped", zap.String("run_id", e.currentRunID()))
	}
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool { return e.sched.Running() }

// Tick runs one evaluation cycle. It is called by the loop and may be called
// directly for one-shot checks. Sampling problems are logged and the cycle
// continues with whatever was sampled; persistence failures are returned,
// the in-memory registry still holds the new records.
func (e *Engine) Tick(ctx context.Context) error {
	sample, err := e.source.Sample(ctx)
	if err != nil {
		e.logger.Warn("Sampling incomplete", zap.Error(err))
	}

	limits := e.limits.Limits()
	violations := Evaluate(sample, limits, e.whitelist)
	e.publish(sample)

	if len(violations) == 0 {
		return nil
	}

	now := e.now()
	records := make([]audit.Record, 0, len(violations))
	for _, v := range violations {
		alert, entry := v.Records(now)
		e.registry.Insert(alert, entry)
		records = append(records, audit.Record{Resource: v.Resource, Entry: entry})
		e.notifier.Notify(alert)

		e.logger.Debug("Limit exceeded",
			zap.String("resource", v.Resource),
			zap.String("message", alert.Message))
	}

	e.logger.Info("Resource limits exceeded",
		zap.String("run_id", e.currentRunID()),
		zap.Int("alerts", len(violations)))

	var errs []error
	if err := e.registry.Persist(); err != nil {
		errs = append(errs, err)
	}
	if e.trail != nil {
		if err := e.trail.Append(records...); err != nil {
			errs = append(errs, fmt.Errorf("audit: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunOnce performs a single evaluation for one-shot checks. It first samples
// without evaluating, so per-process CPU and network throughput have a
// baseline, waits one interval, then runs a normal tick.
func (e *Engine) RunOnce(ctx context.Context) error {
	if err := e.Prime(ctx); err != nil {
		e.logger.Warn("Priming sample incomplete", zap.Error(err))
	}

	timer := time.NewTimer(e.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return e.Tick(ctx)
}

// Prime samples the source and publishes the snapshot without evaluating
// any rule.
func (e *Engine) Prime(ctx context.Context) error {
	sample, err := e.source.Sample(ctx)
	e.publish(sample)
	return err
}

// publish derives the display snapshot and keeps the network counters for
// the next tick's throughput.
func (e *Engine) publish(s models.Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := models.MetricsSnapshot{
		Timestamp:     s.Timestamp,
		CPUPercent:    s.CPUPercent,
		CPUCores:      s.CPUCores,
		CPUFreqMHz:    s.CPUFreqMHz,
		CPUTemp:       s.CPUTemp,
		MemoryPercent: s.MemoryPercent,
		MemoryUsed:    s.MemoryUsed,
		MemoryTotal:   s.MemoryTotal,
		Disks:         s.Disks,
		Network:       Throughput(e.prevNet, s.Network, e.interval),
		GPUs:          s.GPUs,
		ProcessCount:  len(s.Processes),
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = e.now()
	}

	// A tick without counters drops the baseline, so the next rate is never
	// divided over the wrong interval.
	e.prevNet = s.Network
	e.snapshot = snap
}

func (e *Engine) currentRunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// Snapshot returns the metrics published by the latest tick.
func (e *Engine) Snapshot() models.MetricsSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Alerts returns the alert history, newest first.
func (e *Engine) Alerts() []models.Alert { return e.registry.Alerts() }

// Logs returns the log history, newest first.
func (e *Engine) Logs() []models.LogEntry { return e.registry.Logs() }

// Limits returns the thresholds the next tick will use.
func (e *Engine) Limits() policy.Limits { return e.limits.Limits() }

// Whitelist returns the whitelisted process names in insertion order.
func (e *Engine) Whitelist() []string { return e.whitelist.Names() }

// UpdateLimits validates and persists new CPU and memory limits; they apply
// from the next tick.
func (e *Engine) UpdateLimits(cpu, memory float64) error {
	if err := e.limits.Update(cpu, memory); err != nil {
		return err
	}
	e.logger.Info("Resource limits updated",
		zap.Float64("cpu", cpu),
		zap.Float64("memory", memory))
	return nil
}

// AddWhitelistedProcess exempts a process name from alerting.
func (e *Engine) AddWhitelistedProcess(name string) error {
	if err := e.whitelist.Add(name); err != nil {
		return err
	}
	e.logger.Info("Process whitelisted", zap.String("process", name))
	return nil
}

// RemoveWhitelistedProcess removes a process name from the whitelist.
func (e *Engine) RemoveWhitelistedProcess(name string) error {
	if err := e.whitelist.Remove(name); err != nil {
		return err
	}
	e.logger.Info("Process removed from whitelist", zap.String("process", name))
	return nil
}
