// Package models defines the data structures shared by the collectors, the
// monitor engine and the alert/log registry. Types that are persisted carry
// JSON tags matching the on-disk document.
package models

import "time"

// Sample is a single point-in-time reading of the raw OS counters.
// It is produced by a metrics source once per tick and never persisted.
type Sample struct {
	Timestamp     time.Time
	CPUPercent    float64
	CPUCores      []float64
	CPUFreqMHz    float64
	CPUTemp       *float64
	MemoryPercent float64
	MemoryUsed    uint64
	MemoryTotal   uint64
	Disks         []DiskUsage
	Network       map[string]NetCounters
	GPUs          []GPUStat
	Processes     []ProcessSample
}

// DiskUsage represents usage for a single mounted partition.
type DiskUsage struct {
	Device  string  `json:"device"`
	Mount   string  `json:"mount"`
	Fs      string  `json:"fs,omitempty"`
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Percent float64 `json:"percent"`
}

// NetCounters holds the cumulative byte counters of one interface.
type NetCounters struct {
	BytesSent uint64
	BytesRecv uint64
}

// Throughput is the per-second transfer rate of one interface between two ticks.
type Throughput struct {
	Interface  string  `json:"interface"`
	SentPerSec float64 `json:"sent_per_sec"`
	RecvPerSec float64 `json:"recv_per_sec"`
}

// GPUStat is the load, memory and temperature of one GPU.
type GPUStat struct {
	Index         int     `json:"index"`
	Name          string  `json:"name"`
	LoadPercent   float64 `json:"load_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	Temperature   float64 `json:"temperature"`
}

// MemoryPercent returns the share of GPU memory in use, or 0 when unknown.
func (g GPUStat) MemoryPercent() float64 {
	if g.MemoryTotalMB <= 0 {
		return 0
	}
	return g.MemoryUsedMB / g.MemoryTotalMB * 100
}

// ProcessSample is the per-tick resource usage of a single process.
// CPUPercent is normalized by the number of logical cores.
type ProcessSample struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// MetricsSnapshot is the derived view of the latest tick, published by the
// engine for display.
type MetricsSnapshot struct {
	Timestamp     time.Time    `json:"timestamp"`
	CPUPercent    float64      `json:"cpu_percent"`
	CPUCores      []float64    `json:"cpu_cores,omitempty"`
	CPUFreqMHz    float64      `json:"cpu_freq_mhz,omitempty"`
	CPUTemp       *float64     `json:"cpu_temp,omitempty"`
	MemoryPercent float64      `json:"memory_percent"`
	MemoryUsed    uint64       `json:"memory_used"`
	MemoryTotal   uint64       `json:"memory_total"`
	Disks         []DiskUsage  `json:"disks"`
	Network       []Throughput `json:"network"`
	GPUs          []GPUStat    `json:"gpus,omitempty"`
	ProcessCount  int          `json:"process_count"`
}
