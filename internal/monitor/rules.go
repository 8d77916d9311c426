package monitor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Guliveer/watchpost/internal/models"
	"github.com/Guliveer/watchpost/internal/policy"
)

// Log actions recorded for each kind of violation.
const (
	actionSystem  = "Monitoring"
	actionProcess = "Process Monitoring"
	systemUser    = "system"
)

// Kind distinguishes system-wide from per-process violations.
type Kind int

const (
	KindSystem Kind = iota
	KindProcess
)

// Whitelist reports whether a process name is exempt from alerting.
type Whitelist interface {
	Contains(name string) bool
}

// Violation is one threshold breach found during a tick.
type Violation struct {
	Kind Kind

	// Resource is "CPU", "Memory" or "Disk (<device>)" for system
	// violations and the lowercased process name otherwise.
	Resource string

	// Value and Threshold apply to system violations.
	Value     float64
	Threshold float64

	// Process and Limits apply to process violations.
	Process models.ProcessSample
	Limits  policy.Limits
}

// Evaluate compares a sample against the limits. System rules come first
// (CPU, memory, then each partition), followed by non-whitelisted processes
// in sample order. Every comparison is strict and stateless.
func Evaluate(s models.Sample, limits policy.Limits, wl Whitelist) []Violation {
	var out []Violation

	if s.CPUPercent > limits.CPU {
		out = append(out, systemViolation("CPU", s.CPUPercent, limits.CPU))
	}
	if s.MemoryPercent > limits.Memory {
		out = append(out, systemViolation("Memory", s.MemoryPercent, limits.Memory))
	}
	for _, d := range s.Disks {
		if d.Percent > limits.Disk {
			out = append(out, systemViolation(fmt.Sprintf("Disk (%s)", d.Device), d.Percent, limits.Disk))
		}
	}

	for _, p := range s.Processes {
		if p.CPUPercent <= limits.CPU && p.MemoryPercent <= limits.Memory {
			continue
		}
		name := strings.ToLower(p.Name)
		if wl != nil && wl.Contains(name) {
			continue
		}
		p.Name = name
		out = append(out, Violation{
			Kind:     KindProcess,
			Resource: name,
			Process:  p,
			Limits:   limits,
		})
	}

	return out
}

func systemViolation(resource string, value, threshold float64) Violation {
	return Violation{
		Kind:      KindSystem,
		Resource:  resource,
		Value:     value,
		Threshold: threshold,
	}
}

// Records builds the alert and log entry for a violation observed at now.
func (v Violation) Records(now time.Time) (models.Alert, models.LogEntry) {
	entry := models.LogEntry{
		Timestamp: now.Format(models.LogTimeLayout),
		SourceIP:  models.LocalSource,
		Severity:  models.SeverityHigh,
		Status:    models.StatusAlert,
		User:      systemUser,
	}
	alert := models.Alert{
		Priority: models.PriorityHigh,
		Time:     now.Format(models.AlertTimeLayout),
	}

	if v.Kind == KindProcess {
		p := v.Process
		alert.Message = fmt.Sprintf("Process %s exceeded resource limits", p.Name)
		alert.Details = fmt.Sprintf(
			"Process Name: %s\nPID: %d\nCPU Usage: %.1f%% (Limit: %s%%)\nMemory Usage: %.1f%% (Limit: %s%%)",
			p.Name, p.PID,
			p.CPUPercent, formatPercent(v.Limits.CPU),
			p.MemoryPercent, formatPercent(v.Limits.Memory))
		alert.ProcessName = p.Name

		entry.Event = "Resource limit exceeded by " + p.Name
		entry.Action = actionProcess
		entry.Process = p.Name
		return alert, entry
	}

	alert.Message = fmt.Sprintf("%s usage exceeded: %.1f%%", v.Resource, v.Value)
	alert.Details = fmt.Sprintf("%s usage is above the threshold of %s%%.", v.Resource, formatPercent(v.Threshold))
	entry.Event = alert.Message
	entry.Action = actionSystem
	return alert, entry
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
