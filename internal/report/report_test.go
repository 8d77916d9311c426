package report

import (
	"strings"
	"testing"
	"time"

	"github.com/Guliveer/watchpost/internal/models"
	"github.com/Guliveer/watchpost/internal/policy"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3.5 * 1024 * 1024 * 1024, "3.5 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatRate(1536); got != "1.5 KB/s" {
		t.Errorf("FormatRate = %q", got)
	}
}

func TestRenderSnapshot(t *testing.T) {
	temp := 61.0
	s := models.MetricsSnapshot{
		Timestamp:     time.Date(2026, 10, 14, 8, 0, 0, 0, time.Local),
		CPUPercent:    42.5,
		CPUTemp:       &temp,
		MemoryPercent: 71.2,
		MemoryUsed:    8 << 30,
		MemoryTotal:   16 << 30,
		Disks:         []models.DiskUsage{{Device: "C:", Mount: "C:\\", Percent: 93.1}},
		Network:       []models.Throughput{{Interface: "eth0", SentPerSec: 2048, RecvPerSec: 512}},
		GPUs:          []models.GPUStat{{Index: 0, Name: "RTX", LoadPercent: 30, MemoryUsedMB: 512, MemoryTotalMB: 1024}},
		ProcessCount:  187,
	}

	out := RenderSnapshot(s, policy.DefaultLimits())
	for _, want := range []string{
		"2026-10-14 08:00:00",
		"42.5%",
		"61°C",
		"71.2% (8.0 GB / 16.0 GB)",
		"Disk C:",
		"93.1%",
		"↑ 2.0 KB/s",
		"↓ 512 B/s",
		"RTX 30%, mem 50%",
		"187",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderAlerts(t *testing.T) {
	if out := RenderAlerts(nil); !strings.Contains(out, "No alerts recorded") {
		t.Errorf("empty output = %q", out)
	}

	out := RenderAlerts([]models.Alert{
		{Priority: models.PriorityHigh, Message: "CPU usage exceeded: 75.0%", Details: "a\nb", Time: "10:00:01"},
		{Priority: models.PriorityMedium, Message: "older", Time: "09:59:59"},
	})
	if !strings.Contains(out, "Alerts (2)") || !strings.Contains(out, "[High] CPU usage exceeded: 75.0%") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "    a\n    b\n") {
		t.Errorf("details not indented: %s", out)
	}
	if strings.Index(out, "10:00:01") > strings.Index(out, "09:59:59") {
		t.Error("alerts not rendered in the given order")
	}
}

func TestRenderLogs(t *testing.T) {
	out := RenderLogs([]models.LogEntry{{
		Timestamp: "2026-10-14 10:00:01",
		Event:     "Resource limit exceeded by notepad.exe",
		Severity:  models.SeverityHigh,
		Status:    models.StatusAlert,
		Action:    "Process Monitoring",
	}})
	for _, want := range []string{"Timestamp", "Logs (1)", "2026-10-14 10:00:01", "Process Monitoring", "Resource limit exceeded by notepad.exe"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderLimitsAndWhitelist(t *testing.T) {
	out := RenderLimits(policy.Limits{CPU: 55.5, Memory: 70, Disk: 90})
	if !strings.Contains(out, "55.5%") || !strings.Contains(out, "90%") {
		t.Errorf("limits output = %s", out)
	}
	out = RenderWhitelist([]string{"chrome.exe", "code.exe"})
	if !strings.Contains(out, "(2)") || !strings.Contains(out, "  code.exe\n") {
		t.Errorf("whitelist output = %s", out)
	}
}
