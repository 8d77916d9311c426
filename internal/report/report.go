package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Guliveer/watchpost/internal/models"
	"github.com/Guliveer/watchpost/internal/policy"
)

// RenderSnapshot renders the latest metrics, coloring usage against limits.
func RenderSnapshot(s models.MetricsSnapshot, limits policy.Limits) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("System Metrics"))
	b.WriteString(" " + styleMuted.Render(s.Timestamp.Format(models.LogTimeLayout)))
	b.WriteString("\n\n")

	cpu := fmt.Sprintf("%.1f%%", s.CPUPercent)
	if s.CPUFreqMHz > 0 {
		cpu += fmt.Sprintf(" @ %.0f MHz", s.CPUFreqMHz)
	}
	if s.CPUTemp != nil {
		cpu += fmt.Sprintf(", %.0f°C", *s.CPUTemp)
	}
	row(&b, "CPU", usageStyle(s.CPUPercent, limits.CPU).Render(cpu))

	mem := fmt.Sprintf("%.1f%% (%s / %s)", s.MemoryPercent,
		FormatBytes(float64(s.MemoryUsed)), FormatBytes(float64(s.MemoryTotal)))
	row(&b, "Memory", usageStyle(s.MemoryPercent, limits.Memory).Render(mem))

	for _, d := range s.Disks {
		usage := fmt.Sprintf("%.1f%% (%s / %s) %s", d.Percent,
			FormatBytes(float64(d.Used)), FormatBytes(float64(d.Total)), d.Mount)
		row(&b, "Disk "+d.Device, usageStyle(d.Percent, limits.Disk).Render(usage))
	}

	for _, n := range s.Network {
		row(&b, n.Interface, fmt.Sprintf("↑ %s  ↓ %s", FormatRate(n.SentPerSec), FormatRate(n.RecvPerSec)))
	}

	for _, g := range s.GPUs {
		gpu := fmt.Sprintf("%s %.0f%%, mem %.0f%%, %.0f°C", g.Name, g.LoadPercent, g.MemoryPercent(), g.Temperature)
		row(&b, fmt.Sprintf("GPU %d", g.Index), gpu)
	}

	row(&b, "Processes", fmt.Sprintf("%d", s.ProcessCount))
	return b.String()
}

const labelWidth = 12

func row(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(pad(label, labelWidth)) + " " + value + "\n")
}

// RenderAlerts renders alerts newest first. High alerts are red, the rest orange.
func RenderAlerts(alerts []models.Alert) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("Alerts (%d)", len(alerts))))
	b.WriteString("\n")
	if len(alerts) == 0 {
		b.WriteString(styleMuted.Render("No alerts recorded") + "\n")
		return b.String()
	}

	for _, a := range alerts {
		color := colorMedium
		if a.Priority == models.PriorityHigh {
			color = colorHigh
		}
		head := lipgloss.NewStyle().Bold(true).Foreground(color).
			Render(fmt.Sprintf("[%s] %s", a.Priority, a.Message))
		b.WriteString("\n" + styleMuted.Render(a.Time) + " " + head + "\n")
		for _, line := range strings.Split(a.Details, "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	return b.String()
}

var logColumns = []struct {
	title string
	width int
}{
	{"Timestamp", 19},
	{"Severity", 8},
	{"Status", 8},
	{"Action", 18},
	{"Event", 0},
}

// RenderLogs renders log entries as a table, newest first.
func RenderLogs(logs []models.LogEntry) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("Logs (%d)", len(logs))))
	b.WriteString("\n")
	if len(logs) == 0 {
		b.WriteString(styleMuted.Render("No logs recorded") + "\n")
		return b.String()
	}

	head := make([]string, len(logColumns))
	for i, c := range logColumns {
		head[i] = styleHead.Render(pad(c.title, c.width))
	}
	b.WriteString(strings.Join(head, " ") + "\n")

	for _, l := range logs {
		sev := lipgloss.NewStyle().Foreground(severityColor(l.Severity))
		cells := []string{
			pad(l.Timestamp, logColumns[0].width),
			sev.Render(pad(string(l.Severity), logColumns[1].width)),
			pad(string(l.Status), logColumns[2].width),
			pad(l.Action, logColumns[3].width),
			l.Event,
		}
		b.WriteString(strings.Join(cells, " ") + "\n")
	}
	return b.String()
}

func severityColor(s models.Severity) lipgloss.TerminalColor {
	switch s {
	case models.SeverityHigh:
		return colorHigh
	case models.SeverityMedium:
		return colorMedium
	default:
		return colorMuted
	}
}

func pad(s string, width int) string {
	if width == 0 {
		return s
	}
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// RenderWhitelist renders the whitelisted process names.
func RenderWhitelist(names []string) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("Whitelisted processes (%d)", len(names))))
	b.WriteString("\n")
	for _, n := range names {
		b.WriteString("  " + n + "\n")
	}
	return b.String()
}

// RenderLimits renders the active thresholds.
func RenderLimits(l policy.Limits) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render("Resource limits") + "\n")
	row(&b, "CPU", fmt.Sprintf("%g%%", l.CPU))
	row(&b, "Memory", fmt.Sprintf("%g%%", l.Memory))
	row(&b, "Disk", fmt.Sprintf("%g%%", l.Disk))
	return b.String()
}
