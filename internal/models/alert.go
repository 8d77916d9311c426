package models

// Priority ranks an alert.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
)

// Severity ranks a log entry.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityInfo   Severity = "Info"
)

// Status is the outcome recorded on a log entry.
type Status string

const (
	StatusAlert   Status = "Alert"
	StatusWarning Status = "Warning"
	StatusInfo    Status = "Info"
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	StatusBlocked Status = "Blocked"
	StatusPending Status = "Pending"
	StatusAllowed Status = "Allowed"
)

// Layouts used for the persisted time fields.
const (
	AlertTimeLayout = "15:04:05"
	LogTimeLayout   = "2006-01-02 15:04:05"
)

// LocalSource is the source_ip recorded on self-generated log entries.
const LocalSource = "localhost"

// Alert is a threshold violation shown to the operator.
type Alert struct {
	Priority    Priority `json:"priority"`
	Message     string   `json:"message"`
	Details     string   `json:"details"`
	Time        string   `json:"time"`
	ProcessName string   `json:"process_name,omitempty"`
}

// LogEntry is the audit record written alongside every alert.
type LogEntry struct {
	Timestamp string   `json:"timestamp"`
	SourceIP  string   `json:"source_ip"`
	Event     string   `json:"event"`
	Severity  Severity `json:"severity"`
	Status    Status   `json:"status"`
	Action    string   `json:"action"`
	User      string   `json:"user"`
	Process   string   `json:"process,omitempty"`
}
