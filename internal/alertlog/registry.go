// Package alertlog keeps the bounded, newest-first alert and log history and
// persists it as a single JSON document. The document survives restarts;
// a missing or corrupted document is treated as an empty history.
package alertlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Guliveer/watchpost/internal/models"
)

// DefaultCapacity is the maximum number of alerts and of logs retained.
const DefaultCapacity = 100

// document is the persisted layout of alerts_logs.json.
type document struct {
	Alerts []models.Alert    `json:"alerts"`
	Logs   []models.LogEntry `json:"logs"`
}

// PersistenceError reports a failed read or write of the backing document.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("alertlog: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Registry holds alerts and logs in memory, newest first, and writes them to
// a JSON file on Persist. The in-memory state is authoritative: a failed
// write leaves it untouched so the next Persist includes everything.
type Registry struct {
	path     string
	capacity int
	logger   *zap.Logger

	mu     sync.RWMutex
	alerts []models.Alert
	logs   []models.LogEntry
}

// New creates an empty registry backed by path.
func New(path string, capacity int, logger *zap.Logger) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		path:     path,
		capacity: capacity,
		logger:   logger,
		alerts:   make([]models.Alert, 0, capacity),
		logs:     make([]models.LogEntry, 0, capacity),
	}
}

// Load replaces the in-memory history with the persisted document.
// A missing or malformed file yields an empty history; entries beyond the
// capacity are dropped from the tail.
func (r *Registry) Load() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = r.alerts[:0]
	r.logs = r.logs[:0]

	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("Failed to read alert/log state, starting empty",
				zap.String("file", r.path),
				zap.Error(err))
		}
		return
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		r.logger.Warn("Alert/log state is malformed, starting empty",
			zap.String("file", r.path),
			zap.Error(err))
		return
	}

	r.alerts = append(r.alerts, truncate(doc.Alerts, r.capacity)...)
	r.logs = append(r.logs, truncate(doc.Logs, r.capacity)...)

	r.logger.Info("Loaded alert/log state",
		zap.Int("alerts", len(r.alerts)),
		zap.Int("logs", len(r.logs)))
}

// Insert adds an alert and its log entry at the head of their sequences,
// dropping the oldest entries beyond capacity. Both are added under one lock.
func (r *Registry) Insert(alert models.Alert, entry models.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = prepend(r.alerts, alert, r.capacity)
	r.logs = prepend(r.logs, entry, r.capacity)
}

// Alerts returns a copy of the alerts, newest first.
func (r *Registry) Alerts() []models.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Alert, len(r.alerts))
	copy(out, r.alerts)
	return out
}

// Logs returns a copy of the log entries, newest first.
func (r *Registry) Logs() []models.LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LogEntry, len(r.logs))
	copy(out, r.logs)
	return out
}

// Len returns the number of alerts and logs currently held.
func (r *Registry) Len() (alerts, logs int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alerts), len(r.logs)
}

// Persist overwrites the backing file with the current history. The write
// goes to a temp file in the same directory which is then renamed over the
// target, so readers never observe a partial document.
func (r *Registry) Persist() error {
	r.mu.RLock()
	doc := document{Alerts: r.alerts, Logs: r.logs}
	data, err := json.Marshal(doc)
	r.mu.RUnlock()
	if err != nil {
		return &PersistenceError{Op: "marshal", Path: r.path, Err: err}
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(r.path)+"-*")
	if err != nil {
		return &PersistenceError{Op: "create temp", Path: r.path, Err: err}
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return &PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "close", Path: r.path, Err: err}
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return &PersistenceError{Op: "rename", Path: r.path, Err: err}
	}

	success = true
	return nil
}

// prepend inserts v at index 0 and trims s to at most max elements.
func prepend[T any](s []T, v T, max int) []T {
	if len(s) < max {
		var zero T
		s = append(s, zero)
	}
	copy(s[1:], s)
	s[0] = v
	return s
}

func truncate[T any](s []T, max int) []T {
	if len(s) > max {
		return s[:max]
	}
	return s
}
