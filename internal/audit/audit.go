// Package audit appends one comma-separated line per alert to a plain text
// trail that is never truncated.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/Guliveer/watchpost/internal/models"
)

// Header is written once, when the trail file is empty.
var Header = []string{"Timestamp", "Resource", "Event", "Severity", "Status", "Action", "User"}

// Record is one line of the audit trail.
type Record struct {
	Resource string
	Entry    models.LogEntry
}

// Trail appends records to a file. It is safe for concurrent use.
type Trail struct {
	path string
	mu   sync.Mutex
}

// Open ensures the trail file exists and carries the header row.
func Open(path string) (*Trail, error) {
	t := &Trail{path: path}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat audit file: %w", err)
	}
	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(Header); err != nil {
			return nil, fmt.Errorf("writing audit header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("writing audit header: %w", err)
		}
	}
	return t, nil
}

// Append writes the records in order. Fields containing commas or quotes are
// quoted so every line keeps seven columns.
func (t *Trail) Append(records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("opening audit file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, r := range records {
		e := r.Entry
		row := []string{
			e.Timestamp,
			r.Resource,
			e.Event,
			string(e.Severity),
			string(e.Status),
			e.Action,
			e.User,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing audit record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing audit file: %w", err)
	}
	return nil
}
