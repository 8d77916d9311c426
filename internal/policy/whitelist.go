package policy

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultWhitelist is written on first run when no whitelist file exists.
var DefaultWhitelist = []string{
	"chrome.exe",
	"code.exe",
	"python.exe",
	"explorer.exe",
	"discord.exe",
	"whatsapp.exe",
}

// Whitelist is the set of process names exempt from per-process alerting.
// Names keep their insertion order for display; matching ignores case.
type Whitelist struct {
	path string

	mu    sync.RWMutex
	names []string
	lower map[string]int
}

// LoadWhitelist reads one process name per line from path. When the file
// does not exist, the default list is written to disk and returned.
func LoadWhitelist(path string) (*Whitelist, error) {
	w := &Whitelist{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading whitelist file: %w", err)
		}
		w.set(DefaultWhitelist)
		if err := w.rewrite(); err != nil {
			return nil, err
		}
		return w, nil
	}

	var names []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if name := strings.TrimSpace(sc.Text()); name != "" {
			names = append(names, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning whitelist file: %w", err)
	}
	w.set(names)
	return w, nil
}

// set replaces the in-memory list. Must be called with w.mu held or before
// the whitelist is shared.
func (w *Whitelist) set(names []string) {
	w.names = make([]string, 0, len(names))
	w.lower = make(map[string]int, len(names))
	for _, n := range names {
		w.names = append(w.names, n)
		w.lower[strings.ToLower(n)]++
	}
}

// Names returns a copy of the whitelisted names in insertion order.
func (w *Whitelist) Names() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// Contains reports whether name is whitelisted, ignoring case.
func (w *Whitelist) Contains(name string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lower[strings.ToLower(name)] > 0
}

// Add appends name to the whitelist file and the in-memory list.
// Duplicates are detected with an exact, case-sensitive comparison.
func (w *Whitelist) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: process name is empty", ErrValidation)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.index(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}

	if err := appendLine(w.path, name); err != nil {
		return &PersistenceError{Op: "append", Path: w.path, Err: err}
	}

	w.names = append(w.names, name)
	w.lower[strings.ToLower(name)]++
	return nil
}

// Remove deletes name from the whitelist and rewrites the whole file.
func (w *Whitelist) Remove(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	i := w.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	prev := w.names
	next := make([]string, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	w.set(next)

	if err := w.rewrite(); err != nil {
		w.set(prev)
		return err
	}
	return nil
}

// index returns the position of an exact match, or -1.
func (w *Whitelist) index(name string) int {
	for i, n := range w.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (w *Whitelist) rewrite() error {
	var b strings.Builder
	for _, n := range w.names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(w.path, []byte(b.String()), 0640); err != nil {
		return &PersistenceError{Op: "write", Path: w.path, Err: err}
	}
	return nil
}

// appendLine appends line to the file at path, first terminating a last
// line that was left without a newline.
func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0640)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			f.Close()
			return err
		}
		if last[0] != '\n' {
			line = "\n" + line
		}
	}

	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
