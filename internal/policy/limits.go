package policy

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Resource names used in the limits file.
const (
	ResourceCPU    = "cpu"
	ResourceMemory = "memory"
	ResourceDisk   = "disk"
)

// Default thresholds in percent.
const (
	DefaultCPULimit    = 50.0
	DefaultMemoryLimit = 70.0
	DefaultDiskLimit   = 90.0
)

// Limits holds usage thresholds in percent.
type Limits struct {
	CPU    float64
	Memory float64
	Disk   float64
}

// DefaultLimits returns the thresholds used when no limits file exists.
func DefaultLimits() Limits {
	return Limits{
		CPU:    DefaultCPULimit,
		Memory: DefaultMemoryLimit,
		Disk:   DefaultDiskLimit,
	}
}

// LimitStore is the file-backed, concurrency-safe holder of Limits.
type LimitStore struct {
	path string

	mu     sync.RWMutex
	limits Limits
}

// LoadLimits reads `resource,limit` lines from path.
// A missing file yields the defaults and is not created; limits are only
// written by Update. Unparseable or out-of-range lines are ignored.
func LoadLimits(path string) (*LimitStore, error) {
	s := &LimitStore{path: path, limits: DefaultLimits()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading limits file: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		resource, value, ok := parseLimitLine(sc.Text())
		if !ok {
			continue
		}
		switch resource {
		case ResourceCPU:
			s.limits.CPU = value
		case ResourceMemory:
			s.limits.Memory = value
		case ResourceDisk:
			s.limits.Disk = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning limits file: %w", err)
	}
	return s, nil
}

func parseLimitLine(line string) (string, float64, bool) {
	resource, raw, found := strings.Cut(strings.TrimSpace(line), ",")
	if !found {
		return "", 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !inRange(value) {
		return "", 0, false
	}
	return strings.ToLower(strings.TrimSpace(resource)), value, true
}

// Limits returns the current thresholds.
func (s *LimitStore) Limits() Limits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

// Update validates and stores new CPU and memory limits. The file is
// rewritten with exactly the two lines; the in-memory disk limit is kept.
func (s *LimitStore) Update(cpu, memory float64) error {
	if !inRange(cpu) || !inRange(memory) {
		return fmt.Errorf("%w: limits must be between 0 and 100 (cpu=%v, memory=%v)",
			ErrValidation, cpu, memory)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content := fmt.Sprintf("%s,%s\n%s,%s\n",
		ResourceCPU, formatLimit(cpu),
		ResourceMemory, formatLimit(memory))
	if err := os.WriteFile(s.path, []byte(content), 0640); err != nil {
		return &PersistenceError{Op: "write", Path: s.path, Err: err}
	}

	s.limits.CPU = cpu
	s.limits.Memory = memory
	return nil
}

func inRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 100
}

// formatLimit renders whole numbers with one decimal ("80.0") and keeps
// the shortest exact form otherwise ("55.5").
func formatLimit(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
