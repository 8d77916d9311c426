package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Guliveer/watchpost/internal/alertlog"
	"github.com/Guliveer/watchpost/internal/audit"
	"github.com/Guliveer/watchpost/internal/models"
	"github.com/Guliveer/watchpost/internal/policy"
)

// fakeSource returns the sample produced by next on every call.
type fakeSource struct {
	mu    sync.Mutex
	calls int
	next  func(call int) models.Sample
	err   error
}

func (f *fakeSource) Sample(context.Context) (models.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.next(f.calls), f.err
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func constant(s models.Sample) func(int) models.Sample {
	return func(int) models.Sample { return s }
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (n *recordingNotifier) Notify(a models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

type fixture struct {
	dir       string
	source    *fakeSource
	limits    *policy.LimitStore
	whitelist *policy.Whitelist
	registry  *alertlog.Registry
	notifier  *recordingNotifier
	engine    *Engine
}

var fixedNow = time.Date(2026, 10, 14, 13, 45, 30, 0, time.Local)

// newFixture builds an engine with limits {cpu:50, memory:70} and the given
// whitelist, all backed by files in a temp dir.
func newFixture(t *testing.T, whitelist ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	wlPath := filepath.Join(dir, "process_whitelist.txt")
	content := ""
	for _, n := range whitelist {
		content += n + "\n"
	}
	if err := os.WriteFile(wlPath, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}

	limits, err := policy.LoadLimits(filepath.Join(dir, "resource_limits.txt"))
	if err != nil {
		t.Fatal(err)
	}
	wl, err := policy.LoadWhitelist(wlPath)
	if err != nil {
		t.Fatal(err)
	}
	trail, err := audit.Open(filepath.Join(dir, "system_logs.txt"))
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		dir:       dir,
		source:    &fakeSource{next: constant(models.Sample{})},
		limits:    limits,
		whitelist: wl,
		registry:  alertlog.New(filepath.Join(dir, "alerts_logs.json"), alertlog.DefaultCapacity, nil),
		notifier:  &recordingNotifier{},
	}
	f.engine, err = New(Options{
		Source:    f.source,
		Limits:    f.limits,
		Whitelist: f.whitelist,
		Registry:  f.registry,
		Audit:     trail,
		Notifier:  f.notifier,
		Interval:  time.Second,
		Now:       func() time.Time { return fixedNow },
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func processSample(name string, cpu, mem float64) models.Sample {
	return models.Sample{
		CPUPercent:    10,
		MemoryPercent: 20,
		Processes: []models.ProcessSample{
			{PID: 4242, Name: name, CPUPercent: cpu, MemoryPercent: mem},
		},
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New with empty options should fail")
	}
}

func TestTick_NonWhitelistedProcessRaisesOneAlert(t *testing.T) {
	f := newFixture(t, "chrome.exe")
	f.source.next = constant(processSample("notepad.exe", 60, 1))

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	alerts, logs := f.engine.Alerts(), f.engine.Logs()
	if len(alerts) != 1 || len(logs) != 1 {
		t.Fatalf("got %d alerts / %d logs, want 1/1", len(alerts), len(logs))
	}

	a := alerts[0]
	if a.Priority != models.PriorityHigh || a.ProcessName != "notepad.exe" {
		t.Errorf("alert = %+v", a)
	}
	if a.Message != "Process notepad.exe exceeded resource limits" {
		t.Errorf("Message = %q", a.Message)
	}
	if a.Time != "13:45:30" {
		t.Errorf("Time = %q", a.Time)
	}
	wantDetails := "Process Name: notepad.exe\nPID: 4242\nCPU Usage: 60.0% (Limit: 50%)\nMemory Usage: 1.0% (Limit: 70%)"
	if a.Details != wantDetails {
		t.Errorf("Details = %q, want %q", a.Details, wantDetails)
	}

	l := logs[0]
	if l.Status != models.StatusAlert || l.Severity != models.SeverityHigh {
		t.Errorf("log = %+v", l)
	}
	if l.Timestamp != "2026-10-14 13:45:30" || l.SourceIP != "localhost" || l.User != "system" {
		t.Errorf("log = %+v", l)
	}
	if l.Event != "Resource limit exceeded by notepad.exe" || l.Action != "Process Monitoring" || l.Process != "notepad.exe" {
		t.Errorf("log = %+v", l)
	}

	if len(f.notifier.alerts) != 1 {
		t.Errorf("notifier received %d alerts, want 1", len(f.notifier.alerts))
	}
}

func TestTick_WhitelistedProcessNeverAlerts(t *testing.T) {
	tests := []struct {
		whitelist string
		process   string
	}{
		{"chrome.exe", "chrome.exe"},
		{"Chrome.EXE", "chrome.exe"},
		{"chrome.exe", "CHROME.EXE"},
	}
	for _, tt := range tests {
		t.Run(tt.whitelist+"/"+tt.process, func(t *testing.T) {
			f := newFixture(t, tt.whitelist)
			f.source.next = constant(processSample(tt.process, 90, 95))

			for i := 0; i < 3; i++ {
				if err := f.engine.Tick(context.Background()); err != nil {
					t.Fatal(err)
				}
			}
			if n := len(f.engine.Alerts()); n != 0 {
				t.Errorf("got %d alerts for whitelisted process", n)
			}
		})
	}
}

func TestTick_ProcessNameIsLowercased(t *testing.T) {
	f := newFixture(t)
	f.source.next = constant(processSample("Notepad.EXE", 1, 80))

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	alerts := f.engine.Alerts()
	if len(alerts) != 1 || alerts[0].ProcessName != "notepad.exe" {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestTick_SystemRules(t *testing.T) {
	f := newFixture(t)
	f.source.next = constant(models.Sample{
		CPUPercent:    75.4,
		MemoryPercent: 70,
		Disks: []models.DiskUsage{
			{Device: "/dev/sda1", Mount: "/", Percent: 93.4},
			{Device: "/dev/sdb1", Mount: "/data", Percent: 90},
		},
	})

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}

	alerts := f.engine.Alerts()
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want CPU and one disk: %+v", len(alerts), alerts)
	}
	// Inserted in rule order, so the last rule evaluated is newest.
	if alerts[0].Message != "Disk (/dev/sda1) usage exceeded: 93.4%" {
		t.Errorf("alerts[0].Message = %q", alerts[0].Message)
	}
	if alerts[0].Details != "Disk (/dev/sda1) usage is above the threshold of 90%." {
		t.Errorf("alerts[0].Details = %q", alerts[0].Details)
	}
	if alerts[1].Message != "CPU usage exceeded: 75.4%" {
		t.Errorf("alerts[1].Message = %q", alerts[1].Message)
	}
	if alerts[1].ProcessName != "" {
		t.Errorf("system alert has process name %q", alerts[1].ProcessName)
	}

	logs := f.engine.Logs()
	if logs[1].Action != "Monitoring" || logs[1].Event != alerts[1].Message || logs[1].Process != "" {
		t.Errorf("system log = %+v", logs[1])
	}

	data, err := os.ReadFile(filepath.Join(f.dir, "system_logs.txt"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("audit lines = %q", lines)
	}
	if !strings.HasPrefix(lines[1], "2026-10-14 13:45:30,CPU,CPU usage exceeded") ||
		!strings.HasSuffix(lines[1], ",High,Alert,Monitoring,system") {
		t.Errorf("audit line = %q", lines[1])
	}
	if !strings.Contains(lines[2], ",Disk (/dev/sda1),") {
		t.Errorf("audit line = %q", lines[2])
	}
}

func TestTick_DiskLimitFromFile(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.dir, "resource_limits.txt")
	if err := os.WriteFile(path, []byte("cpu,50\nmemory,70\ndisk,95\n"), 0640); err != nil {
		t.Fatal(err)
	}
	limits, err := policy.LoadLimits(path)
	if err != nil {
		t.Fatal(err)
	}
	f.engine.limits = limits
	f.source.next = constant(models.Sample{Disks: []models.DiskUsage{{Device: "C:", Percent: 93}}})

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.engine.Alerts()); n != 0 {
		t.Errorf("93%% disk with 95%% limit raised %d alerts", n)
	}
}

func TestUpdateLimits_AppliesToNextTick(t *testing.T) {
	f := newFixture(t)
	f.source.next = constant(processSample("worker", 75, 80))

	if err := f.engine.UpdateLimits(150, 50); !errors.Is(err, policy.ErrValidation) {
		t.Fatalf("UpdateLimits(150, 50) error = %v, want ErrValidation", err)
	}
	if err := f.engine.UpdateLimits(80, 90); err != nil {
		t.Fatalf("UpdateLimits(80, 90): %v", err)
	}
	if got := f.engine.Limits(); got.CPU != 80 || got.Memory != 90 {
		t.Errorf("Limits() = %+v", got)
	}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.engine.Alerts()); n != 0 {
		t.Errorf("process under the new limits raised %d alerts", n)
	}

	f.source.next = constant(processSample("worker", 85, 10))
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	alerts := f.engine.Alerts()
	if len(alerts) != 1 || !strings.Contains(alerts[0].Details, "(Limit: 80%)") {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestWhitelistMutation_AppliesToNextTick(t *testing.T) {
	f := newFixture(t)
	f.source.next = constant(processSample("backup.exe", 99, 1))

	if err := f.engine.AddWhitelistedProcess("backup.exe"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.AddWhitelistedProcess("backup.exe"); !errors.Is(err, policy.ErrDuplicate) {
		t.Errorf("duplicate add error = %v", err)
	}
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.engine.Alerts()); n != 0 {
		t.Fatalf("whitelisted process raised %d alerts", n)
	}

	if err := f.engine.RemoveWhitelistedProcess("backup.exe"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.RemoveWhitelistedProcess("backup.exe"); !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("second remove error = %v", err)
	}
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(f.engine.Alerts()); n != 1 {
		t.Errorf("got %d alerts after removal, want 1", n)
	}
	if names := f.engine.Whitelist(); len(names) != 0 {
		t.Errorf("Whitelist() = %v", names)
	}
}

func TestTick_RetentionStabilizesAt100(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.UpdateLimits(0, 100); err != nil {
		t.Fatal(err)
	}
	f.source.next = func(call int) models.Sample {
		return models.Sample{CPUPercent: float64(call)}
	}

	for i := 0; i < 105; i++ {
		if err := f.engine.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		a, l := f.registry.Len()
		if a != l || a != min(i+1, 100) {
			t.Fatalf("tick %d: alerts=%d logs=%d", i+1, a, l)
		}
	}

	alerts := f.engine.Alerts()
	if alerts[0].Message != "CPU usage exceeded: 105.0%" {
		t.Errorf("newest = %q", alerts[0].Message)
	}
	if alerts[99].Message != "CPU usage exceeded: 6.0%" {
		t.Errorf("oldest kept = %q", alerts[99].Message)
	}
	for i, a := range alerts {
		want := fmt.Sprintf("CPU usage exceeded: %d.0%%", 105-i)
		if a.Message != want {
			t.Fatalf("alerts[%d] = %q, want %q", i, a.Message, want)
		}
	}

	reloaded := alertlog.New(filepath.Join(f.dir, "alerts_logs.json"), alertlog.DefaultCapacity, nil)
	reloaded.Load()
	if got := reloaded.Alerts(); len(got) != 100 || got[0] != alerts[0] || got[99] != alerts[99] {
		t.Errorf("persisted state does not match memory")
	}
}

func TestTick_PersistFailureKeepsRecords(t *testing.T) {
	f := newFixture(t)
	f.engine.registry = alertlog.New(filepath.Join(f.dir, "gone", "alerts_logs.json"), alertlog.DefaultCapacity, nil)
	f.source.next = constant(processSample("miner", 99, 1))

	err := f.engine.Tick(context.Background())
	var perr *alertlog.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Tick error = %v, want PersistenceError", err)
	}
	if n := len(f.engine.Alerts()); n != 1 {
		t.Errorf("in-memory alerts = %d, want 1", n)
	}
}

func TestTick_SamplingErrorIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("partial sample")
	f.source.next = constant(processSample("miner", 99, 1))

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick error = %v, want nil", err)
	}
	if n := len(f.engine.Alerts()); n != 1 {
		t.Errorf("alerts = %d, want evaluation of the partial sample", n)
	}
}

func TestTick_SnapshotThroughput(t *testing.T) {
	f := newFixture(t)
	f.source.next = func(call int) models.Sample {
		return models.Sample{
			CPUPercent:    12,
			MemoryPercent: 34,
			Network: map[string]models.NetCounters{
				"eth0": {BytesSent: uint64(1000 * call), BytesRecv: uint64(4000 * call)},
			},
			Processes: []models.ProcessSample{{Name: "a"}, {Name: "b"}},
		}
	}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := f.engine.Snapshot()
	if len(snap.Network) != 0 {
		t.Errorf("first tick throughput = %+v, want none", snap.Network)
	}
	if snap.CPUPercent != 12 || snap.MemoryPercent != 34 || snap.ProcessCount != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want clock fallback", snap.Timestamp)
	}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap = f.engine.Snapshot()
	if len(snap.Network) != 1 {
		t.Fatalf("Network = %+v", snap.Network)
	}
	if got := snap.Network[0]; got.Interface != "eth0" || got.SentPerSec != 1000 || got.RecvPerSec != 4000 {
		t.Errorf("throughput = %+v", got)
	}
}

func TestEngine_StartStop(t *testing.T) {
	f := newFixture(t)
	engine, err := New(Options{
		Source:    f.source,
		Limits:    f.limits,
		Whitelist: f.whitelist,
		Registry:  f.registry,
		Interval:  5 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.engine = engine

	if f.engine.Running() {
		t.Fatal("engine should start stopped")
	}
	f.engine.Start(context.Background())
	f.engine.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.source.Calls() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if !f.engine.Running() {
		t.Error("Running() = false while started")
	}

	f.engine.Stop()
	after := f.source.Calls()
	time.Sleep(25 * time.Millisecond)
	if got := f.source.Calls(); got != after {
		t.Errorf("ticks after Stop: %d -> %d", after, got)
	}
	if f.engine.Running() {
		t.Error("Running() = true after Stop")
	}
	f.engine.Stop()
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	f := newFixture(t)
	engine, err := New(Options{
		Source:    f.source,
		Limits:    f.limits,
		Whitelist: f.whitelist,
		Registry:  f.registry,
		Interval:  time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.engine = engine
	f.source.next = constant(processSample("miner", 99, 1))

	f.engine.Start(context.Background())
	var reads atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = f.engine.Snapshot()
				if a, l := len(f.engine.Alerts()), len(f.engine.Logs()); a > 100 || l > 100 {
					t.Errorf("registry exceeded capacity: %d/%d", a, l)
				}
				reads.Add(1)
			}
		}()
	}
	wg.Wait()
	f.engine.Stop()

	if reads.Load() != 200 {
		t.Errorf("reads = %d", reads.Load())
	}
}

func netSample(sent uint64) models.Sample {
	return models.Sample{Network: map[string]models.NetCounters{"eth0": {BytesSent: sent}}}
}

func TestTick_MissingNetworkDropsBaseline(t *testing.T) {
	f := newFixture(t)
	samples := []models.Sample{netSample(1000), {}, netSample(5000), netSample(6000)}
	f.source.next = func(call int) models.Sample { return samples[call-1] }

	var rates [][]models.Throughput
	for range samples {
		if err := f.engine.Tick(context.Background()); err != nil {
			t.Fatal(err)
		}
		rates = append(rates, f.engine.Snapshot().Network)
	}

	if len(rates[2]) != 0 {
		t.Errorf("rate after a missing sample = %+v, want none", rates[2])
	}
	if len(rates[3]) != 1 || rates[3][0].SentPerSec != 1000 {
		t.Errorf("rate once the baseline is back = %+v, want 1000/s", rates[3])
	}
}

func TestRunOnce_PrimesBeforeEvaluating(t *testing.T) {
	f := newFixture(t)
	engine, err := New(Options{
		Source:    f.source,
		Limits:    f.limits,
		Whitelist: f.whitelist,
		Registry:  f.registry,
		Interval:  10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.source.next = func(call int) models.Sample {
		s := processSample("miner", 99, 1)
		s.Network = netSample(uint64(call) * 100).Network
		return s
	}

	start := time.Now()
	if err := engine.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("RunOnce returned after %v, want at least one interval", elapsed)
	}
	if calls := f.source.Calls(); calls != 2 {
		t.Errorf("source sampled %d times, want prime + tick", calls)
	}
	if n := len(engine.Alerts()); n != 1 {
		t.Errorf("got %d alerts, want only the evaluated tick", n)
	}
	if net := engine.Snapshot().Network; len(net) != 1 || net[0].SentPerSec < 9999.9 || net[0].SentPerSec > 10000.1 {
		t.Errorf("throughput = %+v, want 100 bytes over 10ms", net)
	}
}

func TestRunOnce_HonorsCancellation(t *testing.T) {
	f := newFixture(t)
	engine, err := New(Options{
		Source:    f.source,
		Limits:    f.limits,
		Whitelist: f.whitelist,
		Registry:  f.registry,
		Interval:  time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := engine.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce error = %v, want context.Canceled", err)
	}
	if calls := f.source.Calls(); calls != 1 {
		t.Errorf("source sampled %d times, want only the prime", calls)
	}
}
