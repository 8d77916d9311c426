package platform

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Guliveer/watchpost/internal/models"
)

// nvidiaQuery lists the columns requested from nvidia-smi, in order.
const nvidiaQuery = "index,name,utilization.gpu,memory.used,memory.total,temperature.gpu"

// runFunc executes a command and returns its stdout. Replaced in tests.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NvidiaPlatform reads GPU statistics through nvidia-smi.
type NvidiaPlatform struct {
	run runFunc
}

// Name returns the platform identifier.
func (p *NvidiaPlatform) Name() string { return "nvidia" }

// GPUStats queries nvidia-smi. A missing binary or driver is reported as
// "no GPUs" rather than an error.
func (p *NvidiaPlatform) GPUStats(ctx context.Context) ([]models.GPUStat, error) {
	out, err := p.run(ctx, "nvidia-smi",
		"--query-gpu="+nvidiaQuery, "--format=csv,noheader,nounits")
	if err != nil {
		return nil, nil
	}
	return parseNvidiaCSV(out)
}

// parseNvidiaCSV parses nvidia-smi csv,noheader,nounits output.
// Columns reported as "[N/A]" or "[Not Supported]" are read as zero.
func parseNvidiaCSV(out []byte) ([]models.GPUStat, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = 6

	var stats []models.GPUStat
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing nvidia-smi output: %w", err)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("parsing gpu index %q: %w", rec[0], err)
		}
		stats = append(stats, models.GPUStat{
			Index:         idx,
			Name:          strings.TrimSpace(rec[1]),
			LoadPercent:   parseMetric(rec[2]),
			MemoryUsedMB:  parseMetric(rec[3]),
			MemoryTotalMB: parseMetric(rec[4]),
			Temperature:   parseMetric(rec[5]),
		})
	}
	return stats, nil
}

func parseMetric(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
