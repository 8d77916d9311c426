package monitor

import (
	"sort"
	"time"

	"github.com/Guliveer/watchpost/internal/models"
)

// Throughput computes per-interface rates between two counter snapshots.
// Interfaces missing from either snapshot are omitted; a counter that went
// backwards (interface reset) yields a zero rate.
func Throughput(prev, cur map[string]models.NetCounters, interval time.Duration) []models.Throughput {
	secs := interval.Seconds()
	if secs <= 0 {
		secs = 1
	}

	out := make([]models.Throughput, 0, len(cur))
	for name, c := range cur {
		p, ok := prev[name]
		if !ok {
			continue
		}
		out = append(out, models.Throughput{
			Interface:  name,
			SentPerSec: float64(delta(p.BytesSent, c.BytesSent)) / secs,
			RecvPerSec: float64(delta(p.BytesRecv, c.BytesRecv)) / secs,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Interface < out[j].Interface })
	return out
}

func delta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}
