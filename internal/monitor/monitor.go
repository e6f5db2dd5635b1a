package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time host snapshot used by the scheduler's
// admission gate and the ops endpoint.
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float64 `json:"ram_percent"`

	// Computed flag: is the host too busy to admit new work?
	Busy bool `json:"busy"`
}

// Monitor gathers real-time CPU and RAM usage.
type Monitor struct{}

func New() *Monitor {
	return &Monitor{}
}

// Snapshot gathers current host usage.
func (m *Monitor) Snapshot(ctx context.Context) (Stats, error) {
	stats := Stats{}

	// 1. Get Memory Stats
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get mem stats: %w", err)
	}
	stats.RAMPercent = v.UsedPercent

	// 2. Get CPU Percent (over the last 500ms)
	cpuPct, err := cpu.PercentWithContext(ctx, 500*time.Millisecond, false)
	if err != nil {
		return stats, fmt.Errorf("failed to get cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUPercent = cpuPct[0]
	}

	// 3. Busy Logic
	// If CPU > 80% or RAM > 90%, the scheduler skips the cycle so
	// in-flight encodes keep their headroom.
	stats.Busy = stats.CPUPercent > 80.0 || stats.RAMPercent > 90.0

	return stats, nil
}
