// Package sysinfo reports host resource usage for health checks.
package sysinfo

import (
	"context"
	"errors"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time snapshot of the host
type Stats struct {
	MemoryUsagePercent float64 `json:"memory_usage_percent"`
	MemoryUsedBytes    uint64  `json:"memory_used_bytes"`
	MemoryTotalBytes   uint64  `json:"memory_total_bytes"`
	LoadAvg1m          float64 `json:"load_1m"`
	LoadAvg5m          float64 `json:"load_5m"`
	LoadAvg15m         float64 `json:"load_15m"`
	TempDirFreeBytes   uint64  `json:"temp_dir_free_bytes"`
}

// Collector gathers Stats, reporting free space of the clone directory
type Collector struct {
	tempDir string
}

// NewCollector creates a collector. tempDir is where working trees are cloned.
func NewCollector(tempDir string) *Collector {
	return &Collector{tempDir: tempDir}
}

// Collect returns whatever the platform supports. It fails only when nothing could be read.
func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	var errs []error

	memStats, err := mem.VirtualMemoryWithContext(ctx)
	if err == nil {
		s.MemoryUsagePercent = memStats.UsedPercent
		s.MemoryUsedBytes = memStats.Used
		s.MemoryTotalBytes = memStats.Total
	} else {
		errs = append(errs, err)
	}

	loadStats, err := load.AvgWithContext(ctx)
	if err == nil {
		s.LoadAvg1m = loadStats.Load1
		s.LoadAvg5m = loadStats.Load5
		s.LoadAvg15m = loadStats.Load15
	} else {
		errs = append(errs, err)
	}

	if c.tempDir != "" {
		usage, err := disk.UsageWithContext(ctx, c.tempDir)
		if err == nil {
			s.TempDirFreeBytes = usage.Free
		} else {
			errs = append(errs, err)
		}
	}

	attempted := 2
	if c.tempDir != "" {
		attempted++
	}
	if len(errs) == attempted {
		return nil, errors.Join(errs...)
	}
	return s, nil
}
