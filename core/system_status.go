package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"
)

// Pinger is the connectivity probe satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemStatus is the aggregated status payload for the admin dashboard.
type SystemStatus struct {
	Auth     AuthMetrics `json:"auth"`
	Database string      `json:"database"`
	Redis    string      `json:"redis"`
	Memory   struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus gathers uptime, memory, backing-store reachability and
// today's auth counters. Individual probes are best-effort; a failing probe
// marks the component down instead of failing the whole status call.
func CollectSystemStatus(ctx context.Context, db Pinger, redis CacheClient, metrics *MetricsService, startedAt time.Time) SystemStatus {
	var st SystemStatus

	st.Database = "down"
	if db != nil && db.Ping(ctx) == nil {
		st.Database = "ok"
	}

	st.Redis = "down"
	if redis != nil && redis.Ping(ctx).Err() == nil {
		st.Redis = "ok"
	}

	if metrics != nil {
		if m, err := metrics.Today(ctx); err == nil {
			st.Auth = m
		}
	}

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
