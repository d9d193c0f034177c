package services

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"
)

// PerformanceMonitor periodically logs process and host resource usage.
type PerformanceMonitor struct {
	interval time.Duration
	log      *logrus.Entry
}

// NewPerformanceMonitor creates a new performance monitor.
func NewPerformanceMonitor(interval time.Duration) *PerformanceMonitor {
	return &PerformanceMonitor{
		interval: interval,
		log:      logrus.WithField("component", "performance_monitor"),
	}
}

// Run logs a resource snapshot every interval until the context is cancelled.
func (m *PerformanceMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logSnapshot()
		}
	}
}

func (m *PerformanceMonitor) logSnapshot() {
	fields := logrus.Fields{
		"goroutines": runtime.NumGoroutine(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	fields["heap_alloc_mb"] = memStats.HeapAlloc / 1024 / 1024

	if vm, err := mem.VirtualMemory(); err == nil {
		fields["host_mem_used_percent"] = vm.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		fields["host_cpu_percent"] = percents[0]
	}

	m.log.WithFields(fields).Info("Resource usage")
}
