// Package health reports process and host status for the health endpoint.
package health

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report is the health endpoint payload.
type Report struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	HostUptime    uint64  `json:"host_uptime_seconds,omitempty"`
	CPUPercent    float64 `json:"cpu_percent,omitempty"`
	MemoryPercent float64 `json:"memory_percent,omitempty"`
}

// Checker produces health reports for a named service.
type Checker struct {
	service string
	started time.Time
}

// NewChecker creates a checker anchored at process start.
func NewChecker(service string) *Checker {
	return &Checker{service: service, started: time.Now()}
}

// Report gathers the current snapshot. Host metrics are best effort; a probe
// failure never makes the service unhealthy.
func (c *Checker) Report() Report {
	report := Report{
		Status:        "healthy",
		Service:       c.service,
		UptimeSeconds: time.Since(c.started).Seconds(),
	}
	if uptime, err := host.Uptime(); err == nil {
		report.HostUptime = uptime
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		report.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		report.MemoryPercent = vm.UsedPercent
	}
	return report
}
