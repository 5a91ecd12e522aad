// Package sysinfo describes the machine a benchmark ran on.
package sysinfo

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info is a snapshot of the host. Fields that could not be read stay empty.
type Info struct {
	Arch     string  `json:"arch"`
	OS       string  `json:"os"`
	Hostname string  `json:"hostname,omitempty"`
	Platform string  `json:"platform,omitempty"`
	CPUModel string  `json:"cpu_model,omitempty"`
	CPUCount int     `json:"cpu_count,omitempty"`
	CPUMhz   float64 `json:"cpu_mhz,omitempty"`
	RAMGiB   float64 `json:"ram_gib,omitempty"`
}

var (
	hostInfo      = host.Info
	cpuInfo       = cpu.Info
	cpuCounts     = cpu.Counts
	virtualMemory = mem.VirtualMemory
)

// Collect gathers host, CPU and memory details.
func Collect() Info {
	info := Info{Arch: runtime.GOARCH, OS: runtime.GOOS}

	if h, err := hostInfo(); err == nil && h != nil {
		info.Hostname = h.Hostname
		info.Platform = strings.TrimSpace(h.Platform + " " + h.PlatformVersion)
	}
	if cpus, err := cpuInfo(); err == nil && len(cpus) > 0 {
		info.CPUModel = strings.TrimSpace(cpus[0].ModelName)
		total := 0.0
		for _, c := range cpus {
			total += c.Mhz
		}
		info.CPUMhz = total / float64(len(cpus))
	}
	if n, err := cpuCounts(true); err == nil {
		info.CPUCount = n
	}
	if vm, err := virtualMemory(); err == nil && vm != nil {
		info.RAMGiB = float64(vm.Total) / 1024 / 1024 / 1024
	}
	return info
}

// String renders a one-line summary for report headers.
func (i Info) String() string {
	parts := []string{fmt.Sprintf("%s/%s", i.OS, i.Arch)}
	if i.Platform != "" {
		parts = append(parts, i.Platform)
	}
	if i.CPUModel != "" {
		parts = append(parts, i.CPUModel)
	}
	if i.CPUCount > 0 {
		parts = append(parts, fmt.Sprintf("%d threads", i.CPUCount))
	}
	if i.RAMGiB > 0 {
		parts = append(parts, fmt.Sprintf("%.1f GiB RAM", i.RAMGiB))
	}
	return strings.Join(parts, " | ")
}
