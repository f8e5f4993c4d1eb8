package sysinfo

import (
	"context"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Info describes the machine a bench run executed on. Timing results are
// only comparable across runs with this context attached.
type Info struct {
	Hostname    string `json:"hostname"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	CPUModel    string `json:"cpu_model"`
	CPUCount    int    `json:"cpu_count"`
	MemoryTotal uint64 `json:"memory_total"`
}

// Collect gathers host information. Individual probe failures degrade to
// empty fields rather than failing the run; provenance is best-effort.
func Collect(ctx context.Context, log logrus.FieldLogger) *Info {
	info := &Info{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = h.Platform
	} else {
		log.WithError(err).Debug("Reading host info failed")
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	} else if err != nil {
		log.WithError(err).Debug("Reading cpu info failed")
	}

	if count, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCount = count
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
	} else {
		log.WithError(err).Debug("Reading memory info failed")
	}

	return info
}
