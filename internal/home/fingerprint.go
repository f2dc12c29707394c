package home

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/joelklabo/planloop/internal/planstate"
)

// Fingerprint builds an Environment describing the current machine, per
// SPEC_FULL.md §C. session.Create takes its Environment from the caller
// and does not call this. OS is runtime.GOOS; arch/hostname come from gopsutil's host.Info()
// probe, falling back to runtime.GOARCH/os.Hostname() if the probe
// errors (sandboxed or restricted environments can't always read
// /proc or the Windows registry gopsutil reaches for).
func Fingerprint() planstate.Environment {
	env := planstate.Environment{OS: runtime.GOOS}

	info, err := host.Info()
	if err != nil {
		env.Arch = runtime.GOARCH
		if hostname, hostErr := os.Hostname(); hostErr == nil {
			env.Hostname = hostname
		}
		return env
	}

	env.Arch = info.KernelArch
	if env.Arch == "" {
		env.Arch = runtime.GOARCH
	}
	env.Hostname = info.Hostname
	if env.Hostname == "" {
		if hostname, hostErr := os.Hostname(); hostErr == nil {
			env.Hostname = hostname
		}
	}
	return env
}
