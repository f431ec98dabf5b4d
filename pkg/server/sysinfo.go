package server

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// sysInfo gathers process and host diagnostics. It can take a moment, so
// it must not run on the executor.
func sysInfo(started time.Time) []string {
	lines := []string{
		fmt.Sprintf("Engine: %s, built with %s for %s/%s.", VersionString(), runtime.Version(), runtime.GOOS, runtime.GOARCH),
		fmt.Sprintf("Started: %s (%s).", started.Format(time.ANSIC), humanize.Time(started)),
		fmt.Sprintf("Goroutines: %s.", humanize.Comma(int64(runtime.NumGoroutine()))),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := proc.MemoryInfo(); err == nil {
			lines = append(lines, fmt.Sprintf("Process memory: %s resident, %s virtual.",
				humanize.IBytes(mi.RSS), humanize.IBytes(mi.VMS)))
		}
		if pct, err := proc.CPUPercent(); err == nil {
			lines = append(lines, fmt.Sprintf("Process CPU: %.1f%%.", pct))
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	lines = append(lines, fmt.Sprintf("Go heap: %s in use, %d GC %s.",
		humanize.IBytes(ms.HeapAlloc), ms.NumGC, plural(int(ms.NumGC), "cycle")))

	if hi, err := host.Info(); err == nil {
		lines = append(lines, fmt.Sprintf("Host: %s, %s %s (%s), booted %s.",
			hi.Hostname, hi.Platform, hi.PlatformVersion, hi.KernelVersion,
			humanize.Time(time.Unix(int64(hi.BootTime), 0))))
	}
	if n, err := cpu.Counts(true); err == nil {
		lines = append(lines, fmt.Sprintf("CPUs: %d.", n))
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		lines = append(lines, fmt.Sprintf("Host memory: %s of %s used (%.1f%%).",
			humanize.IBytes(vm.Used), humanize.IBytes(vm.Total), vm.UsedPercent))
	}
	return lines
}
