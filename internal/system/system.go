// Package system reads board level facts: boot time, uptime, process
// liveness and the host details shown by the status command.
package system

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// BootTime returns the moment the board came up.
func BootTime() (time.Time, error) {
	secs, err := host.BootTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read boot time: %v", err)
	}
	return time.Unix(int64(secs), 0), nil
}

// MillisSinceBoot converts a wall clock timestamp into milliseconds
// since boot, the time base the residency counters and the connection
// log use. Timestamps before boot clamp to zero.
func MillisSinceBoot(t time.Time) (uint64, error) {
	boot, err := BootTime()
	if err != nil {
		return 0, err
	}
	since := t.Sub(boot)
	if since < 0 {
		return 0, nil
	}
	return uint64(since.Milliseconds()), nil
}

// Uptime returns how long the board has been running.
func Uptime() (time.Duration, error) {
	secs, err := host.Uptime()
	if err != nil {
		return 0, fmt.Errorf("failed to read uptime: %v", err)
	}
	return time.Duration(secs) * time.Second, nil
}

// ProcessRunning reports whether pid belongs to a live process.
func ProcessRunning(pid int) bool {
	running, err := process.PidExists(int32(pid))
	return err == nil && running
}

// GetSystemInfo returns board information for the status command.
func GetSystemInfo() (map[string]interface{}, error) {
	info := make(map[string]interface{})

	// Host info
	if hostInfo, err := host.Info(); err == nil {
		info["hostname"] = hostInfo.Hostname
		info["os"] = hostInfo.OS
		info["platform"] = hostInfo.Platform
		info["kernel"] = hostInfo.KernelVersion
		info["uptime"] = hostInfo.Uptime
	}

	// Memory info
	if memInfo, err := mem.VirtualMemory(); err == nil {
		info["memory_total"] = memInfo.Total
		info["memory_used"] = memInfo.Used
		info["memory_percent"] = memInfo.UsedPercent
	}

	// CPU info
	if cpuPercent, err := cpu.Percent(time.Second, false); err == nil && len(cpuPercent) > 0 {
		info["cpu_percent"] = cpuPercent[0]
	}

	// Disk info
	if diskInfo, err := disk.Usage("/"); err == nil {
		info["disk_total"] = diskInfo.Total
		info["disk_used"] = diskInfo.Used
		info["disk_percent"] = diskInfo.UsedPercent
	}

	return info, nil
}
