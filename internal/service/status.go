package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ovrld/boardhal/internal/system"
)

// PidFile marks the running daemon instance.
var PidFile = "/var/run/boardhal.pid"

// GetDaemonStatus reports whether the daemon is alive and under which
// pid. A stale PID file is cleaned up on the way.
func GetDaemonStatus() (bool, int) {
	pid, err := readPidFile()
	if err != nil {
		return false, 0
	}

	if !system.ProcessRunning(pid) {
		// Clean up stale PID file
		os.Remove(PidFile)
		return false, 0
	}

	return true, pid
}

func CreatePidFile() error {
	dir := filepath.Dir(PidFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %v", dir, err)
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(PidFile, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %v", err)
	}

	return nil
}

func RemovePidFile() error {
	if _, err := os.Stat(PidFile); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(PidFile)
}
