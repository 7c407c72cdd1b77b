package service

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

const (
	SIGUSR1 = syscall.SIGUSR1 // Reapply gadget configuration
	SIGUSR2 = syscall.SIGUSR2 // Dump daemon state
)

// SendReapplySignal tells the running daemon to reload its config and
// recompose the gadget.
func SendReapplySignal() error {
	return signalDaemon(SIGUSR1)
}

// SendDumpSignal tells the running daemon to write its state to
// DumpFile.
func SendDumpSignal() error {
	return signalDaemon(SIGUSR2)
}

func signalDaemon(sig os.Signal) error {
	pid, err := readPidFile()
	if err != nil {
		return fmt.Errorf("daemon not running: %v", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %v", err)
	}

	return process.Signal(sig)
}

func readPidFile() (int, error) {
	data, err := os.ReadFile(PidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}

	return pid, nil
}
