package service

import (
	"os"
	"path/filepath"
	"testing"
)

func setTestPidFile(t *testing.T) {
	t.Helper()
	old := PidFile
	PidFile = filepath.Join(t.TempDir(), "boardhal.pid")
	t.Cleanup(func() { PidFile = old })
}

func TestPidFileLifecycle(t *testing.T) {
	setTestPidFile(t)

	if err := CreatePidFile(); err != nil {
		t.Fatalf("CreatePidFile failed: %v", err)
	}

	pid, err := readPidFile()
	if err != nil {
		t.Fatalf("readPidFile failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid file holds %d, want %d", pid, os.Getpid())
	}

	running, gotPid := GetDaemonStatus()
	if !running || gotPid != os.Getpid() {
		t.Errorf("GetDaemonStatus() = %t, %d; want true, %d", running, gotPid, os.Getpid())
	}

	if err := RemovePidFile(); err != nil {
		t.Fatalf("RemovePidFile failed: %v", err)
	}
	if err := RemovePidFile(); err != nil {
		t.Errorf("second RemovePidFile failed: %v", err)
	}
}

func TestGetDaemonStatusCleansStalePidFile(t *testing.T) {
	setTestPidFile(t)

	// A pid that cannot exist on this machine.
	if err := os.WriteFile(PidFile, []byte("67108864\n"), 0644); err != nil {
		t.Fatalf("failed to write pid file: %v", err)
	}

	running, pid := GetDaemonStatus()
	if running || pid != 0 {
		t.Errorf("GetDaemonStatus() = %t, %d; want false, 0", running, pid)
	}
	if _, err := os.Stat(PidFile); !os.IsNotExist(err) {
		t.Error("stale pid file not removed")
	}
}

func TestGetDaemonStatusNoPidFile(t *testing.T) {
	setTestPidFile(t)

	if running, pid := GetDaemonStatus(); running || pid != 0 {
		t.Errorf("GetDaemonStatus() = %t, %d; want false, 0", running, pid)
	}
}

func TestReadPidFileRejectsGarbage(t *testing.T) {
	setTestPidFile(t)

	if err := os.WriteFile(PidFile, []byte("not-a-pid\n"), 0644); err != nil {
		t.Fatalf("failed to write pid file: %v", err)
	}
	if _, err := readPidFile(); err == nil {
		t.Error("readPidFile accepted garbage")
	}
}
