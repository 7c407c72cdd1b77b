package identity

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func setMachineID(t *testing.T, id string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "machine-id")
	if err := os.WriteFile(file, []byte(id+"\n"), 0644); err != nil {
		t.Fatalf("failed to write machine id: %v", err)
	}

	old := machineIDFile
	machineIDFile = file
	t.Cleanup(func() { machineIDFile = old })
}

func TestSerialNumberStable(t *testing.T) {
	setMachineID(t, "8f71e3c9a24b4d0c9e11672306a9b1dd")

	first, err := SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber failed: %v", err)
	}
	second, err := SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber failed: %v", err)
	}

	if first != second {
		t.Errorf("serial not stable: %q vs %q", first, second)
	}
	if len(first) != 16 {
		t.Errorf("serial length: got %d, want 16", len(first))
	}
}

func TestSerialNumberDistinctPerBoard(t *testing.T) {
	setMachineID(t, "8f71e3c9a24b4d0c9e11672306a9b1dd")
	first, err := SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber failed: %v", err)
	}

	setMachineID(t, "0000aaaa1111bbbb2222cccc3333dddd")
	second, err := SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber failed: %v", err)
	}

	if first == second {
		t.Errorf("different boards derived the same serial %q", first)
	}
}

func TestSerialNumberMissingMachineID(t *testing.T) {
	old := machineIDFile
	machineIDFile = filepath.Join(t.TempDir(), "nope")
	t.Cleanup(func() { machineIDFile = old })

	if _, err := SerialNumber(); err == nil {
		t.Error("SerialNumber succeeded without a machine id")
	}
}

func TestMACPair(t *testing.T) {
	setMachineID(t, "8f71e3c9a24b4d0c9e11672306a9b1dd")

	hostAddr, devAddr, err := MACPair("rndis")
	if err != nil {
		t.Fatalf("MACPair failed: %v", err)
	}
	if hostAddr == devAddr {
		t.Errorf("host and device share the MAC %q", hostAddr)
	}

	for _, addr := range []string{hostAddr, devAddr} {
		mac, err := net.ParseMAC(addr)
		if err != nil {
			t.Fatalf("derived MAC %q does not parse: %v", addr, err)
		}
		if mac[0]&0x02 == 0 {
			t.Errorf("MAC %q is not locally administered", addr)
		}
		if mac[0]&0x01 != 0 {
			t.Errorf("MAC %q is multicast", addr)
		}
	}

	// Distinct functions get distinct addresses.
	ncmHost, _, err := MACPair("ncm")
	if err != nil {
		t.Fatalf("MACPair failed: %v", err)
	}
	if ncmHost == hostAddr {
		t.Errorf("rndis and ncm derived the same host MAC %q", hostAddr)
	}
}
