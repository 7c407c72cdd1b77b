package usbgadget

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestGadget builds a fake configfs gadget tree and points the
// package at it. Tests share package path state, so no t.Parallel().
func newTestGadget(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"os_desc", filepath.Join("configs", "b.1"), "functions"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
			t.Fatalf("failed to create gadget dir: %v", err)
		}
	}

	old := GadgetRoot
	SetGadgetRoot(root)
	t.Cleanup(func() { SetGadgetRoot(old) })
	return root
}

func readGadgetFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestSetVidPid(t *testing.T) {
	newTestGadget(t)

	if status := SetVidPid("0x18d1", "0x4ee7"); status != StatusSuccess {
		t.Fatalf("SetVidPid: got %v, want success", status)
	}
	if got := readGadgetFile(t, VendorIDPath); got != "0x18d1" {
		t.Errorf("vendor id: got %q, want %q", got, "0x18d1")
	}
	if got := readGadgetFile(t, ProductIDPath); got != "0x4ee7" {
		t.Errorf("product id: got %q, want %q", got, "0x4ee7")
	}
}

func TestSetVidPidMissingGadget(t *testing.T) {
	old := GadgetRoot
	SetGadgetRoot(filepath.Join(t.TempDir(), "nonexistent"))
	t.Cleanup(func() { SetGadgetRoot(old) })

	if status := SetVidPid("0x18d1", "0x4ee7"); status != StatusError {
		t.Errorf("SetVidPid: got %v, want error", status)
	}
}

func TestLinkFunction(t *testing.T) {
	newTestGadget(t)

	if err := linkFunction("midi.gs5", 0); err != nil {
		t.Fatalf("linkFunction failed: %v", err)
	}

	link := filepath.Join(ConfigPath, "function0")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("failed to read link: %v", err)
	}
	if want := filepath.Join(FunctionsPath, "midi.gs5"); target != want {
		t.Errorf("link target: got %q, want %q", target, want)
	}
}

func TestUnlinkFunctionsKeepsOtherEntries(t *testing.T) {
	newTestGadget(t)

	for i, fn := range []string{"midi.gs5", "accessory.gs2"} {
		if err := linkFunction(fn, i); err != nil {
			t.Fatalf("linkFunction failed: %v", err)
		}
	}
	// configfs keeps non-link entries like strings dirs in the config.
	if err := os.MkdirAll(filepath.Join(ConfigPath, "strings"), 0755); err != nil {
		t.Fatalf("failed to create strings dir: %v", err)
	}

	if err := unlinkFunctions(); err != nil {
		t.Fatalf("unlinkFunctions failed: %v", err)
	}

	entries, err := os.ReadDir(ConfigPath)
	if err != nil {
		t.Fatalf("failed to read config dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "strings" {
		t.Errorf("config entries after unlink: got %v, want [strings]", entries)
	}
}

func TestResetGadget(t *testing.T) {
	newTestGadget(t)

	for _, path := range []string{DeviceClassPath, DeviceSubClassPath, DeviceProtocolPath} {
		if err := os.WriteFile(path, []byte("239"), 0644); err != nil {
			t.Fatalf("failed to seed class file: %v", err)
		}
	}
	if err := os.WriteFile(DescUsePath, []byte("1"), 0644); err != nil {
		t.Fatalf("failed to seed os_desc: %v", err)
	}
	if err := linkFunction("midi.gs5", 0); err != nil {
		t.Fatalf("linkFunction failed: %v", err)
	}

	if status := ResetGadget(); status != StatusSuccess {
		t.Fatalf("ResetGadget: got %v, want success", status)
	}

	for _, path := range []string{DeviceClassPath, DeviceSubClassPath, DeviceProtocolPath, DescUsePath} {
		if got := readGadgetFile(t, path); got != "0" {
			t.Errorf("%s: got %q, want %q", filepath.Base(path), got, "0")
		}
	}
	if got := readGadgetFile(t, PullupPath); got != "none" {
		t.Errorf("pullup: got %q, want %q", got, "none")
	}
	if _, err := os.Lstat(filepath.Join(ConfigPath, "function0")); !os.IsNotExist(err) {
		t.Error("function link survived reset")
	}
}

func TestResetGadgetPulldownFailureIsNotFatal(t *testing.T) {
	newTestGadget(t)

	// An unbindable pullup node: writing to a directory fails.
	if err := os.MkdirAll(PullupPath, 0755); err != nil {
		t.Fatalf("failed to create pullup dir: %v", err)
	}

	if status := ResetGadget(); status != StatusSuccess {
		t.Errorf("ResetGadget: got %v, want success despite pulldown failure", status)
	}
}

func TestSetDeviceStrings(t *testing.T) {
	newTestGadget(t)

	if err := SetDeviceStrings("0123456789abcdef", "boardhal", "Dev Board"); err != nil {
		t.Fatalf("SetDeviceStrings failed: %v", err)
	}

	tests := []struct {
		node string
		want string
	}{
		{"serialnumber", "0123456789abcdef"},
		{"manufacturer", "boardhal"},
		{"product", "Dev Board"},
	}
	for _, tt := range tests {
		if got := readGadgetFile(t, filepath.Join(StringsPath, tt.node)); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.node, got, tt.want)
		}
	}
}
