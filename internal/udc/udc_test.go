package udc

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestSysClass(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := SysClassUDC
	SysClassUDC = dir
	t.Cleanup(func() { SysClassUDC = old })
	return dir
}

func addController(t *testing.T, dir, name, state string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
		t.Fatalf("failed to create controller dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name, "state"), []byte(state), 0644); err != nil {
		t.Fatalf("failed to write state: %v", err)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		raw  string
		want State
	}{
		{"configured\n", StateConfigured},
		{"not attached\n", StateNotAttached},
		{"suspended", StateSuspended},
		{"powered\n", StatePowered},
		{"something else\n", StateUnknown},
		{"", StateUnknown},
	}

	for _, tt := range tests {
		if got := ParseState(tt.raw); got != tt.want {
			t.Errorf("ParseState(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := newTestSysClass(t)
	addController(t, dir, "dummy_udc.0", "not attached\n")
	addController(t, dir, "dummy_udc.1", "configured\n")

	names, err := Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if want := []string{"dummy_udc.0", "dummy_udc.1"}; !reflect.DeepEqual(names, want) {
		t.Errorf("Discover() = %v, want %v", names, want)
	}
}

func TestDiscoverMissingSysfs(t *testing.T) {
	old := SysClassUDC
	SysClassUDC = filepath.Join(t.TempDir(), "nope")
	t.Cleanup(func() { SysClassUDC = old })

	if _, err := Discover(); err == nil {
		t.Error("Discover succeeded without sysfs")
	}
}

func TestReadState(t *testing.T) {
	dir := newTestSysClass(t)
	addController(t, dir, "dummy_udc.0", "configured\n")

	state, err := ReadState("dummy_udc.0")
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state != StateConfigured {
		t.Errorf("ReadState() = %v, want configured", state)
	}

	if _, err := ReadState("missing_udc"); err == nil {
		t.Error("ReadState succeeded for missing controller")
	}
}

func TestSessionTrackerCollapsesRepeats(t *testing.T) {
	st := NewSessionTracker(0)

	if !st.Observe(StateNotAttached) {
		t.Error("first observation reported no change")
	}
	if st.Observe(StateNotAttached) {
		t.Error("repeat observation reported a change")
	}
	if !st.Observe(StateConfigured) {
		t.Error("state change reported no change")
	}

	events := st.Events()
	if len(events) != 2 {
		t.Fatalf("events: got %d, want 2", len(events))
	}
	if events[0].State != StateNotAttached || events[1].State != StateConfigured {
		t.Errorf("unexpected event order: %v", events)
	}
	if st.Last() != StateConfigured {
		t.Errorf("Last() = %v, want configured", st.Last())
	}
}

func TestSessionTrackerBoundsHistory(t *testing.T) {
	st := NewSessionTracker(3)

	seq := []State{
		StateNotAttached, StateAttached, StatePowered,
		StateDefault, StateConfigured,
	}
	for _, s := range seq {
		st.Observe(s)
	}

	events := st.Events()
	if len(events) != 3 {
		t.Fatalf("events: got %d, want 3", len(events))
	}
	want := []State{StatePowered, StateDefault, StateConfigured}
	for i, ev := range events {
		if ev.State != want[i] {
			t.Errorf("event %d: got %v, want %v", i, ev.State, want[i])
		}
	}
}

func TestSessionTrackerReset(t *testing.T) {
	st := NewSessionTracker(0)
	st.Observe(StateConfigured)
	st.Reset()

	if len(st.Events()) != 0 {
		t.Error("events survived reset")
	}
	if st.Last() != StateUnknown {
		t.Errorf("Last() = %v after reset, want unknown", st.Last())
	}
	if !st.Observe(StateConfigured) {
		t.Error("observation after reset reported no change")
	}
}
