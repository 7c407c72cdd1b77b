package powerstats

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func snapshotService(t *testing.T) *Service {
	t.Helper()
	svc := NewService()
	svc.AddEntity("WLAN", EntityTypeSubsystem)

	p := &fakeProvider{
		spaces: []StateSpace{{
			EntityID: 0,
			States:   []State{{ID: 0, Name: "Active"}, {ID: 1, Name: "Deep-Sleep"}},
		}},
		results: map[uint32]StateResidencyResult{
			0: {
				EntityID: 0,
				Residencies: []StateResidency{
					{StateID: 0, TotalTimeMs: 100},
					{StateID: 1, TotalTimeMs: 900},
				},
			},
		},
	}
	if err := svc.AddProvider(p); err != nil {
		t.Fatalf("AddProvider failed: %v", err)
	}
	return svc
}

func TestSnapshot(t *testing.T) {
	svc := snapshotService(t)

	data, err := Snapshot(svc)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	want := map[string]uint64{
		"WLAN__Active":     100,
		"WLAN__Deep-Sleep": 900,
	}
	if !reflect.DeepEqual(data, want) {
		t.Errorf("Snapshot: got %v, want %v", data, want)
	}
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name  string
		start map[string]uint64
		end   map[string]uint64
		want  map[string]uint64
	}{
		{
			name:  "simple difference",
			start: map[string]uint64{"a": 10, "b": 20},
			end:   map[string]uint64{"a": 15, "b": 50},
			want:  map[string]uint64{"a": 5, "b": 30},
		},
		{
			name:  "key missing from start counts from zero",
			start: map[string]uint64{},
			end:   map[string]uint64{"a": 7},
			want:  map[string]uint64{"a": 7},
		},
		{
			name:  "key missing from end is dropped",
			start: map[string]uint64{"a": 1, "gone": 5},
			end:   map[string]uint64{"a": 2},
			want:  map[string]uint64{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delta(tt.start, tt.end); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Delta: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteSnapshot(t *testing.T) {
	data := map[string]uint64{
		"WLAN__Deep-Sleep": 900,
		"WLAN__Active":     100,
	}

	var buf strings.Builder
	if err := WriteSnapshot(&buf, data); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	want := "WLAN__Active=100\n" +
		"WLAN__Deep-Sleep=900\n"
	if buf.String() != want {
		t.Errorf("WriteSnapshot output:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteInterval(t *testing.T) {
	delta := map[string]uint64{
		"WLAN__Deep-Sleep": 900,
		"WLAN__Active":     100,
	}

	var buf strings.Builder
	if err := WriteInterval(&buf, delta, 2500*time.Millisecond); err != nil {
		t.Fatalf("WriteInterval failed: %v", err)
	}

	want := "elapsed time: 2.500s\n" +
		"WLAN__Active=100\n" +
		"WLAN__Deep-Sleep=900\n"
	if buf.String() != want {
		t.Errorf("WriteInterval output:\ngot:\n%s\nwant:\n%s", buf.String(), want)
	}
}
