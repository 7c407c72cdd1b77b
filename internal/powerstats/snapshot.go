package powerstats

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// Snapshot flattens the current residency of every covered entity into
// "<entity>__<state>" keyed total-time milliseconds, the format
// consumed by interval measurement tooling.
func Snapshot(svc *Service) (map[string]uint64, error) {
	entities, err := svc.EntityInfos()
	if err != nil {
		return nil, err
	}
	entityNames := make(map[uint32]string, len(entities))
	for _, e := range entities {
		entityNames[e.ID] = e.Name
	}

	spaces, err := svc.StateSpaces(nil)
	if err != nil {
		return nil, err
	}
	stateNames := make(map[uint32]map[uint32]string, len(spaces))
	for _, space := range spaces {
		names := make(map[uint32]string, len(space.States))
		for _, state := range space.States {
			names[state.ID] = state.Name
		}
		stateNames[space.EntityID] = names
	}

	results, err := svc.StateResidencies(nil)
	if err != nil {
		return nil, err
	}

	data := make(map[string]uint64)
	for _, result := range results {
		for _, r := range result.Residencies {
			key := fmt.Sprintf("%s__%s", entityNames[result.EntityID], stateNames[result.EntityID][r.StateID])
			data[key] = r.TotalTimeMs
		}
	}
	return data, nil
}

// Delta subtracts the start snapshot from the end snapshot. Keys only
// present in start are dropped; keys only present in end count from
// zero.
func Delta(start, end map[string]uint64) map[string]uint64 {
	delta := make(map[string]uint64, len(end))
	for key, value := range end {
		delta[key] = value - start[key]
	}
	return delta
}

// WriteSnapshot emits a snapshot as sorted key=value lines.
func WriteSnapshot(w io.Writer, data map[string]uint64) error {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%d\n", key, data[key]); err != nil {
			return err
		}
	}
	return nil
}

// WriteInterval emits an interval measurement as the elapsed wall time
// followed by sorted key=value lines.
func WriteInterval(w io.Writer, delta map[string]uint64, elapsed time.Duration) error {
	if _, err := fmt.Fprintf(w, "elapsed time: %.3fs\n", elapsed.Seconds()); err != nil {
		return err
	}
	return WriteSnapshot(w, delta)
}
