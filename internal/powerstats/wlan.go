package powerstats

import (
	"bufio"
	"fmt"
	"os"
)

// WLAN driver debugfs power stats expose two states with a shared
// transition counter.
const (
	wlanStateActiveID    = 0
	wlanStateDeepSleepID = 1
)

// WlanProvider reads the wireless subsystem residency counters from
// the driver's power_stats debugfs file.
type WlanProvider struct {
	entityID uint32
	path     string
}

func NewWlanProvider(entityID uint32, path string) *WlanProvider {
	return &WlanProvider{entityID: entityID, path: path}
}

func (p *WlanProvider) GetResults(results map[uint32]StateResidencyResult) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", p.path, err)
	}
	defer f.Close()

	active := StateResidency{StateID: wlanStateActiveID}
	deepSleep := StateResidency{StateID: wlanStateDeepSleepID}

	// All four counters must be present for the read to count.
	found := 0
	scanner := bufio.NewScanner(f)
	for found < 4 && scanner.Scan() {
		line := scanner.Text()
		if stat, ok := extractStat(line, "cumulative_sleep_time_ms:"); ok {
			deepSleep.TotalTimeMs = stat
			found++
		} else if stat, ok := extractStat(line, "cumulative_total_on_time_ms:"); ok {
			active.TotalTimeMs = stat
			found++
		} else if stat, ok := extractStat(line, "deep_sleep_enter_counter:"); ok {
			// Every deep sleep entry implies an active entry too, so
			// the one counter covers both states.
			active.TotalCount = stat
			deepSleep.TotalCount = stat
			found++
		} else if stat, ok := extractStat(line, "last_deep_sleep_enter_tstamp_ms:"); ok {
			deepSleep.LastEntryTimestampMs = stat
			found++
		}
	}

	if found != 4 {
		return fmt.Errorf("incomplete wlan stats in %s", p.path)
	}

	results[p.entityID] = StateResidencyResult{
		EntityID:    p.entityID,
		Residencies: []StateResidency{active, deepSleep},
	}
	return nil
}

func (p *WlanProvider) GetStateSpaces() []StateSpace {
	return []StateSpace{{
		EntityID: p.entityID,
		States: []State{
			{ID: wlanStateActiveID, Name: "Active"},
			{ID: wlanStateDeepSleepID, Name: "Deep-Sleep"},
		},
	}}
}
