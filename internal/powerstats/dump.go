package powerstats

import (
	"errors"
	"fmt"
	"io"
)

const (
	dumpHeader = "\n========== Power entity state residency ==========\n"
	dumpFooter = "========== End of state residency ==========\n"
)

// DumpResidency writes a human readable residency table for every
// covered entity, for debug surfaces.
func DumpResidency(w io.Writer, svc *Service) error {
	if _, err := io.WriteString(w, dumpHeader); err != nil {
		return err
	}

	if err := writeResidencyTable(w, svc); err != nil {
		fmt.Fprintf(w, "Error getting state residency: %v\n", err)
	}

	_, err := io.WriteString(w, dumpFooter)
	return err
}

func writeResidencyTable(w io.Writer, svc *Service) error {
	const headerFormat = "  %14s   %14s   %16s   %15s   %16s\n"
	const dataFormat = "  %14s   %14s   %13d ms   %15d   %13d ms\n"

	entities, err := svc.EntityInfos()
	if err != nil {
		return err
	}
	entityNames := make(map[uint32]string, len(entities))
	for _, e := range entities {
		entityNames[e.ID] = e.Name
	}

	spaces, err := svc.StateSpaces(nil)
	if err != nil {
		return err
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
	if err != nil && !errors.Is(err, ErrInvalidInput) {
		return err
	}
	if len(results) == 0 {
		_, err := io.WriteString(w, "  No data available!\n")
		return err
	}

	fmt.Fprintf(w, headerFormat, "Entity", "State", "Total time", "Total entries", "Last entry timestamp")
	for _, result := range results {
		for _, r := range result.Residencies {
			fmt.Fprintf(w, dataFormat,
				entityNames[result.EntityID],
				stateNames[result.EntityID][r.StateID],
				r.TotalTimeMs,
				r.TotalCount,
				r.LastEntryTimestampMs)
		}
	}
	return nil
}
