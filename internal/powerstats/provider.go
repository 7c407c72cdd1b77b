package powerstats

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TransformFunc converts a raw counter into the reported unit, e.g.
// clock ticks to milliseconds.
type TransformFunc func(uint64) uint64

// StateConfig describes how one state's counters appear in a residency
// file. A field with an empty prefix is not expected in the file and
// stays zero. Header may be empty when the state lines follow the
// entity header directly.
type StateConfig struct {
	Name   string
	Header string

	EntryCountPrefix    string
	EntryCountTransform TransformFunc
	TotalTimePrefix     string
	TotalTimeTransform  TransformFunc
	LastEntryPrefix     string
	LastEntryTransform  TransformFunc
}

// EntityConfig describes one entity block within a residency file.
type EntityConfig struct {
	Name   string
	Header string
	States []StateConfig
}

type genericEntity struct {
	id  uint32
	cfg EntityConfig
}

// GenericProvider parses residency files laid out as per-entity blocks
// of prefixed counter lines, the format most kernel power drivers
// expose. Entities are parsed in the order they appear in the file;
// every configured entity, state and field must be present or the
// whole read fails.
type GenericProvider struct {
	path     string
	entities []genericEntity
}

func NewGenericProvider(path string) *GenericProvider {
	return &GenericProvider{path: path}
}

// AddEntity registers one entity block to be parsed from the file.
func (p *GenericProvider) AddEntity(id uint32, cfg EntityConfig) {
	p.entities = append(p.entities, genericEntity{id: id, cfg: cfg})
}

func (p *GenericProvider) GetResults(results map[uint32]StateResidencyResult) error {
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %v", p.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	parsed := make(map[uint32]StateResidencyResult, len(p.entities))

	for _, entity := range p.entities {
		if entity.cfg.Header != "" && !skipToHeader(scanner, entity.cfg.Header) {
			return fmt.Errorf("header %q not found in %s", entity.cfg.Header, p.path)
		}

		result := StateResidencyResult{EntityID: entity.id}
		for i, state := range entity.cfg.States {
			if state.Header != "" && !skipToHeader(scanner, state.Header) {
				return fmt.Errorf("state header %q not found in %s", state.Header, p.path)
			}

			data, err := parseState(scanner, state)
			if err != nil {
				return fmt.Errorf("entity %q: %v", entity.cfg.Name, err)
			}
			data.StateID = uint32(i)
			result.Residencies = append(result.Residencies, data)
		}
		parsed[entity.id] = result
	}

	for id, result := range parsed {
		results[id] = result
	}
	return nil
}

func (p *GenericProvider) GetStateSpaces() []StateSpace {
	spaces := make([]StateSpace, 0, len(p.entities))
	for _, entity := range p.entities {
		space := StateSpace{EntityID: entity.id}
		for i, state := range entity.cfg.States {
			space.States = append(space.States, State{ID: uint32(i), Name: state.Name})
		}
		spaces = append(spaces, space)
	}
	return spaces
}

// skipToHeader consumes lines until one matches the header after
// trimming whitespace.
func skipToHeader(scanner *bufio.Scanner, header string) bool {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == header {
			return true
		}
	}
	return false
}

// parseState reads lines until every configured field of the state has
// been seen. Hitting end of file first means the file layout does not
// match the config.
func parseState(scanner *bufio.Scanner, cfg StateConfig) (StateResidency, error) {
	var data StateResidency

	want := 0
	if cfg.EntryCountPrefix != "" {
		want++
	}
	if cfg.TotalTimePrefix != "" {
		want++
	}
	if cfg.LastEntryPrefix != "" {
		want++
	}

	got := 0
	for got < want && scanner.Scan() {
		line := scanner.Text()
		if stat, ok := extractStat(line, cfg.EntryCountPrefix); ok {
			data.TotalCount = applyTransform(cfg.EntryCountTransform, stat)
			got++
		} else if stat, ok := extractStat(line, cfg.TotalTimePrefix); ok {
			data.TotalTimeMs = applyTransform(cfg.TotalTimeTransform, stat)
			got++
		} else if stat, ok := extractStat(line, cfg.LastEntryPrefix); ok {
			data.LastEntryTimestampMs = applyTransform(cfg.LastEntryTransform, stat)
			got++
		}
	}

	if got != want {
		return StateResidency{}, fmt.Errorf("failed to parse stats for state %q", cfg.Name)
	}
	return data, nil
}

func applyTransform(fn TransformFunc, stat uint64) uint64 {
	if fn == nil {
		return stat
	}
	return fn(stat)
}

// extractStat pulls the number following prefix out of line. The
// number may carry trailing text on the same line.
func extractStat(line, prefix string) (uint64, bool) {
	if prefix == "" {
		return 0, false
	}
	idx := strings.Index(line, prefix)
	if idx < 0 {
		return 0, false
	}

	rest := strings.Fields(line[idx+len(prefix):])
	if len(rest) == 0 {
		return 0, false
	}
	stat, err := strconv.ParseUint(rest[0], 0, 64)
	if err != nil {
		return 0, false
	}
	return stat, true
}
