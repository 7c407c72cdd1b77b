package powerstats

import "errors"

// Aggregation errors. Filesystem errors take precedence over invalid
// input when a single call hits both.
var (
	ErrNotSupported    = errors.New("no power entities configured")
	ErrInvalidInput    = errors.New("unknown power entity id")
	ErrFilesystemError = errors.New("failed to read residency data")
)

type EntityType int

const (
	EntityTypeSubsystem EntityType = iota
	EntityTypePeripheral
	EntityTypePowerDomain
)

func (t EntityType) String() string {
	switch t {
	case EntityTypeSubsystem:
		return "Subsystem"
	case EntityTypePeripheral:
		return "Peripheral"
	case EntityTypePowerDomain:
		return "PowerDomain"
	default:
		return "Unknown"
	}
}

// EntityInfo identifies a power entity registered with the service.
type EntityInfo struct {
	ID   uint32
	Name string
	Type EntityType
}

// State is one power state within an entity's state space.
type State struct {
	ID   uint32
	Name string
}

// StateSpace lists the states a provider reports for one entity.
type StateSpace struct {
	EntityID uint32
	States   []State
}

// StateResidency holds the accumulated counters for one state.
type StateResidency struct {
	StateID              uint32
	TotalTimeMs          uint64
	TotalCount           uint64
	LastEntryTimestampMs uint64
}

// StateResidencyResult is the per-entity answer to a residency query.
type StateResidencyResult struct {
	EntityID    uint32
	Residencies []StateResidency
}

// Provider reads residency counters for one or more entities from the
// kernel. GetResults either fills in an entry for every entity id the
// provider covers and returns nil, or leaves the map untouched and
// returns an error. The ids written by GetResults are exactly the ids
// listed by GetStateSpaces.
type Provider interface {
	GetResults(results map[uint32]StateResidencyResult) error
	GetStateSpaces() []StateSpace
}
