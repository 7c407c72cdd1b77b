package powerstats

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Service aggregates residency data providers behind a single query
// surface. Entities are registered first, then providers that cover
// them; queries by entity id fan out to the distinct providers
// involved.
type Service struct {
	mu        sync.Mutex
	entities  []EntityInfo
	spaces    map[uint32]StateSpace
	providers map[uint32]Provider
}

func NewService() *Service {
	return &Service{
		spaces:    make(map[uint32]StateSpace),
		providers: make(map[uint32]Provider),
	}
}

// AddEntity registers a power entity and returns its assigned id. Ids
// are handed out sequentially from zero.
func (s *Service) AddEntity(name string, typ EntityType) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint32(len(s.entities))
	s.entities = append(s.entities, EntityInfo{ID: id, Name: name, Type: typ})
	return id
}

// AddProvider registers a provider for every entity id in its state
// spaces. Ids must come from a prior AddEntity call.
func (s *Service) AddProvider(p Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, space := range p.GetStateSpaces() {
		if space.EntityID >= uint32(len(s.entities)) {
			return fmt.Errorf("provider reports unregistered entity id %d", space.EntityID)
		}
		s.spaces[space.EntityID] = space
		s.providers[space.EntityID] = p
	}
	return nil
}

// EntityInfos returns all registered entities.
func (s *Service) EntityInfos() ([]EntityInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entities) == 0 {
		return nil, ErrNotSupported
	}
	return append([]EntityInfo(nil), s.entities...), nil
}

// StateSpaces returns the state spaces for the given entity ids, or
// for every covered entity when ids is empty. Unknown ids are skipped
// and reported through ErrInvalidInput alongside the valid subset.
func (s *Service) StateSpaces(ids []uint32) ([]StateSpace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.spaces) == 0 {
		return nil, ErrNotSupported
	}

	if len(ids) == 0 {
		ids = s.coveredIDs()
	}

	var spaces []StateSpace
	var err error
	for _, id := range ids {
		space, ok := s.spaces[id]
		if !ok {
			err = ErrInvalidInput
			continue
		}
		spaces = append(spaces, space)
	}
	return spaces, err
}

// StateResidencies queries the providers covering the given entity
// ids, or every covered entity when ids is empty. Each distinct
// provider is read once per call, concurrently. Partial results are
// returned even on error; a provider read failure wins over unknown
// ids in the returned error.
func (s *Service) StateResidencies(ids []uint32) ([]StateResidencyResult, error) {
	s.mu.Lock()
	if len(s.providers) == 0 {
		s.mu.Unlock()
		return nil, ErrNotSupported
	}

	if len(ids) == 0 {
		ids = s.coveredIDs()
	}

	invalidInput := false
	distinct := make(map[Provider]bool)
	for _, id := range ids {
		p, ok := s.providers[id]
		if !ok {
			invalidInput = true
			continue
		}
		distinct[p] = true
	}
	s.mu.Unlock()

	var resMu sync.Mutex
	residencies := make(map[uint32]StateResidencyResult)

	var g errgroup.Group
	for p := range distinct {
		p := p
		g.Go(func() error {
			scratch := make(map[uint32]StateResidencyResult)
			if err := p.GetResults(scratch); err != nil {
				log.Printf("Residency provider read failed: %v", err)
				return err
			}
			resMu.Lock()
			for id, result := range scratch {
				residencies[id] = result
			}
			resMu.Unlock()
			return nil
		})
	}
	filesystemError := g.Wait() != nil

	var results []StateResidencyResult
	for _, id := range ids {
		if result, ok := residencies[id]; ok {
			results = append(results, result)
		}
	}

	switch {
	case filesystemError:
		return results, ErrFilesystemError
	case invalidInput:
		return results, ErrInvalidInput
	}
	return results, nil
}

// coveredIDs lists entity ids with a provider, ascending. Callers hold
// s.mu.
func (s *Service) coveredIDs() []uint32 {
	ids := make([]uint32, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
