package definition

import (
	"context"
	"sort"
	"sync"

	"caseflow/pkg/sentinel"
)

// InMemoryStore holds definitions in process memory. Used in tests and as a
// registry for deployments that load their workflow templates at startup.
type InMemoryStore struct {
	mu       sync.RWMutex
	versions map[string]map[int]ProcessDefinition
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{versions: make(map[string]map[int]ProcessDefinition)}
}

func (s *InMemoryStore) Save(_ context.Context, def ProcessDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byVersion, ok := s.versions[def.Name]
	if !ok {
		byVersion = make(map[int]ProcessDefinition)
		s.versions[def.Name] = byVersion
	}
	if _, exists := byVersion[def.Version]; exists {
		return sentinel.ErrDuplicate
	}
	byVersion[def.Version] = def.Clone()
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, name string, version int) (ProcessDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.versions[name][version]
	if !ok {
		return ProcessDefinition{}, sentinel.ErrNotFound
	}
	return def.Clone(), nil
}

func (s *InMemoryStore) FindLatest(_ context.Context, name string) (ProcessDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVersion := s.versions[name]
	if len(byVersion) == 0 {
		return ProcessDefinition{}, sentinel.ErrNotFound
	}
	latest := 0
	for v := range byVersion {
		if v > latest {
			latest = v
		}
	}
	return byVersion[latest].Clone(), nil
}

func (s *InMemoryStore) Versions(_ context.Context, name string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := make([]int, 0, len(s.versions[name]))
	for v := range s.versions[name] {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}
