package instance

import (
	"context"
	"sort"
	"sync"

	"caseflow/pkg/sentinel"
)

// InMemoryStore keeps instances in process memory. The mutex serializes
// writers, which makes CompareAndSwap trivially atomic; the version check
// still runs so engine retry behavior is exercised identically to the
// Postgres store.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[string]ProcessInstance
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{instances: make(map[string]ProcessInstance)}
}

func (s *InMemoryStore) Create(_ context.Context, inst ProcessInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.instances[inst.ID]; exists {
		return sentinel.ErrDuplicate
	}
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (ProcessInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return ProcessInstance{}, sentinel.ErrNotFound
	}
	return inst.Clone(), nil
}

func (s *InMemoryStore) CompareAndSwap(_ context.Context, id string, expectedVersion int64, mutate Mutation) (ProcessInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.instances[id]
	if !ok {
		return ProcessInstance{}, sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return ProcessInstance{}, sentinel.ErrConflict
	}

	next := current.Clone()
	if err := mutate(&next); err != nil {
		return ProcessInstance{}, err
	}
	next.Version = expectedVersion + 1

	s.instances[id] = next
	return next.Clone(), nil
}

func (s *InMemoryStore) Query(_ context.Context, filter Filter) ([]ProcessInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]ProcessInstance, 0)
	for _, inst := range s.instances {
		if filter.DefinitionName != "" && inst.DefinitionName != filter.DefinitionName {
			continue
		}
		if filter.Status != "" && inst.Status != filter.Status {
			continue
		}
		if filter.ActorRole != "" && !historyHasRole(inst, filter.ActorRole) {
			continue
		}
		cp := inst.Clone()
		cp.History = nil
		matched = append(matched, cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []ProcessInstance{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func historyHasRole(inst ProcessInstance, role string) bool {
	for _, rec := range inst.History {
		if rec.ActorRole == role {
			return true
		}
	}
	return false
}
