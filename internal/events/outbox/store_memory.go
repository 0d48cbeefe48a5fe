package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"caseflow/internal/events"
)

// InMemoryStore is the outbox double used in worker tests and in
// deployments without Kafka.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	done    map[string]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{done: make(map[string]time.Time)}
}

func (s *InMemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{
		ID:        uuid.NewString(),
		Event:     event,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, limit)
	for _, entry := range s.entries {
		if _, published := s.done[entry.ID]; published {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.done[id] = publishedAt
	}
	return nil
}
