package definition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore is a Redis read-through decorator over another Store.
// Definitions are immutable once published, so cached entries can never go
// stale; the TTL only bounds memory. Latest-version and version-list lookups
// bypass the cache because publishing a new version changes their answers.
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a Redis cache for exact-version lookups.
func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(name string, version int) string {
	return fmt.Sprintf("caseflow:definition:%s:%d", name, version)
}

func (s *CachedStore) Save(ctx context.Context, def ProcessDefinition) error {
	return s.inner.Save(ctx, def)
}

func (s *CachedStore) Find(ctx context.Context, name string, version int) (ProcessDefinition, error) {
	key := cacheKey(name, version)
	cached, err := s.client.Get(ctx, key).Bytes()
	if err == nil {
		var def ProcessDefinition
		if err := json.Unmarshal(cached, &def); err == nil {
			return def, nil
		}
		// Unreadable cache entries are evicted and re-fetched.
		s.client.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.WarnContext(ctx, "definition cache read failed", "key", key, "error", err)
	}

	def, err := s.inner.Find(ctx, name, version)
	if err != nil {
		return ProcessDefinition{}, err
	}

	if encoded, err := json.Marshal(def); err == nil {
		if err := s.client.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
			s.logger.WarnContext(ctx, "definition cache write failed", "key", key, "error", err)
		}
	}
	return def, nil
}

func (s *CachedStore) FindLatest(ctx context.Context, name string) (ProcessDefinition, error) {
	return s.inner.FindLatest(ctx, name)
}

func (s *CachedStore) Versions(ctx context.Context, name string) ([]int, error) {
	return s.inner.Versions(ctx, name)
}
