package instance

import (
	"context"
)

// Mutation changes an instance in place during a compare-and-swap. It runs
// against a private copy: returning an error leaves the stored instance
// byte-for-byte unchanged.
type Mutation func(*ProcessInstance) error

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	DefinitionName string
	Status         Status
	// ActorRole matches instances whose history contains at least one
	// transition performed by the role. Used for workload dashboards.
	ActorRole string
	Limit     int
	Offset    int
}

// Store persists process instances. Implementations return pkg/sentinel
// errors; the engine translates them into domain errors.
//
// History is never written through a separate call: CompareAndSwap persists
// the step change and the appended history entries atomically, so current
// state and history cannot diverge.
type Store interface {
	// Create persists a new instance. Returns sentinel.ErrDuplicate when
	// the ID is already taken.
	Create(ctx context.Context, inst ProcessInstance) error

	// Get returns the full instance including history.
	// Returns sentinel.ErrNotFound when absent.
	Get(ctx context.Context, id string) (ProcessInstance, error)

	// CompareAndSwap atomically applies mutate to the instance iff its
	// stored version equals expectedVersion, then increments the version.
	// Returns sentinel.ErrConflict when another writer got there first and
	// sentinel.ErrNotFound when the instance does not exist. The mutation
	// must not touch Version; the store owns the counter.
	CompareAndSwap(ctx context.Context, id string, expectedVersion int64, mutate Mutation) (ProcessInstance, error)

	// Query returns a fresh snapshot of instances matching the filter,
	// ordered by UpdatedAt descending. History is not populated; use Get
	// for the full record.
	Query(ctx context.Context, filter Filter) ([]ProcessInstance, error)
}
