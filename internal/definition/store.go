package definition

import (
	"context"
)

// Store persists published definitions. Implementations return pkg/sentinel
// errors; the service translates them into domain errors.
type Store interface {
	// Save persists a definition. Returns sentinel.ErrDuplicate when the
	// name+version pair already exists.
	Save(ctx context.Context, def ProcessDefinition) error

	// Find returns the definition with the exact name and version.
	// Returns sentinel.ErrNotFound when absent.
	Find(ctx context.Context, name string, version int) (ProcessDefinition, error)

	// FindLatest returns the highest published version for a name.
	// Returns sentinel.ErrNotFound when the name has no versions.
	FindLatest(ctx context.Context, name string) (ProcessDefinition, error)

	// Versions returns the published version numbers for a name in
	// ascending order. Empty slice when the name is unknown.
	Versions(ctx context.Context, name string) ([]int, error)
}
