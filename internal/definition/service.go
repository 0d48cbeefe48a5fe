package definition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	dErrors "caseflow/pkg/domain-errors"
	"caseflow/pkg/requestcontext"
	"caseflow/pkg/sentinel"
)

// Service is the process definition registry. It validates definitions at
// publish time and serves immutable copies to the engine and to callers.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Publish validates and stores a definition. Definitions are
// content-immutable: a name+version pair can be published exactly once, and
// a failed validation stores nothing.
func (s *Service) Publish(ctx context.Context, def ProcessDefinition) (ProcessDefinition, error) {
	if err := def.Validate(); err != nil {
		return ProcessDefinition{}, err
	}
	def.PublishedAt = requestcontext.Now(ctx).UTC()

	if err := s.store.Save(ctx, def); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return ProcessDefinition{}, dErrors.Newf(dErrors.CodeValidation,
				"definition %s version %d is already published", def.Name, def.Version)
		}
		return ProcessDefinition{}, fmt.Errorf("publish definition: %w", err)
	}

	s.logger.InfoContext(ctx, "definition published",
		"definition", def.Name,
		"version", def.Version,
		"steps", len(def.Steps),
	)
	return def, nil
}

// Get returns a published definition. Version 0 means the highest published
// version.
func (s *Service) Get(ctx context.Context, name string, version int) (ProcessDefinition, error) {
	var (
		def ProcessDefinition
		err error
	)
	if version <= 0 {
		def, err = s.store.FindLatest(ctx, name)
	} else {
		def, err = s.store.Find(ctx, name, version)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return ProcessDefinition{}, dErrors.Newf(dErrors.CodeNotFound, "definition %s not found", name)
		}
		return ProcessDefinition{}, fmt.Errorf("get definition: %w", err)
	}
	return def, nil
}

// ListVersions returns the published version numbers for a name in
// ascending order.
func (s *Service) ListVersions(ctx context.Context, name string) ([]int, error) {
	versions, err := s.store.Versions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list definition versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "definition %s not found", name)
	}
	return versions, nil
}
