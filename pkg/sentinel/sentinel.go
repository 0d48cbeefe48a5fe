package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about stored resources, not business-rule
// rejections:
// - ErrNotFound: record does not exist in the store
// - ErrDuplicate: a record with the same key already exists
// - ErrConflict: optimistic version check failed during a write
// - ErrUnavailable: backing service temporarily unreachable
//
// For business-rule rejections (illegal transition, missing role), use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
