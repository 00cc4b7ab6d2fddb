// Package store persists processing results. Stores are interface-driven so
// the worker can run against in-memory persistence in tests and Postgres in
// production without rewiring.
package store

import (
	"context"
	"errors"

	"veridoc/internal/domain"
)

// ErrNotFound is returned when no result exists for the requested key.
var ErrNotFound = errors.New("store: result not found")

// ResultStore is the result sink the worker delivers into. Save must be
// idempotent under retried delivery of the same external ID.
type ResultStore interface {
	Save(ctx context.Context, result domain.ProcessedResult) error
	FindByExternalID(ctx context.Context, externalID string) (domain.ProcessedResult, error)
	ListByOwner(ctx context.Context, owner string) ([]domain.ProcessedResult, error)
}
