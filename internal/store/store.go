// Package store defines the entity store contract the engine commits through,
// plus an in-memory implementation for tests and ephemeral runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/talgya/studio-league/internal/agency"
)

var (
	// ErrNotFound is returned when a referenced agency does not exist.
	ErrNotFound = errors.New("agency not found")
	// ErrConflict is returned when a committed agency changed since it was read.
	ErrConflict = errors.New("version conflict")
)

// Store is the engine's only view of persisted state.
type Store interface {
	// ReadAgency returns a private copy of the latest snapshot.
	ReadAgency(ctx context.Context, id string) (*agency.Agency, error)
	// ReadAllAgencies returns private copies of every agency, ordered by id.
	ReadAllAgencies(ctx context.Context) ([]*agency.Agency, error)
	// Commit writes every agency in the batch or none of them.
	Commit(ctx context.Context, b Batch) error
}

// MetaStore keeps small key/value facts beside the agencies.
type MetaStore interface {
	SaveMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, error)
}

// Batch is a set of full-record agency writes. Each agency's Version must be
// the version it was read at; zero means the agency is new.
type Batch struct {
	Agencies []*agency.Agency
}

// Put adds an agency to the batch, replacing an earlier entry with the same id.
func (b *Batch) Put(a *agency.Agency) {
	for i, existing := range b.Agencies {
		if existing.ID == a.ID {
			b.Agencies[i] = a
			return
		}
	}
	b.Agencies = append(b.Agencies, a)
}

// Len returns the number of agencies in the batch.
func (b Batch) Len() int {
	return len(b.Agencies)
}

// ConflictError names the agency whose version check failed.
type ConflictError struct {
	AgencyID string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("agency %q: expected version %d, found %d", e.AgencyID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
