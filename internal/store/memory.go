package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/talgya/studio-league/internal/agency"
)

// Compile-time contract checks.
var (
	_ Store     = (*Memory)(nil)
	_ MetaStore = (*Memory)(nil)
)

// Memory is a mutex-guarded in-memory store. Reads and writes exchange deep
// copies so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	agencies map[string]*agency.Agency
	meta     map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		agencies: make(map[string]*agency.Agency),
		meta:     make(map[string]string),
	}
}

// ReadAgency returns a copy of the stored agency.
func (m *Memory) ReadAgency(_ context.Context, id string) (*agency.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.agencies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

// ReadAllAgencies returns copies of all agencies ordered by id.
func (m *Memory) ReadAllAgencies(_ context.Context) ([]*agency.Agency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*agency.Agency, 0, len(m.agencies))
	for _, a := range m.agencies {
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(x, y *agency.Agency) int { return strings.Compare(x.ID, y.ID) })
	return out, nil
}

// Commit validates every version in the batch before writing anything.
func (m *Memory) Commit(ctx context.Context, b Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range b.Agencies {
		var actual int64
		if cur, ok := m.agencies[a.ID]; ok {
			actual = cur.Version
		}
		if actual != a.Version {
			return &ConflictError{AgencyID: a.ID, Expected: a.Version, Actual: actual}
		}
	}
	for _, a := range b.Agencies {
		c := a.Clone()
		c.Version++
		m.agencies[c.ID] = c
	}
	return nil
}

// SaveMeta stores a key-value pair.
func (m *Memory) SaveMeta(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

// GetMeta retrieves a value; missing keys return ErrNotFound.
func (m *Memory) GetMeta(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.meta[key]
	if !ok {
		return "", fmt.Errorf("%w: meta %s", ErrNotFound, key)
	}
	return v, nil
}
