package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/studio-league/internal/agency"
)

func TestMemoryCommitAndRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var b Batch
	b.Put(&agency.Agency{ID: "b", Name: "Beta"})
	b.Put(&agency.Agency{ID: "a", Name: "Alpha"})
	require.NoError(t, m.Commit(ctx, b))

	all, err := m.ReadAllAgencies(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, int64(1), all[0].Version)

	_, err = m.ReadAgency(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Commit(ctx, Batch{Agencies: []*agency.Agency{
		{ID: "a", VECurrent: 10},
		{ID: "b", VECurrent: 10},
	}}))

	a, _ := m.ReadAgency(ctx, "a")
	b, _ := m.ReadAgency(ctx, "b")
	a.VECurrent = 50
	b.VECurrent = 50
	b.Version = 7 // stale

	err := m.Commit(ctx, Batch{Agencies: []*agency.Agency{a, b}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "b", ce.AgencyID)

	fresh, _ := m.ReadAgency(ctx, "a")
	assert.Equal(t, 10, fresh.VECurrent, "first agency must not be written when a later one conflicts")
}

func TestMemoryReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Commit(ctx, Batch{Agencies: []*agency.Agency{{ID: "a", Members: []agency.Student{{ID: "s1"}}}}}))

	a, _ := m.ReadAgency(ctx, "a")
	a.Members[0].Name = "changed"

	again, _ := m.ReadAgency(ctx, "a")
	assert.Empty(t, again.Members[0].Name)
}

func TestBatchPutReplaces(t *testing.T) {
	var b Batch
	b.Put(&agency.Agency{ID: "a", Name: "one"})
	b.Put(&agency.Agency{ID: "a", Name: "two"})
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "two", b.Agencies[0].Name)
}

func TestMemoryMeta(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.GetMeta(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, m.SaveMeta(ctx, "k", "v"))
	v, err := m.GetMeta(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
