package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

func openTestSQLite(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SeedAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hrm.db")
	store := openTestSQLite(t, path)

	seed, err := LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	require.NoError(t, seed.Apply(ctx, store, store))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "Quality", active[0].Name)
	require.Equal(t, objective.ID("11"), active[1].ID)

	require.NoError(t, store.Close())

	reopened := openTestSQLite(t, path)
	rec, err := reopened.GetByPosition(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rec.Kpis, 2)
	require.Equal(t, "60", rec.Kpis[0].DistributionPercentage.Decimal.String())
	require.Equal(t, objective.ID("12"), rec.Kpis[1].ObjectiveID)
	require.True(t, allocation.FromExternalRecord(rec.Kpis, nil).IsSubmittable())
}

func TestSQLiteStore_ReplaceKeepsNullTarget(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t, filepath.Join(t.TempDir(), "hrm.db"))

	seed, err := ParseSeed([]byte(`
positions:
  - position_id: 3
    kpis:
      - {objective_id: a, distribution: "100", deliverable: Only}
`))
	require.NoError(t, err)
	mem := NewMemoryKpiRepository()
	require.NoError(t, seed.Apply(ctx, nil, mem))
	want, err := mem.GetByPosition(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, store.Replace(ctx, 3, want.Kpis))
	got, err := store.GetByPosition(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got.Kpis, 1)
	require.False(t, got.Kpis[0].TargetPercentage.Valid)

	require.NoError(t, store.Replace(ctx, 3, nil))
	got, err = store.GetByPosition(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got.Kpis)
	require.Empty(t, got.Kpis)
}

func TestSQLiteStore_UpsertAssignsID(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLite(t, filepath.Join(t.TempDir(), "hrm.db"))

	require.NoError(t, store.Upsert(ctx, []objective.Objective{{Name: "Fresh", IsActive: true}}))
	require.NoError(t, store.Upsert(ctx, []objective.Objective{{ID: "x", Name: "Off", IsActive: false}}))

	objs, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 1)
	require.False(t, objs[0].ID.IsZero())
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	require.Error(t, err)
}
