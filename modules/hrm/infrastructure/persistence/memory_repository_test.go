package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

func TestMemoryKpiRepository_ReplaceAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryKpiRepository()

	rec, err := repo.GetByPosition(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, rec.Kpis)
	require.NotNil(t, rec.Kpis)

	entries := []allocation.Entry{{ObjectiveID: "11", Deliverable: "A"}}
	require.NoError(t, repo.Replace(ctx, 7, entries))
	entries[0].Deliverable = "mutated"

	rec, err = repo.GetByPosition(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rec.Kpis, 1)
	require.Equal(t, "A", rec.Kpis[0].Deliverable)

	require.NoError(t, repo.Replace(ctx, 7, nil))
	rec, err = repo.GetByPosition(ctx, 7)
	require.NoError(t, err)
	require.Empty(t, rec.Kpis)
}

func TestMemoryObjectiveRepository_ListActive(t *testing.T) {
	repo := NewMemoryObjectiveRepository(
		objective.Objective{ID: "2", Name: "zeta", IsActive: true},
		objective.Objective{ID: "1", Name: "Alpha", IsActive: true},
		objective.Objective{ID: "3", Name: "Beta", IsActive: false},
	)
	objs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, objective.ID("1"), objs[0].ID)
}

func TestSeed_Apply(t *testing.T) {
	ctx := context.Background()
	seed, err := LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	require.Len(t, seed.Objectives, 3)
	require.Equal(t, objective.ID("11"), seed.Objectives[0].ID)

	objs := NewMemoryObjectiveRepository()
	kpis := NewMemoryKpiRepository()
	require.NoError(t, seed.Apply(ctx, objs, kpis))

	active, err := objs.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	rec, err := kpis.GetByPosition(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rec.Kpis, 2)
	require.Equal(t, objective.ID("12"), rec.Kpis[1].ObjectiveID)
	require.Equal(t, "40", rec.Kpis[1].DistributionPercentage.Decimal.String())

	set := allocation.FromExternalRecord(rec.Kpis, nil)
	require.True(t, set.IsSubmittable())
}

func TestSeed_UnknownObjectiveName(t *testing.T) {
	seed, err := ParseSeed([]byte(`
positions:
  - position_id: 1
    kpis:
      - objective: Nope
        distribution: 100
        deliverable: x
        target: 1
`))
	require.NoError(t, err)
	err = seed.Apply(context.Background(), nil, NewMemoryKpiRepository())
	require.ErrorContains(t, err, "unknown objective")
}

func TestSeed_BadPercent(t *testing.T) {
	seed, err := ParseSeed([]byte(`
objectives:
  - {id: "1", name: A, is_active: true}
positions:
  - position_id: 1
    kpis:
      - {objective_id: "1", distribution: abc, deliverable: x, target: 1}
`))
	require.NoError(t, err)
	require.Error(t, seed.Apply(context.Background(), nil, NewMemoryKpiRepository()))
}

func TestFileLinesFromEntries(t *testing.T) {
	seed, err := LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	kpis := NewMemoryKpiRepository()
	require.NoError(t, seed.Apply(context.Background(), nil, kpis))
	rec, err := kpis.GetByPosition(context.Background(), 7)
	require.NoError(t, err)

	lines := FileLinesFromEntries(rec.Kpis)
	require.Equal(t, []FileLine{
		{ObjectiveID: "11", Distribution: "60", Deliverable: "Grow ARR", Target: "40"},
		{ObjectiveID: "12", Distribution: "40", Deliverable: "Cut defects", Target: "20"},
	}, lines)
	require.Equal(t, allocation.ObjectiveByID("11"), lines[0].Ref())
}

func TestMemoryObjectiveRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryObjectiveRepository(objective.Objective{ID: "1", Name: "Old", IsActive: true})
	require.NoError(t, repo.Upsert(ctx, []objective.Objective{
		{ID: "1", Name: "Renamed", IsActive: true},
		{Name: "Fresh", IsActive: true},
	}))

	objs, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	require.Equal(t, "Fresh", objs[0].Name)
	require.False(t, objs[0].ID.IsZero())
	require.Equal(t, "Renamed", objs[1].Name)
}
