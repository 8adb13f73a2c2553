package persistence

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

// MemoryKpiRepository keeps KPI sets in process memory.
type MemoryKpiRepository struct {
	mu      sync.RWMutex
	records map[int64][]allocation.Entry
}

func NewMemoryKpiRepository() *MemoryKpiRepository {
	return &MemoryKpiRepository{records: make(map[int64][]allocation.Entry)}
}

func (r *MemoryKpiRepository) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &allocation.Record{PositionID: positionID, Kpis: cloneEntries(r.records[positionID])}, nil
}

func (r *MemoryKpiRepository) Replace(ctx context.Context, positionID int64, entries []allocation.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(entries) == 0 {
		delete(r.records, positionID)
		return nil
	}
	r.records[positionID] = cloneEntries(entries)
	return nil
}

func cloneEntries(entries []allocation.Entry) []allocation.Entry {
	out := make([]allocation.Entry, len(entries))
	copy(out, entries)
	return out
}

// MemoryObjectiveRepository serves a fixed objective list.
type MemoryObjectiveRepository struct {
	mu   sync.RWMutex
	objs []objective.Objective
}

func NewMemoryObjectiveRepository(objs ...objective.Objective) *MemoryObjectiveRepository {
	r := &MemoryObjectiveRepository{}
	r.Set(objs)
	return r
}

func (r *MemoryObjectiveRepository) Set(objs []objective.Objective) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objs = append([]objective.Objective(nil), objs...)
}

// Upsert replaces objectives with a matching id and appends the rest.
func (r *MemoryObjectiveRepository) Upsert(ctx context.Context, objs []objective.Objective) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range objs {
		if o.ID.IsZero() {
			o.ID = objective.ID(uuid.NewString())
		}
		if i := slices.IndexFunc(r.objs, func(x objective.Objective) bool { return x.ID == o.ID }); i >= 0 {
			r.objs[i] = o
			continue
		}
		r.objs = append(r.objs, o)
	}
	return nil
}

func (r *MemoryObjectiveRepository) ListActive(ctx context.Context) ([]objective.Objective, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]objective.Objective, 0, len(r.objs))
	for _, o := range r.objs {
		if o.IsActive {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
