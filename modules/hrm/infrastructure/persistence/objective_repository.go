package persistence

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/composables"
)

const (
	selectActiveObjectivesQuery = `
	SELECT id, name, code, is_active
	FROM kpi_objectives
	WHERE is_active
	ORDER BY name, id`

	upsertObjectiveQuery = `
	INSERT INTO kpi_objectives (id, name, code, is_active)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		code = EXCLUDED.code,
		is_active = EXCLUDED.is_active,
		updated_at = now()`
)

type PgObjectiveRepository struct{}

func NewObjectiveRepository() *PgObjectiveRepository {
	return &PgObjectiveRepository{}
}

func (r *PgObjectiveRepository) ListActive(ctx context.Context) ([]objective.Objective, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, selectActiveObjectivesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []objective.Objective{}
	for rows.Next() {
		var (
			id string
			o  objective.Objective
		)
		if err := rows.Scan(&id, &o.Name, &o.Code, &o.IsActive); err != nil {
			return nil, err
		}
		o.ID = objective.ID(id)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Upsert inserts or refreshes objectives; used to apply the seed file.
// Objectives without an id get a random one.
func (r *PgObjectiveRepository) Upsert(ctx context.Context, objs []objective.Objective) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		for _, o := range objs {
			if o.ID.IsZero() {
				o.ID = objective.ID(uuid.NewString())
			}
			if _, err := tx.Exec(txCtx, upsertObjectiveQuery, o.ID.String(), o.Name, o.Code, o.IsActive); err != nil {
				return err
			}
		}
		return nil
	})
}
