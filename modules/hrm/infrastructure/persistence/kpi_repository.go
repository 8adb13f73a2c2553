package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/composables"
)

const (
	selectPositionKpisQuery = `
	SELECT
		objective_id,
		distribution_percentage::text,
		deliverable,
		target_percentage::text
	FROM position_kpis
	WHERE position_id = $1
	ORDER BY line_no`

	deletePositionKpisQuery = `DELETE FROM position_kpis WHERE position_id = $1`

	insertPositionKpiQuery = `
	INSERT INTO position_kpis (
		position_id,
		line_no,
		objective_id,
		distribution_percentage,
		deliverable,
		target_percentage
	) VALUES ($1, $2, $3, $4::text::numeric, $5, $6::text::numeric)`
)

type PgKpiRepository struct{}

func NewKpiRepository() allocation.Repository {
	return &PgKpiRepository{}
}

func (r *PgKpiRepository) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, selectPositionKpisQuery, positionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rec := &allocation.Record{PositionID: positionID, Kpis: []allocation.Entry{}}
	for rows.Next() {
		var (
			objectiveID  string
			distribution pgtype.Text
			deliverable  string
			target       pgtype.Text
		)
		if err := rows.Scan(&objectiveID, &distribution, &deliverable, &target); err != nil {
			return nil, err
		}
		entry := allocation.Entry{ObjectiveID: objective.ID(objectiveID), Deliverable: deliverable}
		if entry.DistributionPercentage, err = nullDecimal(distribution); err != nil {
			return nil, err
		}
		if entry.TargetPercentage, err = nullDecimal(target); err != nil {
			return nil, err
		}
		rec.Kpis = append(rec.Kpis, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Replace swaps the whole KPI set of a position in one transaction.
func (r *PgKpiRepository) Replace(ctx context.Context, positionID int64, entries []allocation.Entry) error {
	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(txCtx, deletePositionKpisQuery, positionID); err != nil {
			return errors.Wrap(err, "delete kpis")
		}
		for i, e := range entries {
			if _, err := tx.Exec(txCtx, insertPositionKpiQuery,
				positionID,
				i+1,
				e.ObjectiveID.String(),
				decimalText(e.DistributionPercentage),
				e.Deliverable,
				decimalText(e.TargetPercentage),
			); err != nil {
				return errors.Wrapf(err, "insert kpi line %d", i+1)
			}
		}
		return nil
	})
}

func nullDecimal(t pgtype.Text) (decimal.NullDecimal, error) {
	if !t.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(t.String)
	if err != nil {
		return decimal.NullDecimal{}, errors.Wrapf(err, "parse numeric %q", t.String)
	}
	return decimal.NewNullDecimal(d), nil
}

func decimalText(d decimal.NullDecimal) pgtype.Text {
	if !d.Valid {
		return pgtype.Text{}
	}
	return pgtype.Text{String: d.Decimal.StringFixed(2), Valid: true}
}
