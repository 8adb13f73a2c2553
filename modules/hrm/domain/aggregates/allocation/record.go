package allocation

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

// Entry is one persisted KPI line as stored and served by the KPI endpoint.
// Percentages arrive either as JSON numbers or as decimal strings.
type Entry struct {
	ObjectiveID            objective.ID        `json:"objective_id" yaml:"objective_id"`
	DistributionPercentage decimal.NullDecimal `json:"distribution_percentage" yaml:"-"`
	Deliverable            string              `json:"deliverable" yaml:"deliverable"`
	TargetPercentage       decimal.NullDecimal `json:"target_percentage" yaml:"-"`
}

// Record is the KPI allocation stored for one position.
type Record struct {
	PositionID int64   `json:"position_id"`
	Kpis       []Entry `json:"kpis"`
}

// PayloadLine is the outbound shape produced on submit. ObjectiveID is nil
// when the reference could not be resolved; the receiver decides what to do.
type PayloadLine struct {
	ObjectiveID            *objective.ID `json:"objective_id"`
	DistributionPercentage float64       `json:"distribution_percentage"`
	Deliverable            string        `json:"deliverable"`
	TargetPercentage       float64       `json:"target_percentage"`
}

// Entry converts an outbound line back into its persisted shape.
func (p PayloadLine) Entry() Entry {
	e := Entry{
		DistributionPercentage: decimal.NewNullDecimal(decimal.NewFromFloat(p.DistributionPercentage)),
		Deliverable:            p.Deliverable,
		TargetPercentage:       decimal.NewNullDecimal(decimal.NewFromFloat(p.TargetPercentage)),
	}
	if p.ObjectiveID != nil {
		e.ObjectiveID = *p.ObjectiveID
	}
	return e
}

func EntriesFromPayload(lines []PayloadLine) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Entry())
	}
	return out
}

// ReplacedEvent is published after the KPI set of a position was replaced.
type ReplacedEvent struct {
	PositionID int64
	Entries    []Entry
}

type Repository interface {
	GetByPosition(ctx context.Context, positionID int64) (*Record, error)
	Replace(ctx context.Context, positionID int64, entries []Entry) error
}
