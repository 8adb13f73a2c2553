package viewmodels

import (
	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

type Objective struct {
	ID   objective.ID `json:"id"`
	Name string       `json:"name"`
	Code string       `json:"code"`
}

type ObjectiveList struct {
	Data []Objective `json:"data"`
}

type KpiLine struct {
	ObjectiveID            objective.ID `json:"objective_id"`
	DistributionPercentage *string      `json:"distribution_percentage"`
	Deliverable            string       `json:"deliverable"`
	TargetPercentage       *string      `json:"target_percentage"`
}

type PositionKpis struct {
	PositionID int64     `json:"position_id"`
	Kpis       []KpiLine `json:"kpis"`
}

type FieldError struct {
	// Line is zero-based; -1 marks set-level problems.
	Line    int    `json:"line"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationResult struct {
	TotalDistribution    string       `json:"total_distribution"`
	DistributionBalanced bool         `json:"distribution_balanced"`
	ValidTargets         bool         `json:"valid_targets"`
	Submittable          bool         `json:"submittable"`
	Errors               []FieldError `json:"errors"`
}

func ObjectivesToViewModel(objs []objective.Objective) ObjectiveList {
	out := ObjectiveList{Data: make([]Objective, 0, len(objs))}
	for _, o := range objs {
		out.Data = append(out.Data, Objective{ID: o.ID, Name: o.Name, Code: o.Code})
	}
	return out
}

// RecordToViewModel renders percentages as fixed two-digit decimal strings.
func RecordToViewModel(rec *allocation.Record) PositionKpis {
	out := PositionKpis{PositionID: rec.PositionID, Kpis: make([]KpiLine, 0, len(rec.Kpis))}
	for _, e := range rec.Kpis {
		line := KpiLine{ObjectiveID: e.ObjectiveID, Deliverable: e.Deliverable}
		if e.DistributionPercentage.Valid {
			v := e.DistributionPercentage.Decimal.StringFixed(allocation.PercentScale)
			line.DistributionPercentage = &v
		}
		if e.TargetPercentage.Valid {
			v := e.TargetPercentage.Decimal.StringFixed(allocation.PercentScale)
			line.TargetPercentage = &v
		}
		out.Kpis = append(out.Kpis, line)
	}
	return out
}

func FieldErrorsToViewModel(errs allocation.ValidationErrors) []FieldError {
	out := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		out = append(out, FieldError{Line: e.Line, Field: string(e.Field), Code: e.Code, Message: e.Message})
	}
	return out
}
