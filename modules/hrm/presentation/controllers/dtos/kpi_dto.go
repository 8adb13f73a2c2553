package dtos

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/constants"
)

// KpiLineDTO accepts percentages as JSON numbers or decimal strings.
type KpiLineDTO struct {
	ObjectiveID            *objective.ID       `json:"objective_id"`
	DistributionPercentage decimal.NullDecimal `json:"distribution_percentage"`
	Deliverable            string              `json:"deliverable" validate:"max=2000"`
	TargetPercentage       decimal.NullDecimal `json:"target_percentage"`
}

type SaveKpisDTO struct {
	Kpis []KpiLineDTO `json:"kpis" validate:"required,min=1,max=100,dive"`
}

// Ok runs the structural checks; allocation rules are left to the service.
func (d *SaveKpisDTO) Ok() (map[string]string, bool) {
	err := constants.Validate.Struct(d)
	if err == nil {
		return nil, true
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"body": err.Error()}, false
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fieldKey(fe)] = fe.Tag()
	}
	return out, false
}

func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	// Drop the struct name prefix: SaveKpisDTO.Kpis[0].Deliverable
	for i := 0; i < len(ns); i++ {
		if ns[i] == '.' {
			return ns[i+1:]
		}
	}
	return ns
}

func (d *SaveKpisDTO) ToPayload() []allocation.PayloadLine {
	out := make([]allocation.PayloadLine, 0, len(d.Kpis))
	for _, k := range d.Kpis {
		out = append(out, allocation.PayloadLine{
			ObjectiveID:            k.ObjectiveID,
			DistributionPercentage: floatOrZero(k.DistributionPercentage),
			Deliverable:            k.Deliverable,
			TargetPercentage:       floatOrZero(k.TargetPercentage),
		})
	}
	return out
}

func floatOrZero(d decimal.NullDecimal) float64 {
	if !d.Valid {
		return 0
	}
	return d.Decimal.InexactFloat64()
}

// MetaKey is the envelope meta key of a domain field error.
func MetaKey(fe *allocation.FieldError) string {
	if fe.Line < 0 {
		return "kpis." + string(fe.Field)
	}
	return fmt.Sprintf("kpis[%d].%s", fe.Line, fe.Field)
}
