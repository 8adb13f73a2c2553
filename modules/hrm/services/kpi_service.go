package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
	"github.com/iota-uz/hr-console/pkg/eventbus"
)

type KpiService struct {
	repo       allocation.Repository
	objectives objective.Repository
	publisher  eventbus.EventBus
}

// NewKpiService wires the KPI store. objectives may be nil, in which case
// objective ids are not checked against the active catalog on save.
func NewKpiService(repo allocation.Repository, objectives objective.Repository, publisher eventbus.EventBus) *KpiService {
	return &KpiService{
		repo:       repo,
		objectives: objectives,
		publisher:  publisher,
	}
}

// GetByPosition returns the stored allocation, or an empty record when the
// position has none yet.
func (s *KpiService) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	if err := authorizeHRM(ctx, KpisAuthzObject, "view"); err != nil {
		return nil, err
	}
	if positionID <= 0 {
		return nil, ErrInvalidPosition
	}
	rec, err := s.repo.GetByPosition(ctx, positionID)
	if err != nil {
		return nil, errors.Wrap(err, "get kpis")
	}
	if rec == nil {
		rec = &allocation.Record{PositionID: positionID}
	}
	if rec.Kpis == nil {
		rec.Kpis = []allocation.Entry{}
	}
	return rec, nil
}

// Save replaces the full KPI set of a position. The payload is re-validated
// with the same rules the editor applies before it is persisted.
func (s *KpiService) Save(ctx context.Context, positionID int64, lines []allocation.PayloadLine) error {
	if err := authorizeHRM(ctx, KpisAuthzObject, "update"); err != nil {
		return err
	}
	if positionID <= 0 {
		return ErrInvalidPosition
	}

	_, entries, verrs, err := s.validate(ctx, lines)
	if err != nil {
		return err
	}
	if len(verrs) > 0 {
		kpiSaves.WithLabelValues("invalid").Inc()
		return verrs
	}

	if err := s.repo.Replace(ctx, positionID, entries); err != nil {
		kpiSaves.WithLabelValues("error").Inc()
		return errors.Wrap(err, "replace kpis")
	}
	kpiSaves.WithLabelValues("ok").Inc()
	if s.publisher != nil {
		s.publisher.Publish(&allocation.ReplacedEvent{PositionID: positionID, Entries: entries})
	}
	return nil
}

// AllocationSummary is the outcome of a dry-run validation.
type AllocationSummary struct {
	TotalDistribution    decimal.Decimal
	DistributionBalanced bool
	ValidTargets         bool
	Submittable          bool
	Errors               allocation.ValidationErrors
}

// Validate runs the save checks without persisting anything.
func (s *KpiService) Validate(ctx context.Context, lines []allocation.PayloadLine) (*AllocationSummary, error) {
	if err := authorizeHRM(ctx, KpisAuthzObject, "view"); err != nil {
		return nil, err
	}
	set, _, verrs, err := s.validate(ctx, lines)
	if err != nil {
		return nil, err
	}
	return &AllocationSummary{
		TotalDistribution:    set.TotalDistribution(),
		DistributionBalanced: set.IsDistributionBalanced(),
		ValidTargets:         set.HasValidTargets(),
		Submittable:          len(verrs) == 0,
		Errors:               verrs,
	}, nil
}

func (s *KpiService) validate(ctx context.Context, lines []allocation.PayloadLine) (*allocation.Set, []allocation.Entry, allocation.ValidationErrors, error) {
	entries := allocation.EntriesFromPayload(lines)
	verrs, err := s.checkObjectives(ctx, lines)
	if err != nil {
		return nil, nil, nil, err
	}
	unresolved := make(map[int]bool, len(verrs))
	for _, fe := range verrs {
		unresolved[fe.Line] = true
	}
	set := allocation.FromExternalRecord(entries, nil)
	for _, fe := range set.Validate() {
		if fe.Field == allocation.FieldObjective && unresolved[fe.Line] {
			continue
		}
		verrs = append(verrs, fe)
	}
	return set, entries, verrs, nil
}

func (s *KpiService) checkObjectives(ctx context.Context, lines []allocation.PayloadLine) (allocation.ValidationErrors, error) {
	var active map[objective.ID]struct{}
	if s.objectives != nil {
		objs, err := s.objectives.ListActive(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "list objectives")
		}
		active = make(map[objective.ID]struct{}, len(objs))
		for _, o := range objs {
			active[o.ID] = struct{}{}
		}
	}

	var verrs allocation.ValidationErrors
	for i, l := range lines {
		if l.ObjectiveID == nil || l.ObjectiveID.IsZero() {
			verrs = append(verrs, unresolvedObjective(i, "objective is not in the catalog"))
			continue
		}
		if active == nil {
			continue
		}
		if _, ok := active[*l.ObjectiveID]; !ok {
			verrs = append(verrs, unresolvedObjective(i, "objective "+l.ObjectiveID.String()+" is not active"))
		}
	}
	return verrs, nil
}

func unresolvedObjective(line int, msg string) *allocation.FieldError {
	return &allocation.FieldError{
		Line:    line,
		Field:   allocation.FieldObjective,
		Code:    allocation.CodeUnresolvedObjective,
		Message: msg,
	}
}
