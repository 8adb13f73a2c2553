package main

import (
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/infrastructure/persistence"
	"github.com/iota-uz/hr-console/modules/hrm/services"
)

const codeLineRejected = "line_rejected"

// allocationFile is the hand-edited YAML form of one position's KPIs.
type allocationFile struct {
	PositionID int64                  `yaml:"position_id,omitempty"`
	Kpis       []persistence.FileLine `yaml:"kpis"`
}

func readAllocationFile(path string) (*allocationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrap(err, "read allocation file"))
	}
	var f allocationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, withCode(exitUsage, errors.Wrap(err, "parse allocation file"))
	}
	return &f, nil
}

// buildSet replays the file through the same edits a user would make, so
// malformed numbers and locked targets surface as field errors. Lines past
// the add-line ceiling are rejected.
func buildSet(lines []persistence.FileLine) (*allocation.Set, allocation.ValidationErrors) {
	set := allocation.New()
	var rejected allocation.ValidationErrors
	for i, fl := range lines {
		if i > 0 && !set.AddLine() {
			rejected = append(rejected, &allocation.FieldError{
				Line:    i,
				Code:    codeLineRejected,
				Message: fmt.Sprintf("total already reaches %s%%, no further line can be added", allocation.AddLineCeiling),
			})
			break
		}
		_ = set.SetObjective(i, fl.Ref())
		_ = set.SetDistribution(i, fl.Distribution)
		_ = set.SetDeliverable(i, fl.Deliverable)
		_ = set.SetTarget(i, fl.Target)
	}
	return set, rejected
}

// checkObjectives flags references the catalog cannot resolve. Empty
// references are left to Set.Validate.
func checkObjectives(set *allocation.Set, catalog *services.ObjectiveCatalog) allocation.ValidationErrors {
	var errs allocation.ValidationErrors
	for i, l := range set.Lines() {
		ref := l.Objective()
		if ref.IsEmpty() {
			continue
		}
		if id, ok := ref.ID(); ok {
			if _, found := catalog.ResolveByID(id); found {
				continue
			}
			errs = append(errs, unresolved(i, fmt.Sprintf("objective id %q is not an active objective", id)))
			continue
		}
		name, _ := ref.Name()
		if _, found := catalog.ResolveByName(name); found {
			continue
		}
		msg := fmt.Sprintf("objective %q is not an active objective", name)
		if hints := catalog.Suggest(name, 3); len(hints) > 0 {
			msg += fmt.Sprintf(" (did you mean %q?)", hints[0])
		}
		errs = append(errs, unresolved(i, msg))
	}
	return errs
}

func unresolved(line int, msg string) *allocation.FieldError {
	return &allocation.FieldError{
		Line:    line,
		Field:   allocation.FieldObjective,
		Code:    allocation.CodeUnresolvedObjective,
		Message: msg,
	}
}
