package allocation

import (
	"strings"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

type refKind uint8

const (
	refNone refKind = iota
	refID
	refName
)

// ObjectiveRef points a line at an objective. Either the identifier or the
// display name is authoritative; the other side is derived from the catalog.
type ObjectiveRef struct {
	kind  refKind
	value string
	// label is the display name derived for an id-based reference.
	label string
}

func ObjectiveByID(id objective.ID) ObjectiveRef {
	v := strings.TrimSpace(id.String())
	if v == "" {
		return ObjectiveRef{}
	}
	return ObjectiveRef{kind: refID, value: v}
}

func ObjectiveByName(name string) ObjectiveRef {
	v := strings.TrimSpace(name)
	if v == "" {
		return ObjectiveRef{}
	}
	return ObjectiveRef{kind: refName, value: v}
}

func (r ObjectiveRef) IsEmpty() bool {
	return r.kind == refNone
}

// ID returns the identifier when the reference is id-based.
func (r ObjectiveRef) ID() (objective.ID, bool) {
	if r.kind != refID {
		return "", false
	}
	return objective.ID(r.value), true
}

// Name returns the pending name when the reference is name-based.
func (r ObjectiveRef) Name() (string, bool) {
	if r.kind != refName {
		return "", false
	}
	return r.value, true
}

// IsResolved reports whether an id-based reference has a display name.
func (r ObjectiveRef) IsResolved() bool {
	return r.kind == refID && r.label != ""
}

// Label is what the host displays: the resolved name, or the raw
// identifier or name when nothing better is known.
func (r ObjectiveRef) Label() string {
	if r.label != "" {
		return r.label
	}
	return r.value
}

// withLabel derives the display name of an id-based reference. A name the
// resolver knows is converted into an id-based reference.
func (r ObjectiveRef) withLabel(resolver Resolver) ObjectiveRef {
	if resolver == nil {
		return r
	}
	switch r.kind {
	case refID:
		if obj, ok := resolver.ResolveByID(objective.ID(r.value)); ok {
			r.label = obj.Name
		}
	case refName:
		id, ok := resolver.ResolveByName(r.value)
		if !ok {
			return r
		}
		label := r.value
		if obj, found := resolver.ResolveByID(id); found {
			label = obj.Name
		}
		return ObjectiveRef{kind: refID, value: id.String(), label: label}
	}
	return r
}

// resolveID maps the reference to an identifier. Ids pass through as they
// are; only names need the catalog.
func (r ObjectiveRef) resolveID(resolver Resolver) (objective.ID, bool) {
	switch r.kind {
	case refID:
		return objective.ID(r.value), true
	case refName:
		if resolver == nil {
			return "", false
		}
		return resolver.ResolveByName(r.value)
	default:
		return "", false
	}
}

// Line is a single KPI line. Its fields are mutated only through Set so
// that the cross-line invariants stay enforced.
type Line struct {
	objective    ObjectiveRef
	distribution Percent
	deliverable  string
	target       Percent
	errs         map[Field]*FieldError
}

func (l Line) Objective() ObjectiveRef { return l.objective }
func (l Line) Distribution() Percent   { return l.distribution }
func (l Line) Deliverable() string     { return l.deliverable }
func (l Line) Target() Percent         { return l.target }

// FieldError returns the error currently attached to field f, if any.
func (l Line) FieldError(f Field) *FieldError {
	if l.errs == nil {
		return nil
	}
	return l.errs[f]
}

// IsTargetEditable mirrors the UI rule: target is locked while distribution is zero.
func (l Line) IsTargetEditable() bool {
	return !l.distribution.IsZero()
}

// IsBlank reports whether nothing has been entered on the line.
func (l Line) IsBlank() bool {
	return l.objective.IsEmpty() &&
		!l.distribution.IsSet() &&
		strings.TrimSpace(l.deliverable) == "" &&
		!l.target.IsSet()
}

func (l Line) targetWithinBound() bool {
	if l.distribution.IsZero() {
		return true
	}
	return l.target.Decimal().LessThanOrEqual(l.distribution.Decimal())
}

func (l *Line) setError(f Field, err *FieldError) {
	if l.errs == nil {
		l.errs = make(map[Field]*FieldError)
	}
	l.errs[f] = err
}

func (l *Line) clearError(f Field) {
	delete(l.errs, f)
}

func (l Line) clone() Line {
	out := l
	if l.errs != nil {
		out.errs = make(map[Field]*FieldError, len(l.errs))
		for k, v := range l.errs {
			cp := *v
			out.errs[k] = &cp
		}
	}
	return out
}
