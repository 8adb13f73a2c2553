package allocation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

var (
	// AddLineCeiling blocks new lines once the running total reaches it.
	AddLineCeiling = decimal.RequireFromString("99.9")
	// BalanceLow and BalanceHigh bound the total accepted for submission.
	BalanceLow  = decimal.RequireFromString("99.99")
	BalanceHigh = decimal.RequireFromString("100.01")
)

// Resolver looks objectives up by identifier or display name.
// Implementations return false for unknown entries and before they are loaded.
type Resolver interface {
	ResolveByID(id objective.ID) (objective.Objective, bool)
	ResolveByName(name string) (objective.ID, bool)
}

// Set is the ordered KPI allocation of one position. It is never empty.
type Set struct {
	lines []Line
}

// New returns a set holding a single blank line.
func New() *Set {
	return &Set{lines: []Line{{}}}
}

func (s *Set) Len() int {
	return len(s.lines)
}

// Lines returns a copy of the lines in presentation order.
func (s *Set) Lines() []Line {
	out := make([]Line, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.clone()
	}
	return out
}

func (s *Set) Line(i int) (Line, bool) {
	if i < 0 || i >= len(s.lines) {
		return Line{}, false
	}
	return s.lines[i].clone(), true
}

func (s *Set) Clone() *Set {
	return &Set{lines: s.Lines()}
}

// CanAddLine reports whether the running total leaves room for another line.
func (s *Set) CanAddLine() bool {
	return s.TotalDistribution().LessThan(AddLineCeiling)
}

// AddLine appends a blank line. It is a no-op once the total reaches the ceiling.
func (s *Set) AddLine() bool {
	if !s.CanAddLine() {
		return false
	}
	s.lines = append(s.lines, Line{})
	return true
}

func (s *Set) CanRemoveLine() bool {
	return len(s.lines) > 1
}

// RemoveLine drops line i. The last remaining line is never removed.
func (s *Set) RemoveLine(i int) bool {
	if !s.CanRemoveLine() || i < 0 || i >= len(s.lines) {
		return false
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	return true
}

func (s *Set) line(i int) (*Line, error) {
	if i < 0 || i >= len(s.lines) {
		return nil, ErrLineOutOfRange
	}
	return &s.lines[i], nil
}

// SetDistribution parses raw into the line distribution. A malformed value
// leaves the previous one in place and attaches a field error. A zero or
// empty distribution clears the line target.
func (s *Set) SetDistribution(i int, raw string) error {
	l, err := s.line(i)
	if err != nil {
		return err
	}
	p, err := ParsePercent(raw)
	if err != nil {
		fe := newFieldError(i, FieldDistribution, codeForPercentError(err), err)
		l.setError(FieldDistribution, fe)
		return fe
	}
	l.distribution = p
	l.clearError(FieldDistribution)
	if p.IsZero() {
		l.target = Percent{}
		l.clearError(FieldTarget)
		return nil
	}
	s.checkTargetBound(i)
	return nil
}

// SetTarget parses raw into the line target. The value is rejected while the
// distribution is zero or when it exceeds the distribution; the previous
// target is kept in both cases.
func (s *Set) SetTarget(i int, raw string) error {
	l, err := s.line(i)
	if err != nil {
		return err
	}
	p, err := ParsePercent(raw)
	if err != nil {
		fe := newFieldError(i, FieldTarget, codeForPercentError(err), err)
		l.setError(FieldTarget, fe)
		return fe
	}
	if !p.IsSet() {
		l.target = p
		l.clearError(FieldTarget)
		return nil
	}
	if l.distribution.IsZero() {
		fe := newFieldError(i, FieldTarget, CodeTargetBlocked, ErrTargetBlocked)
		l.setError(FieldTarget, fe)
		return fe
	}
	if p.Decimal().GreaterThan(l.distribution.Decimal()) {
		fe := newFieldError(i, FieldTarget, CodeTargetExceeds, ErrTargetExceedsDistribution)
		l.setError(FieldTarget, fe)
		return fe
	}
	l.target = p
	l.clearError(FieldTarget)
	return nil
}

// checkTargetBound flags a target left above a lowered distribution and
// drops bound errors that no longer apply.
func (s *Set) checkTargetBound(i int) {
	l := &s.lines[i]
	if l.targetWithinBound() {
		if fe := l.FieldError(FieldTarget); fe != nil && (fe.Code == CodeTargetExceeds || fe.Code == CodeTargetBlocked) {
			l.clearError(FieldTarget)
		}
		return
	}
	l.setError(FieldTarget, newFieldError(i, FieldTarget, CodeTargetExceeds, ErrTargetExceedsDistribution))
}

func (s *Set) SetObjective(i int, ref ObjectiveRef) error {
	l, err := s.line(i)
	if err != nil {
		return err
	}
	l.objective = ref
	l.clearError(FieldObjective)
	return nil
}

func (s *Set) SetDeliverable(i int, text string) error {
	l, err := s.line(i)
	if err != nil {
		return err
	}
	l.deliverable = text
	l.clearError(FieldDeliverable)
	return nil
}

// TotalDistribution sums every distribution, treating unset as zero.
func (s *Set) TotalDistribution() decimal.Decimal {
	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.distribution.Decimal())
	}
	return total
}

func (s *Set) IsDistributionBalanced() bool {
	total := s.TotalDistribution()
	return total.GreaterThanOrEqual(BalanceLow) && total.LessThanOrEqual(BalanceHigh)
}

// HasValidTargets checks target <= distribution on every line with a
// non-zero distribution. The comparison is exact.
func (s *Set) HasValidTargets() bool {
	for _, l := range s.lines {
		if !l.targetWithinBound() {
			return false
		}
	}
	return true
}

func (s *Set) IsSubmittable() bool {
	return len(s.Validate()) == 0
}

// Validate collects every problem blocking submission: pending field errors,
// required fields, out-of-domain values and the cross-line invariants.
func (s *Set) Validate() ValidationErrors {
	var errs ValidationErrors
	for i, l := range s.lines {
		errs = append(errs, l.validate(i)...)
	}
	if !s.IsDistributionBalanced() {
		errs = append(errs, &FieldError{
			Line:    -1,
			Field:   FieldDistribution,
			Code:    CodeUnbalanced,
			Message: ErrDistributionUnbalanced.Error() + " (currently " + s.TotalDistribution().StringFixed(PercentScale) + "%)",
			cause:   ErrDistributionUnbalanced,
		})
	}
	if !s.HasValidTargets() {
		errs = append(errs, &FieldError{
			Line:    -1,
			Field:   FieldTarget,
			Code:    CodeTargetExceeds,
			Message: "every target must be within its own distribution",
			cause:   ErrTargetExceedsDistribution,
		})
	}
	return errs
}

func (l Line) validate(i int) ValidationErrors {
	var errs ValidationErrors
	pending := func(f Field) bool {
		fe := l.FieldError(f)
		if fe == nil {
			return false
		}
		cp := *fe
		cp.Line = i
		errs = append(errs, &cp)
		return true
	}
	required := func(f Field, missing bool) {
		if pending(f) || !missing {
			return
		}
		errs = append(errs, newFieldError(i, f, CodeRequired, ErrRequired))
	}

	required(FieldObjective, l.objective.IsEmpty())
	required(FieldDistribution, !l.distribution.IsSet())
	if l.FieldError(FieldDistribution) == nil {
		if err := l.distribution.checkDomain(); err != nil {
			errs = append(errs, newFieldError(i, FieldDistribution, CodeOutOfRange, err))
		}
	}
	required(FieldDeliverable, strings.TrimSpace(l.deliverable) == "")
	// A zero distribution locks the target, so it is not required there.
	required(FieldTarget, !l.target.IsSet() && !(l.distribution.IsSet() && l.distribution.IsZero()))
	if l.FieldError(FieldTarget) == nil {
		if err := l.target.checkDomain(); err != nil {
			errs = append(errs, newFieldError(i, FieldTarget, CodeOutOfRange, err))
		} else if !l.targetWithinBound() {
			errs = append(errs, newFieldError(i, FieldTarget, CodeTargetExceeds, ErrTargetExceedsDistribution))
		}
	}
	return errs
}

// ResolveObjectiveLabels refreshes display names of id-based references and
// turns resolvable names into ids. No other field is touched.
func (s *Set) ResolveObjectiveLabels(resolver Resolver) {
	for i := range s.lines {
		s.lines[i].objective = s.lines[i].objective.withLabel(resolver)
	}
}

// Equal compares entered values line by line. Derived labels and attached
// field errors are ignored.
func (s *Set) Equal(o *Set) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.lines) != len(o.lines) {
		return false
	}
	for i := range s.lines {
		a, b := s.lines[i], o.lines[i]
		if a.objective.kind != b.objective.kind || a.objective.value != b.objective.value ||
			!a.distribution.Equal(b.distribution) || !a.target.Equal(b.target) ||
			a.deliverable != b.deliverable {
			return false
		}
	}
	return true
}
