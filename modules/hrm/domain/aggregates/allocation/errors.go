package allocation

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	ErrLineOutOfRange            = errors.New("kpi line index out of range")
	ErrTargetBlocked             = errors.New("target cannot be set while distribution is zero")
	ErrTargetExceedsDistribution = errors.New("target exceeds the line distribution")
	ErrRequired                  = errors.New("field is required")
	ErrDistributionUnbalanced    = errors.New("total distribution must be 100%")
)

// Field names a KPI line attribute. Values match the persisted keys.
type Field string

const (
	FieldObjective    Field = "objective_id"
	FieldDistribution Field = "distribution_percentage"
	FieldDeliverable  Field = "deliverable"
	FieldTarget       Field = "target_percentage"
)

// Error codes surfaced to API clients and the host UI.
const (
	CodeRequired            = "required"
	CodeInvalidNumber       = "invalid_number"
	CodeOutOfRange          = "out_of_range"
	CodeTargetBlocked       = "target_blocked"
	CodeTargetExceeds       = "target_exceeds_distribution"
	CodeUnbalanced          = "distribution_unbalanced"
	CodeUnresolvedObjective = "unresolved_objective"
)

// FieldError is a problem with a single field of a single line.
// Line is -1 for set-level problems.
type FieldError struct {
	Line    int
	Field   Field
	Code    string
	Message string
	cause   error
}

func (e *FieldError) Error() string {
	if e.Line < 0 {
		return e.Message
	}
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line+1, e.Message)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line+1, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.cause
}

func newFieldError(line int, field Field, code string, cause error) *FieldError {
	return &FieldError{
		Line:    line,
		Field:   field,
		Code:    code,
		Message: cause.Error(),
		cause:   cause,
	}
}

func codeForPercentError(err error) string {
	switch {
	case errors.Is(err, ErrNegativePercent), errors.Is(err, ErrPercentOutOfRange):
		return CodeOutOfRange
	default:
		return CodeInvalidNumber
	}
}

// ValidationErrors aggregates every problem blocking submission.
type ValidationErrors []*FieldError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Is lets errors.Is match any contained cause.
func (errs ValidationErrors) Is(target error) bool {
	for _, e := range errs {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

// SetLevel returns the cross-line problems only.
func (errs ValidationErrors) SetLevel() ValidationErrors {
	var out ValidationErrors
	for _, e := range errs {
		if e.Line < 0 {
			out = append(out, e)
		}
	}
	return out
}

// ForLine returns the problems attached to line i.
func (errs ValidationErrors) ForLine(i int) ValidationErrors {
	var out ValidationErrors
	for _, e := range errs {
		if e.Line == i {
			out = append(out, e)
		}
	}
	return out
}
