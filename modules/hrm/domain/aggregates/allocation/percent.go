package allocation

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PercentScale is the number of fractional digits kept for every percentage.
const PercentScale = 2

var (
	ErrInvalidPercent    = errors.New("percentage must be a number")
	ErrNegativePercent   = errors.New("percentage must not be negative")
	ErrPercentOutOfRange = errors.New("percentage must not exceed 100")
)

var hundred = decimal.NewFromInt(100)

// Percent is an optional percentage with two fractional digits.
// The zero value is unset.
type Percent struct {
	value decimal.Decimal
	valid bool
}

// NewPercent truncates d to two fractional digits.
func NewPercent(d decimal.Decimal) Percent {
	return Percent{value: d.Truncate(PercentScale), valid: true}
}

// ParsePercent parses user input. Empty input yields an unset Percent.
// Digits beyond the second fractional place are truncated, not rejected.
func ParsePercent(raw string) (Percent, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return Percent{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Percent{}, errors.Wrapf(ErrInvalidPercent, "parse %q", raw)
	}
	p := NewPercent(d)
	if err := p.checkDomain(); err != nil {
		return Percent{}, err
	}
	return p, nil
}

func (p Percent) checkDomain() error {
	if !p.valid {
		return nil
	}
	if p.value.IsNegative() {
		return ErrNegativePercent
	}
	if p.value.GreaterThan(hundred) {
		return ErrPercentOutOfRange
	}
	return nil
}

func (p Percent) IsSet() bool {
	return p.valid
}

// IsZero reports whether p is unset or numerically zero.
func (p Percent) IsZero() bool {
	return !p.valid || p.value.IsZero()
}

// Decimal returns the value, treating unset as zero.
func (p Percent) Decimal() decimal.Decimal {
	if !p.valid {
		return decimal.Zero
	}
	return p.value
}

func (p Percent) Float64() float64 {
	return p.Decimal().InexactFloat64()
}

func (p Percent) Equal(o Percent) bool {
	if p.valid != o.valid {
		return false
	}
	return !p.valid || p.value.Equal(o.value)
}

// String renders an unset value as the empty string.
func (p Percent) String() string {
	if !p.valid {
		return ""
	}
	return p.value.String()
}

func (p Percent) NullDecimal() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: p.value, Valid: p.valid}
}

func percentFromNull(d decimal.NullDecimal) Percent {
	if !d.Valid {
		return Percent{}
	}
	return NewPercent(d.Decimal)
}
