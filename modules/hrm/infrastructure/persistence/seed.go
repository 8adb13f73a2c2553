package persistence

import (
	"context"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

// FileLine is one KPI line as written by hand in YAML files. Percentages are
// kept as raw text so that they go through the same parsing as user input.
type FileLine struct {
	ObjectiveID  objective.ID `yaml:"objective_id,omitempty"`
	Objective    string       `yaml:"objective,omitempty"`
	Distribution string       `yaml:"distribution"`
	Deliverable  string       `yaml:"deliverable"`
	Target       string       `yaml:"target"`
}

// Ref returns the objective reference of the line, preferring the id.
func (l FileLine) Ref() allocation.ObjectiveRef {
	if !l.ObjectiveID.IsZero() {
		return allocation.ObjectiveByID(l.ObjectiveID)
	}
	return allocation.ObjectiveByName(l.Objective)
}

type PositionSeed struct {
	PositionID int64      `yaml:"position_id"`
	Kpis       []FileLine `yaml:"kpis"`
}

// Seed is the YAML document used for in-memory storage and offline tooling.
type Seed struct {
	Objectives []objective.Objective `yaml:"objectives"`
	Positions  []PositionSeed        `yaml:"positions"`
}

func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse seed")
	}
	for i := range s.Objectives {
		s.Objectives[i].ID = objective.ID(strings.TrimSpace(s.Objectives[i].ID.String()))
	}
	return &s, nil
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed")
	}
	return ParseSeed(data)
}

// ObjectiveWriter is implemented by both objective repositories.
type ObjectiveWriter interface {
	Upsert(ctx context.Context, objs []objective.Objective) error
}

// Apply writes the seed through the given repositories; either may be nil.
// Name-based lines are mapped through the seed objectives.
func (s *Seed) Apply(ctx context.Context, objs ObjectiveWriter, kpis allocation.Repository) error {
	if objs != nil && len(s.Objectives) > 0 {
		if err := objs.Upsert(ctx, s.Objectives); err != nil {
			return errors.Wrap(err, "seed objectives")
		}
	}
	if kpis == nil {
		return nil
	}
	byName := make(map[string]objective.ID, len(s.Objectives))
	for _, o := range s.Objectives {
		byName[strings.ToLower(strings.TrimSpace(o.Name))] = o.ID
	}
	for _, p := range s.Positions {
		entries := make([]allocation.Entry, 0, len(p.Kpis))
		for i, l := range p.Kpis {
			e, err := l.entry(byName)
			if err != nil {
				return errors.Wrapf(err, "position %d line %d", p.PositionID, i+1)
			}
			entries = append(entries, e)
		}
		if err := kpis.Replace(ctx, p.PositionID, entries); err != nil {
			return err
		}
	}
	return nil
}

func (l FileLine) entry(byName map[string]objective.ID) (allocation.Entry, error) {
	e := allocation.Entry{ObjectiveID: l.ObjectiveID, Deliverable: l.Deliverable}
	if e.ObjectiveID.IsZero() && l.Objective != "" {
		id, ok := byName[strings.ToLower(strings.TrimSpace(l.Objective))]
		if !ok {
			return e, errors.Errorf("unknown objective %q", l.Objective)
		}
		e.ObjectiveID = id
	}
	var err error
	if e.DistributionPercentage, err = parseNullDecimal(l.Distribution); err != nil {
		return e, errors.Wrap(err, "distribution")
	}
	if e.TargetPercentage, err = parseNullDecimal(l.Target); err != nil {
		return e, errors.Wrap(err, "target")
	}
	return e, nil
}

func parseNullDecimal(raw string) (decimal.NullDecimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// FileLinesFromEntries is the inverse used when writing YAML files.
func FileLinesFromEntries(entries []allocation.Entry) []FileLine {
	out := make([]FileLine, 0, len(entries))
	for _, e := range entries {
		l := FileLine{ObjectiveID: e.ObjectiveID, Deliverable: e.Deliverable}
		if e.DistributionPercentage.Valid {
			l.Distribution = e.DistributionPercentage.Decimal.String()
		}
		if e.TargetPercentage.Valid {
			l.Target = e.TargetPercentage.Decimal.String()
		}
		out = append(out, l)
	}
	return out
}
