package allocation

// FromExternalRecord builds a set from persisted entries. Objective ids are
// labelled through the resolver when it can; otherwise they stay unresolved
// and the caller is expected to reconcile once the catalog is available.
// An empty input yields a single blank line.
func FromExternalRecord(entries []Entry, resolver Resolver) *Set {
	if len(entries) == 0 {
		return New()
	}
	s := &Set{lines: make([]Line, 0, len(entries))}
	for _, e := range entries {
		l := Line{
			objective:    ObjectiveByID(e.ObjectiveID).withLabel(resolver),
			distribution: percentFromNull(e.DistributionPercentage),
			deliverable:  e.Deliverable,
			target:       percentFromNull(e.TargetPercentage),
		}
		if l.distribution.IsZero() {
			l.target = Percent{}
		}
		s.lines = append(s.lines, l)
	}
	return s
}

// ToPayload serializes the set in order. Id-based references are emitted
// as they are; names the resolver cannot map produce a nil objective id.
// Unset percentages become 0.
func (s *Set) ToPayload(resolver Resolver) []PayloadLine {
	out := make([]PayloadLine, 0, len(s.lines))
	for _, l := range s.lines {
		p := PayloadLine{
			DistributionPercentage: l.distribution.Float64(),
			Deliverable:            l.deliverable,
			TargetPercentage:       l.target.Float64(),
		}
		if id, ok := l.objective.resolveID(resolver); ok {
			p.ObjectiveID = &id
		}
		out = append(out, p)
	}
	return out
}
