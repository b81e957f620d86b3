package campaign

import m "mewt.dev/pkg/mewt/internal/model"

type lineKey struct {
	targetID int64
	line     int
}

// SkipPlanner implements the per-line severity gate. Once a mutant on a
// line is Uncaught, every later mutant on that line with equal or lower
// severity is redundant: the line is definitionally untested and finer
// edits cannot be caught either. Comprehensive mode disables the gate.
type SkipPlanner struct {
	comprehensive bool
	severity      func(slug string) int
	uncaught      map[lineKey]int // max uncaught severity per line
}

// NewSkipPlanner builds a planner consulting the given catalog severity
// function.
func NewSkipPlanner(comprehensive bool, severity func(slug string) int) *SkipPlanner {
	return &SkipPlanner{
		comprehensive: comprehensive,
		severity:      severity,
		uncaught:      make(map[lineKey]int),
	}
}

// Seed re-derives planner state from stored Uncaught mutants on resume.
func (p *SkipPlanner) Seed(mutants []m.Mutant) {
	for _, mu := range mutants {
		p.RecordUncaught(mu)
	}
}

// ShouldSkip reports whether the mutant is provably redundant.
func (p *SkipPlanner) ShouldSkip(mu m.Mutant) bool {
	if p.comprehensive {
		return false
	}

	max, ok := p.uncaught[lineKey{mu.TargetID, mu.Line}]
	if !ok {
		return false
	}

	return p.severity(mu.Slug) <= max
}

// RecordUncaught marks the mutant's line uncaught at its severity.
func (p *SkipPlanner) RecordUncaught(mu m.Mutant) {
	key := lineKey{mu.TargetID, mu.Line}

	sev := p.severity(mu.Slug)
	if cur, ok := p.uncaught[key]; !ok || sev > cur {
		p.uncaught[key] = sev
	}
}
