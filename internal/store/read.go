package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	m "mewt.dev/pkg/mewt/internal/model"
)

// Filter narrows mutant and result listings. Zero values mean "no filter".
type Filter struct {
	Target   string // file, directory, or glob pattern against target paths
	Status   string // already normalized via model.ParseStatus
	Language string
	Slug     string
	Line     int
	File     string // substring match on path
	Tested   bool
	Untested bool
	ID       int64
}

// Result pairs a mutant with its target and outcome for listings.
type Result struct {
	Mutant  m.Mutant
	Target  m.Target
	Outcome m.Outcome
}

// matchTargetIDs resolves a --target pattern against current targets.
// Returns nil (no filter) when the pattern is empty.
func (s *Store) matchTargetIDs(pattern string) ([]int64, error) {
	if pattern == "" {
		return nil, nil
	}

	targets, err := s.CurrentTargets()
	if err != nil {
		return nil, err
	}

	ids := []int64{}

	info, statErr := os.Stat(pattern)

	for _, t := range targets {
		path := string(t.Path)

		switch {
		case statErr == nil && !info.IsDir():
			if samePath(path, pattern) {
				ids = append(ids, t.ID)
			}
		case statErr == nil && info.IsDir():
			if strings.HasPrefix(path, strings.TrimSuffix(pattern, "/")+string(filepath.Separator)) {
				ids = append(ids, t.ID)
			}
		default:
			if ok, err := doublestar.Match(pattern, path); err == nil && ok {
				ids = append(ids, t.ID)
			}
		}
	}

	return ids, nil
}

func samePath(a, b string) bool {
	aa, errA := filepath.Abs(a)
	bb, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return aa == bb
}

// MutantsFiltered lists mutants with their targets, restricted to current
// targets and the provided filter. Order is (path, line, start, slug).
func (s *Store) MutantsFiltered(f Filter) ([]Result, error) {
	targetIDs, err := s.matchTargetIDs(f.Target)
	if err != nil {
		return nil, err
	}
	if targetIDs != nil && len(targetIDs) == 0 {
		return []Result{}, nil
	}

	var b strings.Builder
	var args []any

	b.WriteString(`
		SELECT ` + prefixed("mu", mutantColumns) + `, ` + prefixed("t", targetColumns) + `
		FROM mutations mu
		JOIN targets t ON mu.target_id = t.id
		WHERE t.id IN (SELECT MAX(id) FROM targets GROUP BY path)`)

	if f.Tested && !f.Untested {
		b.WriteString(` AND EXISTS (SELECT 1 FROM outcomes o WHERE o.mutation_id = mu.id)`)
	} else if f.Untested && !f.Tested {
		b.WriteString(` AND NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.mutation_id = mu.id)`)
	}

	appendIDFilter(&b, &args, targetIDs)
	appendCommonFilters(&b, &args, f)

	b.WriteString(` ORDER BY t.path, mu.line, mu.start_byte, mu.slug`)

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list filtered mutants: %w", err)
	}
	defer rows.Close()

	var results []Result

	for rows.Next() {
		var r Result
		var path string

		err := rows.Scan(
			&r.Mutant.ID, &r.Mutant.TargetID, &r.Mutant.Slug, &r.Mutant.Start, &r.Mutant.End,
			&r.Mutant.Replacement, &r.Mutant.Line, &r.Mutant.Snippet,
			&r.Target.ID, &path, &r.Target.FileHash, &r.Target.Text, &r.Target.Language)
		if err != nil {
			return nil, fmt.Errorf("scan filtered mutant: %w", err)
		}

		r.Target.Path = m.Path(path)
		results = append(results, r)
	}

	return results, rows.Err()
}

// ResultsFiltered lists outcomes joined with mutants and targets,
// restricted to current targets and the provided filter.
func (s *Store) ResultsFiltered(f Filter) ([]Result, error) {
	targetIDs, err := s.matchTargetIDs(f.Target)
	if err != nil {
		return nil, err
	}
	if targetIDs != nil && len(targetIDs) == 0 {
		return []Result{}, nil
	}

	var b strings.Builder
	var args []any

	b.WriteString(`
		SELECT ` + prefixed("mu", mutantColumns) + `, ` + prefixed("t", targetColumns) + `,
		       o.status, o.output, o.elapsed_ms, o.started_at
		FROM mutations mu
		JOIN targets t ON mu.target_id = t.id
		JOIN outcomes o ON o.mutation_id = mu.id
		WHERE t.id IN (SELECT MAX(id) FROM targets GROUP BY path)`)

	if f.ID != 0 {
		b.WriteString(` AND mu.id = ?`)
		args = append(args, f.ID)
	}

	if f.Status != "" {
		b.WriteString(` AND o.status = ?`)
		args = append(args, f.Status)
	}

	appendIDFilter(&b, &args, targetIDs)
	appendCommonFilters(&b, &args, f)

	b.WriteString(` ORDER BY t.path, mu.line, mu.start_byte, mu.slug`)

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []Result

	for rows.Next() {
		var r Result
		var path, status, startedAt string

		err := rows.Scan(
			&r.Mutant.ID, &r.Mutant.TargetID, &r.Mutant.Slug, &r.Mutant.Start, &r.Mutant.End,
			&r.Mutant.Replacement, &r.Mutant.Line, &r.Mutant.Snippet,
			&r.Target.ID, &path, &r.Target.FileHash, &r.Target.Text, &r.Target.Language,
			&status, &r.Outcome.Output, &r.Outcome.ElapsedMS, &startedAt)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		r.Target.Path = m.Path(path)
		r.Outcome.MutationID = r.Mutant.ID
		r.Outcome.Status = m.Status(status)

		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.Outcome.StartedAt = t
		}

		results = append(results, r)
	}

	return results, rows.Err()
}

func appendIDFilter(b *strings.Builder, args *[]any, targetIDs []int64) {
	if targetIDs == nil {
		return
	}

	b.WriteString(` AND t.id IN (`)

	for i, id := range targetIDs {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString("?")
		*args = append(*args, id)
	}

	b.WriteString(`)`)
}

func appendCommonFilters(b *strings.Builder, args *[]any, f Filter) {
	if f.Language != "" {
		b.WriteString(` AND t.language = ? COLLATE NOCASE`)
		*args = append(*args, f.Language)
	}

	if f.Slug != "" {
		b.WriteString(` AND mu.slug = ?`)
		*args = append(*args, f.Slug)
	}

	if f.Line != 0 {
		b.WriteString(` AND mu.line = ?`)
		*args = append(*args, f.Line)
	}

	if f.File != "" {
		b.WriteString(` AND instr(t.path, ?) > 0`)
		*args = append(*args, f.File)
	}
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}

	return strings.Join(parts, ", ")
}

// Summary aggregates outcome counts across current targets. Timeouts are
// inconclusive and excluded from the tested tally.
type Summary struct {
	Targets  int
	Mutants  int
	Tested   int
	Caught   int
	Uncaught int
	Skipped  int
	Timeout  int
}

// GetSummary computes the campaign-wide summary.
func (s *Store) GetSummary() (Summary, error) {
	var sum Summary

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM targets WHERE id IN (SELECT MAX(id) FROM targets GROUP BY path)`,
	).Scan(&sum.Targets)
	if err != nil {
		return Summary{}, fmt.Errorf("count targets: %w", err)
	}

	err = s.db.QueryRow(
		`SELECT COUNT(*) FROM mutations mu
		 WHERE mu.target_id IN (SELECT MAX(id) FROM targets GROUP BY path)`,
	).Scan(&sum.Mutants)
	if err != nil {
		return Summary{}, fmt.Errorf("count mutants: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT o.status, COUNT(*) FROM outcomes o
		 JOIN mutations mu ON mu.id = o.mutation_id
		 WHERE mu.target_id IN (SELECT MAX(id) FROM targets GROUP BY path)
		 GROUP BY o.status`)
	if err != nil {
		return Summary{}, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan outcome count: %w", err)
		}

		switch m.Status(status) {
		case m.StatusTestFail:
			sum.Caught += count
		case m.StatusUncaught:
			sum.Uncaught += count
		case m.StatusSkipped:
			sum.Skipped += count
		case m.StatusTimeout:
			sum.Timeout += count
		}
	}

	sum.Tested = sum.Caught + sum.Uncaught

	return sum, rows.Err()
}

// SlugStats maps mutation slug to (eligible, caught) counts for conclusive
// outcomes of one target, or campaign-wide when targetID is 0.
func (s *Store) SlugStats(targetID int64) (map[string][2]int, error) {
	query := `SELECT mu.slug, o.status FROM mutations mu
		 JOIN outcomes o ON o.mutation_id = mu.id
		 WHERE mu.target_id IN (SELECT MAX(id) FROM targets GROUP BY path)
		   AND o.status IN (?, ?)`
	args := []any{string(m.StatusTestFail), string(m.StatusUncaught)}

	if targetID != 0 {
		query += ` AND mu.target_id = ?`
		args = append(args, targetID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("slug stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string][2]int)

	for rows.Next() {
		var slug, status string

		if err := rows.Scan(&slug, &status); err != nil {
			return nil, fmt.Errorf("scan slug stat: %w", err)
		}

		entry := stats[slug]
		entry[0]++

		if m.Status(status) == m.StatusTestFail {
			entry[1]++
		}

		stats[slug] = entry
	}

	return stats, rows.Err()
}

// TargetStats aggregates outcome counts for one target.
type TargetStats struct {
	Mutants  int
	Tested   int
	Untested int
	Caught   int
	Uncaught int
	Skipped  int
	Timeout  int
}

// GetTargetStats computes per-target counters.
func (s *Store) GetTargetStats(targetID int64) (TargetStats, error) {
	var st TargetStats

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM mutations WHERE target_id = ?`, targetID,
	).Scan(&st.Mutants)
	if err != nil {
		return TargetStats{}, fmt.Errorf("count target mutants: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT o.status, COUNT(*) FROM outcomes o
		 JOIN mutations mu ON mu.id = o.mutation_id
		 WHERE mu.target_id = ? GROUP BY o.status`, targetID)
	if err != nil {
		return TargetStats{}, fmt.Errorf("count target outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int

		if err := rows.Scan(&status, &count); err != nil {
			return TargetStats{}, fmt.Errorf("scan target outcome count: %w", err)
		}

		switch m.Status(status) {
		case m.StatusTestFail:
			st.Caught += count
		case m.StatusUncaught:
			st.Uncaught += count
		case m.StatusSkipped:
			st.Skipped += count
		case m.StatusTimeout:
			st.Timeout += count
		}
	}

	if err := rows.Err(); err != nil {
		return TargetStats{}, err
	}

	st.Tested = st.Caught + st.Uncaught
	st.Untested = st.Mutants - st.Tested - st.Skipped - st.Timeout

	return st, nil
}
