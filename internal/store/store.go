// Package store provides the single-file transactional campaign store.
// SQLite is the embedded engine; every write happens inside a transaction
// on a single connection.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	m "mewt.dev/pkg/mewt/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - pre-migration databases
// 1 - initial schema
const currentSchemaVersion = 1

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// Store wraps the campaign database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the campaign database at path. WAL mode keeps
// reads concurrent with the single writer; the connection pool is pinned
// to one connection so all writes serialize without SQLITE_BUSY churn.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Migrations are ordered and append-only; each bumps user_version.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}

// AddTarget upserts a target keyed by (path, hash) and returns its id.
// A hash-only match with a different path is treated as a moved file and
// the row's path is updated in place.
func (s *Store) AddTarget(t m.Target) (int64, error) {
	var id int64

	err := s.db.QueryRow(
		`SELECT id FROM targets WHERE path = ? AND file_hash = ?`,
		string(t.Path), t.FileHash,
	).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("lookup target: %w", err)
	}

	var movedID int64
	var movedPath string

	err = s.db.QueryRow(
		`SELECT id, path FROM targets WHERE file_hash = ?`, t.FileHash,
	).Scan(&movedID, &movedPath)

	switch {
	case err == nil:
		// A move, not a copy: only adopt the row when the old path is
		// actually gone, so two identical files keep separate rows.
		if _, statErr := os.Stat(movedPath); os.IsNotExist(statErr) {
			if _, err := s.db.Exec(`UPDATE targets SET path = ? WHERE id = ?`, string(t.Path), movedID); err != nil {
				return 0, fmt.Errorf("update moved target: %w", err)
			}

			return movedID, nil
		}
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup target by hash: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO targets (path, file_hash, text, language, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(t.Path), t.FileHash, t.Text, t.Language, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert target: %w", err)
	}

	return res.LastInsertId()
}

const targetColumns = "id, path, file_hash, text, language"

func scanTarget(row interface{ Scan(...any) error }) (m.Target, error) {
	var t m.Target
	var path string

	if err := row.Scan(&t.ID, &path, &t.FileHash, &t.Text, &t.Language); err != nil {
		return m.Target{}, err
	}

	t.Path = m.Path(path)

	return t, nil
}

// GetTarget fetches one target by id.
func (s *Store) GetTarget(id int64) (m.Target, error) {
	t, err := scanTarget(s.db.QueryRow(
		`SELECT `+targetColumns+` FROM targets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return m.Target{}, fmt.Errorf("target %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return m.Target{}, fmt.Errorf("get target %d: %w", id, err)
	}

	return t, nil
}

// CurrentTargets returns the newest row per path, path-sorted. Superseded
// rows stay in the table until clean/purge but never count here.
func (s *Store) CurrentTargets() ([]m.Target, error) {
	rows, err := s.db.Query(
		`SELECT ` + targetColumns + ` FROM targets
		 WHERE id IN (SELECT MAX(id) FROM targets GROUP BY path)
		 ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	return collectTargets(rows)
}

// AllTargets returns every stored target row, including superseded ones.
func (s *Store) AllTargets() ([]m.Target, error) {
	rows, err := s.db.Query(`SELECT ` + targetColumns + ` FROM targets ORDER BY path, id`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	return collectTargets(rows)
}

func collectTargets(rows *sql.Rows) ([]m.Target, error) {
	var targets []m.Target

	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}

		targets = append(targets, t)
	}

	return targets, rows.Err()
}

// RemoveTarget deletes one target row; mutants and outcomes cascade.
func (s *Store) RemoveTarget(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM targets WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove target %d: %w", id, err)
	}

	return nil
}

// Clean deletes superseded target rows and returns how many went away.
func (s *Store) Clean() (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM targets WHERE id NOT IN (SELECT MAX(id) FROM targets GROUP BY path)`)
	if err != nil {
		return 0, fmt.Errorf("clean targets: %w", err)
	}

	return res.RowsAffected()
}

// ReplaceMutants atomically swaps the mutant set of one target: prior rows
// are deleted and the new batch inserted in a single transaction. Inserted
// ids are written back into the slice.
func (s *Store) ReplaceMutants(targetID int64, mutants []m.Mutant) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin mutant batch: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM mutations WHERE target_id = ?`, targetID); err != nil {
		return fmt.Errorf("delete prior mutants: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO mutations (target_id, slug, start_byte, end_byte, replacement, line, snippet)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare mutant insert: %w", err)
	}
	defer stmt.Close()

	for i := range mutants {
		mutants[i].TargetID = targetID

		res, err := stmt.Exec(targetID, mutants[i].Slug, mutants[i].Start, mutants[i].End,
			mutants[i].Replacement, mutants[i].Line, mutants[i].Snippet)
		if err != nil {
			return fmt.Errorf("insert mutant: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("mutant id: %w", err)
		}

		mutants[i].ID = id
	}

	return tx.Commit()
}

const mutantColumns = "id, target_id, slug, start_byte, end_byte, replacement, line, snippet"

func scanMutant(row interface{ Scan(...any) error }) (m.Mutant, error) {
	var mu m.Mutant

	err := row.Scan(&mu.ID, &mu.TargetID, &mu.Slug, &mu.Start, &mu.End,
		&mu.Replacement, &mu.Line, &mu.Snippet)

	return mu, err
}

// GetMutant fetches one mutant by id.
func (s *Store) GetMutant(id int64) (m.Mutant, error) {
	mu, err := scanMutant(s.db.QueryRow(
		`SELECT `+mutantColumns+` FROM mutations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return m.Mutant{}, fmt.Errorf("mutant %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return m.Mutant{}, fmt.Errorf("get mutant %d: %w", id, err)
	}

	return mu, nil
}

// MutantsFor returns all mutants of one target in (line, start, slug)
// order.
func (s *Store) MutantsFor(targetID int64) ([]m.Mutant, error) {
	rows, err := s.db.Query(
		`SELECT `+mutantColumns+` FROM mutations WHERE target_id = ?
		 ORDER BY line, start_byte, slug`, targetID)
	if err != nil {
		return nil, fmt.Errorf("list mutants: %w", err)
	}
	defer rows.Close()

	return collectMutants(rows)
}

// PendingMutants returns mutants of one target lacking an outcome, plus
// (appended after them) mutants whose stored outcome is Timeout and
// deserves a re-test. The runner re-sorts the combined list into its
// (line, severity, slug) run order. With includeSkipped, planner-skipped
// mutants are re-queued too; comprehensive runs use this to give every
// mutant a real test.
func (s *Store) PendingMutants(targetID int64, includeSkipped bool) ([]m.Mutant, error) {
	rows, err := s.db.Query(
		`SELECT `+mutantColumns+` FROM mutations m
		 WHERE m.target_id = ? AND NOT EXISTS (SELECT 1 FROM outcomes o WHERE o.mutation_id = m.id)
		 ORDER BY line, start_byte, slug`, targetID)
	if err != nil {
		return nil, fmt.Errorf("list pending mutants: %w", err)
	}
	defer rows.Close()

	pending, err := collectMutants(rows)
	if err != nil {
		return nil, err
	}

	statuses := []any{targetID, string(m.StatusTimeout)}
	condition := `o.status = ?`

	if includeSkipped {
		condition = `o.status IN (?, ?)`
		statuses = append(statuses, string(m.StatusSkipped))
	}

	retest, err := s.db.Query(
		`SELECT `+mutantColumns+` FROM mutations m
		 JOIN outcomes o ON o.mutation_id = m.id
		 WHERE m.target_id = ? AND `+condition+`
		 ORDER BY line, start_byte, slug`, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list timeout mutants: %w", err)
	}
	defer retest.Close()

	timeouts, err := collectMutants(retest)
	if err != nil {
		return nil, err
	}

	return append(pending, timeouts...), nil
}

// UncaughtMutants returns the target's mutants whose outcome is Uncaught.
// The skip planner re-derives its per-line state from this on resume.
func (s *Store) UncaughtMutants(targetID int64) ([]m.Mutant, error) {
	rows, err := s.db.Query(
		`SELECT `+mutantColumns+` FROM mutations m
		 JOIN outcomes o ON o.mutation_id = m.id
		 WHERE m.target_id = ? AND o.status = ?`, targetID, string(m.StatusUncaught))
	if err != nil {
		return nil, fmt.Errorf("list uncaught mutants: %w", err)
	}
	defer rows.Close()

	return collectMutants(rows)
}

func collectMutants(rows *sql.Rows) ([]m.Mutant, error) {
	var mutants []m.Mutant

	for rows.Next() {
		mu, err := scanMutant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mutant: %w", err)
		}

		mutants = append(mutants, mu)
	}

	return mutants, rows.Err()
}

// AddOutcome records the classification of one mutant. The primary key
// keeps outcomes at-most-one per mutation; a Timeout re-test overwrites
// its prior row.
func (s *Store) AddOutcome(o m.Outcome) error {
	_, err := s.db.Exec(
		`INSERT INTO outcomes (mutation_id, status, output, elapsed_ms, started_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (mutation_id) DO UPDATE SET
		   status = excluded.status,
		   output = excluded.output,
		   elapsed_ms = excluded.elapsed_ms,
		   started_at = excluded.started_at`,
		o.MutationID, string(o.Status), o.Output, o.ElapsedMS,
		o.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("add outcome for mutant %d: %w", o.MutationID, err)
	}

	return nil
}

// GetOutcome fetches the outcome for one mutant, or (zero, false) when the
// mutant has none.
func (s *Store) GetOutcome(mutationID int64) (m.Outcome, bool, error) {
	var o m.Outcome
	var status, startedAt string

	err := s.db.QueryRow(
		`SELECT mutation_id, status, output, elapsed_ms, started_at
		 FROM outcomes WHERE mutation_id = ?`, mutationID,
	).Scan(&o.MutationID, &status, &o.Output, &o.ElapsedMS, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m.Outcome{}, false, nil
	}
	if err != nil {
		return m.Outcome{}, false, fmt.Errorf("get outcome for mutant %d: %w", mutationID, err)
	}

	o.Status = m.Status(status)
	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		o.StartedAt = t
	}

	return o, true, nil
}

// SetMeta stores the singleton campaign metadata row.
func (s *Store) SetMeta(baselineMS int64, testCmd string) error {
	_, err := s.db.Exec(
		`INSERT INTO campaign_meta (id, baseline_ms, test_cmd, updated_at)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   baseline_ms = excluded.baseline_ms,
		   test_cmd = excluded.test_cmd,
		   updated_at = excluded.updated_at`,
		baselineMS, testCmd, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("set campaign meta: %w", err)
	}

	return nil
}

// GetMeta reads the campaign metadata row, reporting ok=false when no
// baseline has been recorded yet.
func (s *Store) GetMeta() (baselineMS int64, testCmd string, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT baseline_ms, test_cmd FROM campaign_meta WHERE id = 1`,
	).Scan(&baselineMS, &testCmd)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, fmt.Errorf("get campaign meta: %w", err)
	}

	return baselineMS, testCmd, true, nil
}
