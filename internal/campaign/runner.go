package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mewt.dev/pkg/mewt/internal/language"
	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/store"
)

// Sentinel errors the CLI maps to exit codes.
var (
	// ErrBaselineFailed means the test suite fails on unmutated source.
	ErrBaselineFailed = errors.New("baseline test run failed")
	// ErrInterrupted means the campaign stopped on SIGINT.
	ErrInterrupted = errors.New("campaign interrupted")
	// ErrNoTestCommand means neither config nor flags supplied test.cmd.
	ErrNoTestCommand = errors.New("no test command configured")
)

// minTestTimeout floors the derived timeout for near-instant baselines.
const minTestTimeout = 5 * time.Second

// maxSpawnFailures aborts the campaign after this many consecutive
// failures to start the test command.
const maxSpawnFailures = 3

// Runner drives mutants through pending -> applied -> tested ->
// classified -> restored. Execution is strictly serial per target file;
// the only parallelism is mutant synthesis, which is pure.
type Runner struct {
	store    *store.Store
	registry *language.Registry
	cfg      Config
	exec     Executor
	guard    *restoreGuard
	baseline time.Duration
}

// NewRunner wires a runner. A nil executor gets the shell executor.
func NewRunner(st *store.Store, registry *language.Registry, cfg Config, exec Executor) *Runner {
	if exec == nil {
		exec = &ShellExecutor{}
	}

	return &Runner{
		store:    st,
		registry: registry,
		cfg:      cfg,
		exec:     exec,
		guard:    newRestoreGuard(),
	}
}

// Recover enforces the crash-safety invariant before anything else runs:
// any target file whose on-disk hash diverges from the stored hash is
// rewritten with the stored text. A missing file is rewritten too.
func (r *Runner) Recover() error {
	targets, err := r.store.CurrentTargets()
	if err != nil {
		return err
	}

	for _, t := range targets {
		onDisk, err := os.ReadFile(string(t.Path))
		if err == nil && m.HashText(string(onDisk)) == t.FileHash {
			continue
		}

		slog.Warn("restoring diverged target", "path", t.Path)

		if writeErr := os.WriteFile(string(t.Path), []byte(t.Text), 0o644); writeErr != nil {
			return fmt.Errorf("restore %s: %w", t.Path, writeErr)
		}
	}

	return nil
}

// EmergencyRestore rewrites every applied target immediately. The CLI
// calls it from the second-SIGINT path.
func (r *Runner) EmergencyRestore() {
	r.guard.RestoreAll()
}

// Baseline runs the test command once against the clean tree, records the
// elapsed time in campaign metadata, and fails the campaign when the suite
// is already broken.
func (r *Runner) Baseline(ctx context.Context) error {
	if r.cfg.TestCmd == "" {
		return ErrNoTestCommand
	}

	slog.Info("running baseline", "cmd", r.cfg.TestCmd)

	res := r.exec.Run(ctx, r.cfg.TestCmd, r.cfg.TestTimeout)
	if res.SpawnErr != nil {
		return fmt.Errorf("spawn baseline: %w", res.SpawnErr)
	}

	if res.TimedOut || res.Failed {
		return fmt.Errorf("%w: %s", ErrBaselineFailed, tail(res.Output, 2000))
	}

	r.baseline = res.Elapsed

	slog.Info("baseline passed", "elapsed", res.Elapsed)

	return r.store.SetMeta(res.Elapsed.Milliseconds(), r.cfg.TestCmd)
}

// LoadBaseline restores the baseline duration from campaign metadata, for
// entry points that must not re-run the suite (targeted re-tests).
func (r *Runner) LoadBaseline() error {
	baselineMS, _, ok, err := r.store.GetMeta()
	if err != nil {
		return err
	}

	if ok {
		r.baseline = time.Duration(baselineMS) * time.Millisecond
	}

	return nil
}

// timeoutFor derives the effective timeout for a configured value:
// explicit wins, otherwise max(2 x baseline, 5s).
func (r *Runner) timeoutFor(configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}

	derived := 2 * r.baseline
	if derived < minTestTimeout {
		derived = minTestTimeout
	}

	return derived
}

// Synthesize generates and persists mutants for every target that has
// none (fresh targets and targets superseded by an on-disk edit both
// arrive here without mutant rows). Generation is pure and fans out over
// a bounded group; store writes stay on this goroutine.
func (r *Runner) Synthesize(ctx context.Context, targets []m.Target) (int, error) {
	type job struct {
		index  int
		target m.Target
	}

	var jobs []job

	for i, t := range targets {
		existing, err := r.store.MutantsFor(t.ID)
		if err != nil {
			return 0, err
		}

		if len(existing) == 0 {
			jobs = append(jobs, job{index: i, target: t})
		}
	}

	generated := make([][]m.Mutant, len(targets))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for _, j := range jobs {
		g.Go(func() error {
			engine := r.registry.ByName(j.target.Language)
			if engine == nil {
				return nil
			}

			generated[j.index] = engine.ApplyAll(j.target)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0

	for _, j := range jobs {
		mutants := generated[j.index]

		if err := r.store.ReplaceMutants(j.target.ID, mutants); err != nil {
			return 0, err
		}

		total += len(mutants)

		slog.Info("synthesized mutants", "target", j.target.Display(), "count", len(mutants))
	}

	return total, nil
}

// Execute runs the campaign loop over the targets. On any exit path every
// applied file is restored; an in-flight mutant's partial outcome is never
// persisted.
func (r *Runner) Execute(ctx context.Context, targets []m.Target) (err error) {
	defer r.guard.RestoreAll()

	severity := func(slug string) int {
		return language.SeverityBySlug(language.CommonKinds(), slug)
	}
	planner := NewSkipPlanner(r.cfg.Comprehensive, severity)

	spawnFailures := 0

	for _, target := range targets {
		pending, err := r.store.PendingMutants(target.ID, r.cfg.Comprehensive)
		if err != nil {
			return err
		}

		pending = r.filterEnabled(pending)
		sortForRun(pending, severity)

		uncaught, err := r.store.UncaughtMutants(target.ID)
		if err != nil {
			return err
		}

		planner.Seed(uncaught)

		cmd, configured := r.cfg.ResolveTest(string(target.Path))
		if cmd == "" {
			return ErrNoTestCommand
		}

		timeout := r.timeoutFor(configured)

		for _, mu := range pending {
			if ctx.Err() != nil {
				return ErrInterrupted
			}

			if planner.ShouldSkip(mu) {
				outcome := m.Outcome{
					MutationID: mu.ID,
					Status:     m.StatusSkipped,
					StartedAt:  time.Now(),
				}
				if err := r.store.AddOutcome(outcome); err != nil {
					return err
				}

				slog.Debug("skipped mutant", "mutant", mu.Display(target))

				continue
			}

			res, runErr := r.testMutant(target, mu, cmd, timeout)
			if runErr != nil {
				spawnFailures++
				if spawnFailures >= maxSpawnFailures {
					return fmt.Errorf("aborting after %d consecutive spawn failures: %w", spawnFailures, runErr)
				}

				slog.Error("failed to run mutant, re-queued", "mutant", mu.ID, "error", runErr)

				continue
			}

			spawnFailures = 0

			// An interrupt mid-test must not classify the mutant: it
			// stays outcome-free and re-runs on resume.
			if ctx.Err() != nil {
				return ErrInterrupted
			}

			outcome := m.Outcome{
				MutationID: mu.ID,
				Status:     classify(res),
				Output:     res.Output,
				ElapsedMS:  res.Elapsed.Milliseconds(),
				StartedAt:  time.Now().Add(-res.Elapsed),
			}

			if err := r.store.AddOutcome(outcome); err != nil {
				return err
			}

			if outcome.Status == m.StatusUncaught {
				planner.RecordUncaught(mu)
			}

			slog.Info("classified mutant", "mutant", mu.Display(target), "status", outcome.Status, "elapsed", res.Elapsed)
		}
	}

	return nil
}

// TestMutants re-runs exactly the listed mutant ids, overwriting prior
// outcomes. The skip planner does not participate.
func (r *Runner) TestMutants(ctx context.Context, ids []int64) error {
	defer r.guard.RestoreAll()

	for _, id := range ids {
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		mu, err := r.store.GetMutant(id)
		if err != nil {
			slog.Error("skipping unknown mutant", "id", id, "error", err)
			continue
		}

		target, err := r.store.GetTarget(mu.TargetID)
		if err != nil {
			return err
		}

		cmd, configured := r.cfg.ResolveTest(string(target.Path))
		if cmd == "" {
			return ErrNoTestCommand
		}

		res, runErr := r.testMutant(target, mu, cmd, r.timeoutFor(configured))
		if runErr != nil {
			slog.Error("failed to run mutant", "mutant", mu.ID, "error", runErr)
			continue
		}

		if ctx.Err() != nil {
			return ErrInterrupted
		}

		outcome := m.Outcome{
			MutationID: mu.ID,
			Status:     classify(res),
			Output:     res.Output,
			ElapsedMS:  res.Elapsed.Milliseconds(),
			StartedAt:  time.Now().Add(-res.Elapsed),
		}

		if err := r.store.AddOutcome(outcome); err != nil {
			return err
		}

		slog.Info("classified mutant", "mutant", mu.Display(target), "status", outcome.Status)
	}

	return nil
}

// testMutant applies the mutant, runs the test command, and restores the
// original text before returning, so the outcome is only ever recorded
// against a clean tree. Spawn failures retry once.
func (r *Runner) testMutant(target m.Target, mu m.Mutant, cmd string, timeout time.Duration) (ExecResult, error) {
	mutated, err := target.Mutate(mu)
	if err != nil {
		return ExecResult{}, err
	}

	if err := r.guard.Apply(target, mutated); err != nil {
		return ExecResult{}, err
	}
	defer r.guard.Restore(target)

	// The exec context is deliberately detached: cancellation is handled
	// between mutants so apply and restore always pair up.
	res := r.exec.Run(context.Background(), cmd, timeout)
	if res.SpawnErr != nil {
		res = r.exec.Run(context.Background(), cmd, timeout)
	}

	if res.SpawnErr != nil {
		return ExecResult{}, fmt.Errorf("spawn test command: %w", res.SpawnErr)
	}

	return res, nil
}

func (r *Runner) filterEnabled(mutants []m.Mutant) []m.Mutant {
	if len(r.cfg.Mutations) == 0 {
		return mutants
	}

	filtered := mutants[:0]

	for _, mu := range mutants {
		if r.cfg.SlugEnabled(mu.Slug) {
			filtered = append(filtered, mu)
		}
	}

	return filtered
}

// sortForRun fixes the execution order the planner depends on:
// (line asc, severity desc, slug asc).
func sortForRun(mutants []m.Mutant, severity func(string) int) {
	sort.SliceStable(mutants, func(i, j int) bool {
		a, b := mutants[i], mutants[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}

		if sa, sb := severity(a.Slug), severity(b.Slug); sa != sb {
			return sa > sb
		}

		return a.Slug < b.Slug
	})
}

func classify(res ExecResult) m.Status {
	switch {
	case res.TimedOut:
		return m.StatusTimeout
	case res.Failed:
		return m.StatusTestFail
	}

	return m.StatusUncaught
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[len(s)-n:]
}
