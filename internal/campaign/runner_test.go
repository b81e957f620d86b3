package campaign

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewt.dev/pkg/mewt/internal/language"
	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/store"
)

// fakeExecutor scripts test-command results and records what the runner
// observed on disk at each run.
type fakeExecutor struct {
	mu       sync.Mutex
	results  []ExecResult
	calls    int
	observe  string // path read before every run
	observed []string
	fallback ExecResult
}

func (f *fakeExecutor) Run(_ context.Context, _ string, _ time.Duration) ExecResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.observe != "" {
		content, _ := os.ReadFile(f.observe)
		f.observed = append(f.observed, string(content))
	}

	res := f.fallback
	if f.calls < len(f.results) {
		res = f.results[f.calls]
	}

	f.calls++

	return res
}

func newCampaignFixture(t *testing.T, text string) (*store.Store, m.Target) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	st, err := store.Open(filepath.Join(dir, "mewt.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	target := m.Target{
		Path:     m.Path(path),
		Text:     text,
		FileHash: m.HashText(text),
		Language: "Go",
	}

	id, err := st.AddTarget(target)
	require.NoError(t, err)
	target.ID = id

	return st, target
}

func passingExec() *fakeExecutor {
	return &fakeExecutor{fallback: ExecResult{Elapsed: 10 * time.Millisecond}}
}

func TestRunnerSkipPlannerIntegration(t *testing.T) {
	text := "line1\nline2\nline3\nline4\nfn()\n"
	st, target := newCampaignFixture(t, text)

	// Two mutants on line 5: the severe ER and the mild COS.
	mutants := []m.Mutant{
		{Slug: "ER", Start: 24, End: 28, Replacement: "x", Line: 5, Snippet: "fn()"},
		{Slug: "COS", Start: 24, End: 28, Replacement: "y", Line: 5, Snippet: "fn()"},
	}
	require.NoError(t, st.ReplaceMutants(target.ID, mutants))

	exec := passingExec()
	runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)

	require.NoError(t, runner.Execute(context.Background(), []m.Target{target}))

	t.Run("ER is uncaught, COS skipped without a test run", func(t *testing.T) {
		erOutcome, ok, err := st.GetOutcome(mutants[0].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusUncaught, erOutcome.Status)

		cosOutcome, ok, err := st.GetOutcome(mutants[1].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusSkipped, cosOutcome.Status)

		assert.Equal(t, 1, exec.calls)
	})

	t.Run("comprehensive re-run tests the skipped mutant", func(t *testing.T) {
		exec := passingExec()
		runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true", Comprehensive: true}, exec)

		require.NoError(t, runner.Execute(context.Background(), []m.Target{target}))

		cosOutcome, ok, err := st.GetOutcome(mutants[1].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusUncaught, cosOutcome.Status)
	})

	t.Run("file is restored afterwards", func(t *testing.T) {
		onDisk, err := os.ReadFile(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, text, string(onDisk))
	})
}

func TestRunnerAppliesAndRestoresAroundEachTest(t *testing.T) {
	text := "aaa bbb ccc\n"
	st, target := newCampaignFixture(t, text)

	mutants := []m.Mutant{
		{Slug: "CR", Start: 4, End: 7, Replacement: "XXX", Line: 1, Snippet: "bbb"},
	}
	require.NoError(t, st.ReplaceMutants(target.ID, mutants))

	exec := passingExec()
	exec.observe = string(target.Path)

	runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)
	require.NoError(t, runner.Execute(context.Background(), []m.Target{target}))

	require.Len(t, exec.observed, 1)
	assert.Equal(t, "aaa XXX ccc\n", exec.observed[0], "the mutated text must be on disk while the test runs")

	onDisk, err := os.ReadFile(string(target.Path))
	require.NoError(t, err)
	assert.Equal(t, text, string(onDisk))
}

func TestRunnerClassification(t *testing.T) {
	cases := []struct {
		name string
		res  ExecResult
		want m.Status
	}{
		{"exit zero is uncaught", ExecResult{}, m.StatusUncaught},
		{"non-zero exit is caught", ExecResult{Failed: true}, m.StatusTestFail},
		{"deadline overrun is timeout", ExecResult{TimedOut: true}, m.StatusTimeout},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, target := newCampaignFixture(t, "some text\n")

			mutants := []m.Mutant{{Slug: "CR", Start: 0, End: 4, Replacement: "x", Line: 1, Snippet: "some"}}
			require.NoError(t, st.ReplaceMutants(target.ID, mutants))

			exec := &fakeExecutor{fallback: tc.res}
			runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)
			require.NoError(t, runner.Execute(context.Background(), []m.Target{target}))

			outcome, ok, err := st.GetOutcome(mutants[0].ID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tc.want, outcome.Status)
		})
	}
}

func TestRunnerBaseline(t *testing.T) {
	t.Run("failing baseline aborts", func(t *testing.T) {
		st, _ := newCampaignFixture(t, "text\n")

		exec := &fakeExecutor{fallback: ExecResult{Failed: true, Output: "1 test failed"}}
		runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)

		err := runner.Baseline(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrBaselineFailed)
	})

	t.Run("missing test command aborts", func(t *testing.T) {
		st, _ := newCampaignFixture(t, "text\n")

		runner := NewRunner(st, language.DefaultRegistry(), Config{}, passingExec())
		assert.ErrorIs(t, runner.Baseline(context.Background()), ErrNoTestCommand)
	})

	t.Run("passing baseline records campaign meta", func(t *testing.T) {
		st, _ := newCampaignFixture(t, "text\n")

		exec := &fakeExecutor{fallback: ExecResult{Elapsed: 1200 * time.Millisecond}}
		runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "make check"}, exec)

		require.NoError(t, runner.Baseline(context.Background()))

		baselineMS, cmd, ok, err := st.GetMeta()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(1200), baselineMS)
		assert.Equal(t, "make check", cmd)
	})
}

func TestTimeoutDerivation(t *testing.T) {
	st, _ := newCampaignFixture(t, "text\n")
	runner := NewRunner(st, language.DefaultRegistry(), Config{}, passingExec())

	t.Run("floors at five seconds", func(t *testing.T) {
		runner.baseline = 100 * time.Millisecond
		assert.Equal(t, 5*time.Second, runner.timeoutFor(0))
	})

	t.Run("doubles slow baselines", func(t *testing.T) {
		runner.baseline = 20 * time.Second
		assert.Equal(t, 40*time.Second, runner.timeoutFor(0))
	})

	t.Run("explicit timeout wins", func(t *testing.T) {
		runner.baseline = 20 * time.Second
		assert.Equal(t, 7*time.Second, runner.timeoutFor(7*time.Second))
	})
}

func TestRunnerInterrupt(t *testing.T) {
	st, target := newCampaignFixture(t, "text here\n")

	mutants := []m.Mutant{
		{Slug: "ER", Start: 0, End: 4, Replacement: "x", Line: 1, Snippet: "text"},
		{Slug: "CR", Start: 5, End: 9, Replacement: "y", Line: 1, Snippet: "here"},
	}
	require.NoError(t, st.ReplaceMutants(target.ID, mutants))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, passingExec())
	err := runner.Execute(ctx, []m.Target{target})
	assert.ErrorIs(t, err, ErrInterrupted)

	t.Run("no partial outcomes are persisted", func(t *testing.T) {
		for _, mu := range mutants {
			_, ok, err := st.GetOutcome(mu.ID)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})

	t.Run("file is intact", func(t *testing.T) {
		onDisk, err := os.ReadFile(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, "text here\n", string(onDisk))
	})
}

func TestRunnerSpawnFailures(t *testing.T) {
	st, target := newCampaignFixture(t, "abc def ghi jkl\n")

	mutants := []m.Mutant{
		{Slug: "ER", Start: 0, End: 3, Replacement: "x", Line: 1, Snippet: "abc"},
		{Slug: "CR", Start: 4, End: 7, Replacement: "y", Line: 1, Snippet: "def"},
		{Slug: "IF", Start: 8, End: 11, Replacement: "z", Line: 1, Snippet: "ghi"},
	}
	require.NoError(t, st.ReplaceMutants(target.ID, mutants))

	exec := &fakeExecutor{fallback: ExecResult{SpawnErr: errors.New("sh: not found")}}
	runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)

	err := runner.Execute(context.Background(), []m.Target{target})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consecutive spawn failures")

	t.Run("file is restored despite the abort", func(t *testing.T) {
		onDisk, err := os.ReadFile(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, "abc def ghi jkl\n", string(onDisk))
	})
}

func TestRunnerRecover(t *testing.T) {
	st, target := newCampaignFixture(t, "original contents\n")

	t.Run("a diverged file is rewritten from the store", func(t *testing.T) {
		require.NoError(t, os.WriteFile(string(target.Path), []byte("mutated leftovers\n"), 0o644))

		runner := NewRunner(st, language.DefaultRegistry(), Config{}, passingExec())
		require.NoError(t, runner.Recover())

		onDisk, err := os.ReadFile(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, "original contents\n", string(onDisk))
	})

	t.Run("a deleted file is rewritten too", func(t *testing.T) {
		require.NoError(t, os.Remove(string(target.Path)))

		runner := NewRunner(st, language.DefaultRegistry(), Config{}, passingExec())
		require.NoError(t, runner.Recover())

		onDisk, err := os.ReadFile(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, "original contents\n", string(onDisk))
	})

	t.Run("matching files are untouched", func(t *testing.T) {
		info, err := os.Stat(string(target.Path))
		require.NoError(t, err)

		runner := NewRunner(st, language.DefaultRegistry(), Config{}, passingExec())
		require.NoError(t, runner.Recover())

		after, err := os.Stat(string(target.Path))
		require.NoError(t, err)
		assert.Equal(t, info.ModTime(), after.ModTime())
	})
}

func TestRunnerTestMutants(t *testing.T) {
	st, target := newCampaignFixture(t, "alpha beta\n")

	mutants := []m.Mutant{
		{Slug: "CR", Start: 0, End: 5, Replacement: "x", Line: 1, Snippet: "alpha"},
		{Slug: "ER", Start: 6, End: 10, Replacement: "y", Line: 1, Snippet: "beta"},
	}
	require.NoError(t, st.ReplaceMutants(target.ID, mutants))

	// The second mutant already has an outcome; a targeted re-test
	// overwrites it.
	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: mutants[1].ID, Status: m.StatusTimeout, StartedAt: time.Now()}))

	exec := &fakeExecutor{fallback: ExecResult{Failed: true}}
	runner := NewRunner(st, language.DefaultRegistry(), Config{TestCmd: "true"}, exec)

	require.NoError(t, runner.TestMutants(context.Background(), []int64{mutants[0].ID, mutants[1].ID, 999}))

	for _, mu := range mutants {
		outcome, ok, err := st.GetOutcome(mu.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusTestFail, outcome.Status)
	}
}

func TestRunnerSynthesize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	text := "package p\nfunc f(x int) int { if x > 0 { return 1 }; return 0 }\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	st, err := store.Open(filepath.Join(dir, "mewt.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := language.DefaultRegistry()

	targets, err := Discover(st, registry, []string{dir}, nil)
	require.NoError(t, err)
	require.Len(t, targets, 1)

	runner := NewRunner(st, registry, Config{}, passingExec())

	count, err := runner.Synthesize(context.Background(), targets)
	require.NoError(t, err)
	assert.Greater(t, count, 0)

	t.Run("a second synthesis is a no-op", func(t *testing.T) {
		again, err := runner.Synthesize(context.Background(), targets)
		require.NoError(t, err)
		assert.Zero(t, again)
	})

	t.Run("an edited file gets a fresh target with fresh mutants", func(t *testing.T) {
		edited := text + "// trailing comment\n"
		require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

		rediscovered, err := Discover(st, registry, []string{dir}, nil)
		require.NoError(t, err)
		require.Len(t, rediscovered, 1)
		assert.NotEqual(t, targets[0].ID, rediscovered[0].ID)

		count, err := runner.Synthesize(context.Background(), rediscovered)
		require.NoError(t, err)
		assert.Greater(t, count, 0)

		summary, err := st.GetSummary()
		require.NoError(t, err)
		assert.Equal(t, count, summary.Mutants, "stale mutants are not counted")
	})
}
