package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "mewt.dev/pkg/mewt/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := Open(filepath.Join(t.TempDir(), "mewt.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func testTarget(path, text string) m.Target {
	return m.Target{
		Path:     m.Path(path),
		Text:     text,
		FileHash: m.HashText(text),
		Language: "Go",
	}
}

func TestAddTargetUpsert(t *testing.T) {
	st := openTestStore(t)

	first, err := st.AddTarget(testTarget("/p/a.go", "package a"))
	require.NoError(t, err)

	t.Run("same path and hash reuses the row", func(t *testing.T) {
		again, err := st.AddTarget(testTarget("/p/a.go", "package a"))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("changed content creates a new row", func(t *testing.T) {
		changed, err := st.AddTarget(testTarget("/p/a.go", "package a // edited"))
		require.NoError(t, err)
		assert.NotEqual(t, first, changed)
	})

	t.Run("moved file updates the path in place", func(t *testing.T) {
		moved, err := st.AddTarget(testTarget("/p/b.go", "package a // edited"))
		require.NoError(t, err)

		target, err := st.GetTarget(moved)
		require.NoError(t, err)
		assert.Equal(t, m.Path("/p/b.go"), target.Path)
	})
}

func TestCurrentTargetsSupersede(t *testing.T) {
	st := openTestStore(t)

	old, err := st.AddTarget(testTarget("/p/a.go", "v1"))
	require.NoError(t, err)

	require.NoError(t, st.ReplaceMutants(old, []m.Mutant{
		{Slug: "CR", Start: 0, End: 2, Replacement: "x", Line: 1, Snippet: "v1"},
	}))

	current, err := st.AddTarget(testTarget("/p/a.go", "v2"))
	require.NoError(t, err)
	require.NotEqual(t, old, current)

	t.Run("only the newest row per path is current", func(t *testing.T) {
		targets, err := st.CurrentTargets()
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, current, targets[0].ID)
	})

	t.Run("stale outcomes are not counted", func(t *testing.T) {
		mutants, err := st.MutantsFor(old)
		require.NoError(t, err)
		require.NoError(t, st.AddOutcome(m.Outcome{
			MutationID: mutants[0].ID,
			Status:     m.StatusUncaught,
			StartedAt:  time.Now(),
		}))

		summary, err := st.GetSummary()
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Uncaught)
		assert.Equal(t, 0, summary.Mutants)
	})

	t.Run("clean drops the superseded row", func(t *testing.T) {
		removed, err := st.Clean()
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		_, err = st.GetTarget(old)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReplaceMutants(t *testing.T) {
	st := openTestStore(t)

	id, err := st.AddTarget(testTarget("/p/a.go", "package a\nvar x = 1\n"))
	require.NoError(t, err)

	batch := []m.Mutant{
		{Slug: "CR", Start: 18, End: 19, Replacement: "0", Line: 2, Snippet: "1"},
		{Slug: "ER", Start: 10, End: 19, Replacement: "panic(\"mewt\")", Line: 2, Snippet: "var x = 1"},
	}

	require.NoError(t, st.ReplaceMutants(id, batch))

	t.Run("ids are written back", func(t *testing.T) {
		for _, mu := range batch {
			assert.NotZero(t, mu.ID)
			assert.Equal(t, id, mu.TargetID)
		}
	})

	t.Run("reads come back ordered by line, start, slug", func(t *testing.T) {
		mutants, err := st.MutantsFor(id)
		require.NoError(t, err)
		require.Len(t, mutants, 2)
		assert.Equal(t, "ER", mutants[0].Slug)
		assert.Equal(t, "CR", mutants[1].Slug)
	})

	t.Run("a second batch replaces the first", func(t *testing.T) {
		require.NoError(t, st.ReplaceMutants(id, []m.Mutant{
			{Slug: "IF", Start: 0, End: 5, Replacement: "false", Line: 1, Snippet: "packa"},
		}))

		mutants, err := st.MutantsFor(id)
		require.NoError(t, err)
		require.Len(t, mutants, 1)
		assert.Equal(t, "IF", mutants[0].Slug)
	})
}

func TestOutcomes(t *testing.T) {
	st := openTestStore(t)

	id, err := st.AddTarget(testTarget("/p/a.go", "package a"))
	require.NoError(t, err)

	mutants := []m.Mutant{
		{Slug: "CR", Start: 0, End: 1, Replacement: "x", Line: 1, Snippet: "p"},
		{Slug: "ER", Start: 2, End: 3, Replacement: "y", Line: 1, Snippet: "c"},
	}
	require.NoError(t, st.ReplaceMutants(id, mutants))

	started := time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, st.AddOutcome(m.Outcome{
		MutationID: mutants[0].ID,
		Status:     m.StatusTestFail,
		Output:     "FAIL",
		ElapsedMS:  120,
		StartedAt:  started,
	}))

	t.Run("round trips", func(t *testing.T) {
		outcome, ok, err := st.GetOutcome(mutants[0].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusTestFail, outcome.Status)
		assert.Equal(t, int64(120), outcome.ElapsedMS)
		assert.Equal(t, started, outcome.StartedAt)
	})

	t.Run("a mutant without an outcome reports none", func(t *testing.T) {
		_, ok, err := st.GetOutcome(mutants[1].ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("at most one outcome per mutant", func(t *testing.T) {
		require.NoError(t, st.AddOutcome(m.Outcome{
			MutationID: mutants[0].ID,
			Status:     m.StatusUncaught,
			StartedAt:  started,
		}))

		outcome, ok, err := st.GetOutcome(mutants[0].ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.StatusUncaught, outcome.Status)

		summary, err := st.GetSummary()
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Tested)
	})
}

func TestPendingMutants(t *testing.T) {
	st := openTestStore(t)

	id, err := st.AddTarget(testTarget("/p/a.go", "package a"))
	require.NoError(t, err)

	mutants := []m.Mutant{
		{Slug: "ER", Start: 0, End: 1, Replacement: "a", Line: 1, Snippet: "p"},
		{Slug: "CR", Start: 2, End: 3, Replacement: "b", Line: 1, Snippet: "c"},
		{Slug: "IF", Start: 4, End: 5, Replacement: "c", Line: 2, Snippet: "a"},
		{Slug: "IT", Start: 6, End: 7, Replacement: "d", Line: 2, Snippet: "g"},
	}
	require.NoError(t, st.ReplaceMutants(id, mutants))

	now := time.Now()
	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: mutants[0].ID, Status: m.StatusTestFail, StartedAt: now}))
	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: mutants[1].ID, Status: m.StatusTimeout, StartedAt: now}))
	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: mutants[2].ID, Status: m.StatusSkipped, StartedAt: now}))

	t.Run("default excludes skipped, re-queues timeouts last", func(t *testing.T) {
		pending, err := st.PendingMutants(id, false)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "IT", pending[0].Slug)
		assert.Equal(t, "CR", pending[1].Slug) // the timeout re-test
	})

	t.Run("comprehensive re-queues skipped too", func(t *testing.T) {
		pending, err := st.PendingMutants(id, true)
		require.NoError(t, err)
		require.Len(t, pending, 3)
	})
}

func TestUncaughtMutants(t *testing.T) {
	st := openTestStore(t)

	id, err := st.AddTarget(testTarget("/p/a.go", "package a"))
	require.NoError(t, err)

	mutants := []m.Mutant{
		{Slug: "ER", Start: 0, End: 1, Replacement: "a", Line: 3, Snippet: "p"},
		{Slug: "CR", Start: 2, End: 3, Replacement: "b", Line: 3, Snippet: "c"},
	}
	require.NoError(t, st.ReplaceMutants(id, mutants))
	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: mutants[0].ID, Status: m.StatusUncaught, StartedAt: time.Now()}))

	uncaught, err := st.UncaughtMutants(id)
	require.NoError(t, err)
	require.Len(t, uncaught, 1)
	assert.Equal(t, "ER", uncaught[0].Slug)
}

func TestCampaignMeta(t *testing.T) {
	st := openTestStore(t)

	t.Run("absent before the first baseline", func(t *testing.T) {
		_, _, ok, err := st.GetMeta()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, st.SetMeta(1500, "go test ./..."))

		baselineMS, cmd, ok, err := st.GetMeta()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(1500), baselineMS)
		assert.Equal(t, "go test ./...", cmd)
	})

	t.Run("singleton row overwrites", func(t *testing.T) {
		require.NoError(t, st.SetMeta(900, "make check"))

		baselineMS, cmd, _, err := st.GetMeta()
		require.NoError(t, err)
		assert.Equal(t, int64(900), baselineMS)
		assert.Equal(t, "make check", cmd)
	})
}

func TestFilteredQueries(t *testing.T) {
	st := openTestStore(t)

	goID, err := st.AddTarget(testTarget("/p/a.go", "package a"))
	require.NoError(t, err)

	rs := testTarget("/p/b.rs", "fn main() {}")
	rs.Language = "Rust"
	rustID, err := st.AddTarget(rs)
	require.NoError(t, err)

	goMutants := []m.Mutant{{Slug: "CR", Start: 0, End: 1, Replacement: "x", Line: 1, Snippet: "p"}}
	require.NoError(t, st.ReplaceMutants(goID, goMutants))

	rustMutants := []m.Mutant{{Slug: "ER", Start: 0, End: 2, Replacement: "y", Line: 4, Snippet: "fn"}}
	require.NoError(t, st.ReplaceMutants(rustID, rustMutants))

	require.NoError(t, st.AddOutcome(m.Outcome{MutationID: rustMutants[0].ID, Status: m.StatusUncaught, StartedAt: time.Now()}))

	t.Run("mutants filter by language", func(t *testing.T) {
		results, err := st.MutantsFiltered(Filter{Language: "rust"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "ER", results[0].Mutant.Slug)
	})

	t.Run("mutants filter by tested state", func(t *testing.T) {
		tested, err := st.MutantsFiltered(Filter{Tested: true})
		require.NoError(t, err)
		require.Len(t, tested, 1)
		assert.Equal(t, "ER", tested[0].Mutant.Slug)

		untested, err := st.MutantsFiltered(Filter{Untested: true})
		require.NoError(t, err)
		require.Len(t, untested, 1)
		assert.Equal(t, "CR", untested[0].Mutant.Slug)
	})

	t.Run("mutants filter by file substring and line", func(t *testing.T) {
		results, err := st.MutantsFiltered(Filter{File: "b.rs", Line: 4})
		require.NoError(t, err)
		require.Len(t, results, 1)

		none, err := st.MutantsFiltered(Filter{File: "b.rs", Line: 5})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("results filter by status", func(t *testing.T) {
		results, err := st.ResultsFiltered(Filter{Status: string(m.StatusUncaught)})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, m.StatusUncaught, results[0].Outcome.Status)

		none, err := st.ResultsFiltered(Filter{Status: string(m.StatusTestFail)})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("results filter by slug", func(t *testing.T) {
		results, err := st.ResultsFiltered(Filter{Slug: "ER"})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("slug stats count eligible and caught", func(t *testing.T) {
		stats, err := st.SlugStats(0)
		require.NoError(t, err)
		assert.Equal(t, [2]int{1, 0}, stats["ER"])
	})

	t.Run("target stats", func(t *testing.T) {
		stats, err := st.GetTargetStats(rustID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Mutants)
		assert.Equal(t, 1, stats.Uncaught)
		assert.Equal(t, 0, stats.Untested)
	})
}
