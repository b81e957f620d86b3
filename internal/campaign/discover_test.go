package campaign

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mewt.dev/pkg/mewt/internal/language"
	"mewt.dev/pkg/mewt/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "a.go"), "package a\n")
	writeFile(t, filepath.Join(dir, "b.rs"), "fn main() {}\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not source\n")
	writeFile(t, filepath.Join(dir, "vendor", "dep.go"), "package dep\n")
	writeFile(t, filepath.Join(dir, "src", "c.ts"), "const x = 1;\n")

	st, err := store.Open(filepath.Join(t.TempDir(), "mewt.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := language.DefaultRegistry()

	t.Run("walks directories and filters by ignore substrings", func(t *testing.T) {
		targets, err := Discover(st, registry, []string{dir}, []string{"vendor"})
		require.NoError(t, err)
		require.Len(t, targets, 3)

		var names []string
		for _, target := range targets {
			names = append(names, filepath.Base(string(target.Path)))
		}

		assert.Equal(t, []string{"a.go", "b.rs", "c.ts"}, names)
	})

	t.Run("results are path sorted with stable ids", func(t *testing.T) {
		first, err := Discover(st, registry, []string{dir}, nil)
		require.NoError(t, err)

		second, err := Discover(st, registry, []string{dir}, nil)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("single file include", func(t *testing.T) {
		targets, err := Discover(st, registry, []string{filepath.Join(dir, "a.go")}, nil)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "Go", targets[0].Language)
		assert.NotZero(t, targets[0].ID)
	})

	t.Run("glob include", func(t *testing.T) {
		targets, err := Discover(st, registry, []string{filepath.Join(dir, "**", "*.ts")}, nil)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "JavaScript", targets[0].Language)
	})

	t.Run("ignore matches anywhere in the path string", func(t *testing.T) {
		targets, err := Discover(st, registry, []string{dir}, []string{".rs", "src"})
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "a.go", filepath.Base(string(targets[0].Path)))
	})

	t.Run("hash is the sha256 of the content", func(t *testing.T) {
		targets, err := Discover(st, registry, []string{filepath.Join(dir, "a.go")}, nil)
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Len(t, targets[0].FileHash, 64)
	})
}
