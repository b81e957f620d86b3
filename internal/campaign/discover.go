package campaign

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"mewt.dev/pkg/mewt/internal/language"
	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/store"
)

// Discover expands the include paths, filters by ignore substrings,
// resolves each file's language, and upserts target rows. Files whose
// extension no engine handles are skipped silently. The result is
// path-sorted.
func Discover(st *store.Store, registry *language.Registry, include, ignore []string) ([]m.Target, error) {
	paths, err := expandPaths(include, ignore)
	if err != nil {
		return nil, err
	}

	targets := make([]m.Target, 0, len(paths))

	for _, path := range paths {
		engine := registry.Resolve(path)
		if engine == nil {
			slog.Debug("skipping unsupported file", "path", path)
			continue
		}

		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read target %s: %w", path, err)
		}

		target := m.Target{
			Path:     m.Path(path),
			Text:     string(text),
			FileHash: m.HashText(string(text)),
			Language: engine.Name(),
		}

		id, err := st.AddTarget(target)
		if err != nil {
			return nil, fmt.Errorf("store target %s: %w", path, err)
		}

		target.ID = id
		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].Path < targets[j].Path })

	return targets, nil
}

func expandPaths(include, ignore []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string

	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}

		if pathIgnored(abs, ignore) || seen[abs] {
			return
		}

		seen[abs] = true
		paths = append(paths, abs)
	}

	for _, pattern := range include {
		info, err := os.Stat(pattern)

		switch {
		case err == nil && info.IsDir():
			walkErr := filepath.WalkDir(pattern, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}

				if d.IsDir() {
					if pathIgnored(path, ignore) {
						return filepath.SkipDir
					}

					return nil
				}

				add(path)

				return nil
			})
			if walkErr != nil {
				return nil, fmt.Errorf("walk %s: %w", pattern, walkErr)
			}
		case err == nil:
			add(pattern)
		default:
			matches, globErr := doublestar.FilepathGlob(pattern)
			if globErr != nil {
				return nil, fmt.Errorf("invalid glob %q: %w", pattern, globErr)
			}

			for _, match := range matches {
				if info, err := os.Stat(match); err == nil && !info.IsDir() {
					add(match)
				}
			}
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// pathIgnored reports whether any ignore substring occurs anywhere in the
// path's string form.
func pathIgnored(path string, ignore []string) bool {
	for _, sub := range ignore {
		if sub != "" && strings.Contains(path, sub) {
			return true
		}
	}

	return false
}
