package campaign

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	m "mewt.dev/pkg/mewt/internal/model"
)

// restoreGuard binds every apply to a guaranteed restore. Targets are
// registered before their file is overwritten; RestoreAll runs on every
// exit path, including panics and the signal handler, and is idempotent.
//
// A failed restore means a corrupted working tree, the one state worse
// than crashing, so restore errors escalate to a panic instead of being
// returned.
type restoreGuard struct {
	mu      sync.Mutex
	applied map[int64]m.Target
}

func newRestoreGuard() *restoreGuard {
	return &restoreGuard{applied: make(map[int64]m.Target)}
}

// Apply writes the mutated text to the target's path, registering the
// target for restoration first so a crash between the write and the test
// still restores.
func (g *restoreGuard) Apply(target m.Target, mutated string) error {
	g.mu.Lock()
	g.applied[target.ID] = target
	g.mu.Unlock()

	if err := os.WriteFile(string(target.Path), []byte(mutated), 0o644); err != nil {
		g.restoreOne(target)
		return fmt.Errorf("apply mutant to %s: %w", target.Path, err)
	}

	return nil
}

// Restore rewrites the target's original text and unregisters it.
func (g *restoreGuard) Restore(target m.Target) {
	g.mu.Lock()
	_, ok := g.applied[target.ID]
	delete(g.applied, target.ID)
	g.mu.Unlock()

	if ok {
		g.restoreOne(target)
	}
}

// RestoreAll rewrites every still-applied target. Safe to call multiple
// times and from the signal handler.
func (g *restoreGuard) RestoreAll() {
	g.mu.Lock()
	targets := make([]m.Target, 0, len(g.applied))
	for _, t := range g.applied {
		targets = append(targets, t)
	}
	g.applied = make(map[int64]m.Target)
	g.mu.Unlock()

	for _, t := range targets {
		g.restoreOne(t)
	}
}

func (g *restoreGuard) restoreOne(target m.Target) {
	if err := os.WriteFile(string(target.Path), []byte(target.Text), 0o644); err != nil {
		slog.Error("failed to restore target", "path", target.Path, "error", err)
		panic(fmt.Sprintf("cannot restore %s, working tree is corrupted: %v", target.Path, err))
	}
}
