// Package model defines the data structures for mutation campaigns.
package model

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
)

// Path represents a file system path.
type Path string

// Target is one source file enrolled in a campaign. A target row is
// immutable once stored: if the file on disk changes, a new row with the
// new hash supersedes it.
type Target struct {
	ID       int64
	Path     Path
	Text     string
	FileHash string // hex-encoded SHA-256 of Text
	Language string
}

// HashText returns the hex-encoded SHA-256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)
}

// Display returns a cwd-relative path string suitable for logs and tables.
func (t Target) Display() string {
	cwd, err := os.Getwd()
	if err != nil {
		return string(t.Path)
	}

	rel, err := filepath.Rel(cwd, string(t.Path))
	if err != nil || rel == "" {
		return string(t.Path)
	}

	return rel
}

// Mutate returns the target text with the mutant's replacement spliced in.
// The original text is never modified.
func (t Target) Mutate(m Mutant) (string, error) {
	if m.TargetID != 0 && m.TargetID != t.ID {
		return "", fmt.Errorf("mutant %d applies to target %d, not %d", m.ID, m.TargetID, t.ID)
	}

	if m.Start > m.End || m.End > len(t.Text) {
		return "", fmt.Errorf("mutant %d span [%d,%d) exceeds target text of %d bytes", m.ID, m.Start, m.End, len(t.Text))
	}

	return t.Text[:m.Start] + m.Replacement + t.Text[m.End:], nil
}
