package model

import (
	"fmt"
	"strings"
)

// Mutant is one candidate text edit on one target. Byte offsets index the
// original target text; Line is the 1-based line of Start.
type Mutant struct {
	ID          int64
	TargetID    int64
	Slug        string
	Start       int
	End         int
	Replacement string
	Line        int
	Snippet     string // original text slice, kept for display
}

// Display renders a one-line human summary of the mutant against its target.
func (m Mutant) Display(t Target) string {
	return fmt.Sprintf("#%d %s %s:%d %q -> %q",
		m.ID, m.Slug, t.Display(), m.Line, truncate(m.Snippet, 40), truncate(m.Replacement, 40))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
