// Package report renders campaign data as tables, JSON, SARIF, or bare
// id lists. The core stays format-agnostic; commands pick a renderer.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	m "mewt.dev/pkg/mewt/internal/model"
)

// Format names accepted by the --format flags.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
	FormatIDs   = "ids"
)

var (
	styleUncaught = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red: a testing gap
	styleCaught   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleSkipped  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleTimeout  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// StatusCell renders a status for table output, colored when enabled.
func StatusCell(status m.Status, color bool) string {
	text := string(status)
	if !color {
		return text
	}

	switch status {
	case m.StatusUncaught:
		return styleUncaught.Render(text)
	case m.StatusTestFail:
		return styleCaught.Render(text)
	case m.StatusSkipped:
		return styleSkipped.Render(text)
	case m.StatusTimeout:
		return styleTimeout.Render(text)
	}

	return text
}

// MutantDiff renders a unified diff between the target's original text and
// the text with the mutant applied.
func MutantDiff(target m.Target, mutant m.Mutant) (string, error) {
	mutated, err := target.Mutate(mutant)
	if err != nil {
		return "", err
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(target.Text),
		B:        difflib.SplitLines(mutated),
		FromFile: target.Display(),
		ToFile:   fmt.Sprintf("%s (mutant #%d %s)", target.Display(), mutant.ID, mutant.Slug),
		Context:  3,
	}

	return difflib.GetUnifiedDiffString(diff)
}

// Columns returns the 1-based start and end columns of the mutant span on
// its starting line.
func Columns(target m.Target, mutant m.Mutant) (int, int) {
	lineStart := strings.LastIndexByte(target.Text[:clamp(mutant.Start, len(target.Text))], '\n') + 1

	startCol := mutant.Start - lineStart + 1

	end := clamp(mutant.End, len(target.Text))
	if nl := strings.IndexByte(target.Text[lineStart:], '\n'); nl >= 0 && mutant.End > lineStart+nl {
		end = lineStart + nl
	}

	endCol := end - lineStart + 1
	if endCol < startCol {
		endCol = startCol
	}

	return startCol, endCol
}

func clamp(v, max int) int {
	if v > max {
		return max
	}

	return v
}
