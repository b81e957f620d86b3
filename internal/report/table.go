package report

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/store"
)

func newTable(buf *bytes.Buffer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(buf)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	return table
}

// MutationsTable renders a mutation catalog.
func MutationsTable(language string, kinds []m.MutationKind) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Slug", "Severity", "Description"})

	for _, k := range kinds {
		table.Append([]string{k.Slug, fmt.Sprintf("%d", k.Severity), k.Description})
	}

	table.SetCaption(true, fmt.Sprintf("%s: %d mutation kinds", language, len(kinds)))
	table.Render()

	return buf.String()
}

// TargetsTable renders discovered targets.
func TargetsTable(targets []m.Target) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"ID", "Path", "Language", "Hash"})

	for _, t := range targets {
		table.Append([]string{
			fmt.Sprintf("%d", t.ID), t.Display(), t.Language, t.FileHash[:12],
		})
	}

	table.Render()

	return buf.String()
}

// MutantsTable renders mutants with their targets.
func MutantsTable(results []store.Result) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"ID", "Slug", "File", "Line", "Original", "Replacement"})

	for _, r := range results {
		table.Append([]string{
			fmt.Sprintf("%d", r.Mutant.ID),
			r.Mutant.Slug,
			r.Target.Display(),
			fmt.Sprintf("%d", r.Mutant.Line),
			oneLine(r.Mutant.Snippet, 40),
			oneLine(r.Mutant.Replacement, 40),
		})
	}

	table.Render()

	return buf.String()
}

// ResultsTable renders outcomes, coloring the status cell when enabled.
func ResultsTable(results []store.Result, color bool) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"ID", "Status", "Slug", "File", "Line", "Elapsed"})

	for _, r := range results {
		table.Append([]string{
			fmt.Sprintf("%d", r.Mutant.ID),
			StatusCell(r.Outcome.Status, color),
			r.Mutant.Slug,
			r.Target.Display(),
			fmt.Sprintf("%d", r.Mutant.Line),
			fmt.Sprintf("%dms", r.Outcome.ElapsedMS),
		})
	}

	table.Render()

	return buf.String()
}

// StatusRow is one target's aggregate line in the status table.
type StatusRow struct {
	Target string
	Stats  store.TargetStats
}

// StatusTable renders per-target progress plus the campaign summary.
func StatusTable(rows []StatusRow, summary store.Summary) string {
	var buf bytes.Buffer

	table := newTable(&buf, []string{"Target", "Mutants", "Tested", "Caught", "Uncaught", "Skipped", "Timeout", "Untested"})

	for _, row := range rows {
		table.Append([]string{
			row.Target,
			fmt.Sprintf("%d", row.Stats.Mutants),
			fmt.Sprintf("%d", row.Stats.Tested),
			fmt.Sprintf("%d", row.Stats.Caught),
			fmt.Sprintf("%d", row.Stats.Uncaught),
			fmt.Sprintf("%d", row.Stats.Skipped),
			fmt.Sprintf("%d", row.Stats.Timeout),
			fmt.Sprintf("%d", row.Stats.Untested),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d targets", summary.Targets),
		fmt.Sprintf("%d", summary.Mutants),
		fmt.Sprintf("%d", summary.Tested),
		fmt.Sprintf("%d", summary.Caught),
		fmt.Sprintf("%d", summary.Uncaught),
		fmt.Sprintf("%d", summary.Skipped),
		fmt.Sprintf("%d", summary.Timeout),
		progress(summary),
	})

	table.Render()

	return buf.String()
}

// BandRates rolls slug-level (eligible, caught) stats up to the catalog's
// high/medium/low severity bands.
func BandRates(stats map[string][2]int, kinds []m.MutationKind) map[string][2]int {
	bands := make(map[string][2]int, 3)

	for _, k := range kinds {
		entry, ok := stats[k.Slug]
		if !ok {
			continue
		}

		band := bands[k.Band()]
		band[0] += entry[0]
		band[1] += entry[1]
		bands[k.Band()] = band
	}

	return bands
}

// BandSummary renders band catch rates as a single line.
func BandSummary(bands map[string][2]int) string {
	out := ""

	for _, band := range []string{"high", "medium", "low"} {
		entry, ok := bands[band]
		if !ok || entry[0] == 0 {
			continue
		}

		out += fmt.Sprintf("%s severity: %d/%d caught (%.0f%%)\n",
			band, entry[1], entry[0], float64(entry[1])/float64(entry[0])*100)
	}

	return out
}

func progress(summary store.Summary) string {
	if summary.Mutants == 0 {
		return "0.0%"
	}

	done := summary.Tested + summary.Skipped

	return fmt.Sprintf("%.1f%%", float64(done)/float64(summary.Mutants)*100)
}

func oneLine(s string, n int) string {
	out := make([]byte, 0, len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, ' ')
			continue
		}

		out = append(out, s[i])
	}

	if len(out) > n {
		return string(out[:n]) + "..."
	}

	return string(out)
}
