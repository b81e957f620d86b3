package report

import (
	"encoding/json"
	"fmt"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/store"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
)

type sarifReport struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	InformationURI string `json:"informationUri"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndColumn   int `json:"endColumn"`
}

// SARIF emits one warning-level result per surviving (Uncaught) mutant.
func SARIF(results []store.Result, toolVersion string) (string, error) {
	sarifResults := make([]sarifResult, 0)

	for _, r := range results {
		if r.Outcome.Status != m.StatusUncaught {
			continue
		}

		startCol, endCol := Columns(r.Target, r.Mutant)

		sarifResults = append(sarifResults, sarifResult{
			RuleID: r.Mutant.Slug,
			Level:  "warning",
			Message: sarifMessage{
				Text: fmt.Sprintf("Mutant survived: %q replaced with %q and the test suite still passed",
					r.Mutant.Snippet, r.Mutant.Replacement),
			},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: string(r.Target.Path)},
					Region: sarifRegion{
						StartLine:   r.Mutant.Line,
						StartColumn: startCol,
						EndColumn:   endCol,
					},
				},
			}},
		})
	}

	reportDoc := sarifReport{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:           "mewt",
				Version:        toolVersion,
				InformationURI: "https://mewt.dev",
			}},
			Results: sarifResults,
		}},
	}

	out, err := json.MarshalIndent(reportDoc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode sarif: %w", err)
	}

	return string(out), nil
}

// JSONResults encodes results as pretty JSON.
func JSONResults(results []store.Result) (string, error) {
	type jsonOutcome struct {
		Status    m.Status `json:"status"`
		ElapsedMS int64    `json:"elapsed_ms"`
		StartedAt string   `json:"started_at"`
		Output    string   `json:"output,omitempty"`
	}

	type jsonResult struct {
		ID          int64       `json:"id"`
		Slug        string      `json:"slug"`
		File        string      `json:"file"`
		Language    string      `json:"language"`
		Line        int         `json:"line"`
		Start       int         `json:"start"`
		End         int         `json:"end"`
		Snippet     string      `json:"snippet"`
		Replacement string      `json:"replacement"`
		Outcome     jsonOutcome `json:"outcome"`
	}

	out := make([]jsonResult, 0, len(results))

	for _, r := range results {
		out = append(out, jsonResult{
			ID:          r.Mutant.ID,
			Slug:        r.Mutant.Slug,
			File:        string(r.Target.Path),
			Language:    r.Target.Language,
			Line:        r.Mutant.Line,
			Start:       r.Mutant.Start,
			End:         r.Mutant.End,
			Snippet:     r.Mutant.Snippet,
			Replacement: r.Mutant.Replacement,
			Outcome: jsonOutcome{
				Status:    r.Outcome.Status,
				ElapsedMS: r.Outcome.ElapsedMS,
				StartedAt: r.Outcome.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
				Output:    r.Outcome.Output,
			},
		})
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	return string(encoded), nil
}

// JSONMutants encodes mutants (no outcomes) as pretty JSON.
func JSONMutants(results []store.Result) (string, error) {
	type jsonMutant struct {
		ID          int64  `json:"id"`
		Slug        string `json:"slug"`
		File        string `json:"file"`
		Language    string `json:"language"`
		Line        int    `json:"line"`
		Start       int    `json:"start"`
		End         int    `json:"end"`
		Snippet     string `json:"snippet"`
		Replacement string `json:"replacement"`
	}

	out := make([]jsonMutant, 0, len(results))

	for _, r := range results {
		out = append(out, jsonMutant{
			ID:          r.Mutant.ID,
			Slug:        r.Mutant.Slug,
			File:        string(r.Target.Path),
			Language:    r.Target.Language,
			Line:        r.Mutant.Line,
			Start:       r.Mutant.Start,
			End:         r.Mutant.End,
			Snippet:     r.Mutant.Snippet,
			Replacement: r.Mutant.Replacement,
		})
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode mutants: %w", err)
	}

	return string(encoded), nil
}

// IDs renders bare mutant ids, one per line.
func IDs(results []store.Result) string {
	out := ""
	for _, r := range results {
		out += fmt.Sprintf("%d\n", r.Mutant.ID)
	}

	return out
}
