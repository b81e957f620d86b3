// Package language binds mutation patterns to concrete grammars. Each
// supported language supplies an Engine; the Registry dispatches by file
// extension.
package language

import m "mewt.dev/pkg/mewt/internal/model"

// commonKinds is the catalog of mutation kinds shared by every language.
// Severity is data, consumed by the skip planner: higher values are more
// disruptive edits. The replacement text for each kind is language
// specific; the pattern is universal.
var commonKinds = []m.MutationKind{
	{Slug: "ER", Severity: 10, Description: "Replace a statement with a fatal-error sentinel"},
	{Slug: "LC", Severity: 8, Description: "Replace a loop body with an empty block"},
	{Slug: "BL", Severity: 7, Description: "Delete the last statement of a block"},
	{Slug: "IF", Severity: 6, Description: "Rewrite an if condition to false"},
	{Slug: "IT", Severity: 6, Description: "Rewrite an if condition to true"},
	{Slug: "WF", Severity: 6, Description: "Rewrite a while condition to false"},
	{Slug: "AS", Severity: 5, Description: "Swap two adjacent call arguments"},
	{Slug: "CR", Severity: 4, Description: "Flip boolean literals; zero or bump numeric literals"},
	{Slug: "AOS", Severity: 3, Description: "Swap arithmetic operators"},
	{Slug: "COS", Severity: 3, Description: "Swap comparison operators"},
	{Slug: "LOS", Severity: 3, Description: "Swap logical operators"},
	{Slug: "BOS", Severity: 2, Description: "Swap bitwise operators"},
	{Slug: "SOS", Severity: 2, Description: "Swap shift operators"},
	{Slug: "AAOS", Severity: 2, Description: "Swap arithmetic compound assignments"},
	{Slug: "BAOS", Severity: 2, Description: "Swap bitwise compound assignments"},
	{Slug: "SAOS", Severity: 2, Description: "Swap shift compound assignments"},
}

// CommonKinds returns a copy of the shared mutation catalog.
func CommonKinds() []m.MutationKind {
	kinds := make([]m.MutationKind, len(commonKinds))
	copy(kinds, commonKinds)

	return kinds
}

// KindBySlug looks a kind up in the given catalog.
func KindBySlug(kinds []m.MutationKind, slug string) (m.MutationKind, bool) {
	for _, k := range kinds {
		if k.Slug == slug {
			return k, true
		}
	}

	return m.MutationKind{}, false
}

// SeverityBySlug returns the catalog severity for slug, or 0 when unknown.
func SeverityBySlug(kinds []m.MutationKind, slug string) int {
	if k, ok := KindBySlug(kinds, slug); ok {
		return k.Severity
	}

	return 0
}
