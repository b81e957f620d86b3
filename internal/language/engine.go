package language

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/pattern"
)

// Engine is the capability set one language supplies.
type Engine interface {
	// Name is the display name, e.g. "Go".
	Name() string

	// Extensions lists handled file extensions, lowercased, no dot.
	Extensions() []string

	// Grammar returns the lazily initialized tree-sitter grammar handle.
	// The handle is immutable once initialized and safe to share.
	Grammar() *sitter.Language

	// Mutations returns the catalog of kinds this engine implements.
	Mutations() []m.MutationKind

	// ApplyAll parses the target text and produces the complete mutant
	// set. It is a pure function of the target text: same input, same
	// mutants in the same order. A text the grammar cannot parse yields
	// an empty set; partial error trees are traversed normally.
	ApplyAll(target m.Target) []m.Mutant
}

// decorate turns pattern edits into mutants for the given target and
// slug. The primitives guarantee start <= end <= len(src).
func decorate(edits []pattern.Edit, target m.Target, slug string) []m.Mutant {
	mutants := make([]m.Mutant, 0, len(edits))

	for _, e := range edits {
		mutants = append(mutants, m.Mutant{
			TargetID:    target.ID,
			Slug:        slug,
			Start:       e.Start,
			End:         e.End,
			Replacement: e.Replacement,
			Line:        e.Line,
			Snippet:     target.Text[e.Start:e.End],
		})
	}

	return mutants
}

// sortMutants fixes the deterministic order required of ApplyAll:
// (line, start, slug) ascending.
func sortMutants(mutants []m.Mutant) []m.Mutant {
	sort.SliceStable(mutants, func(i, j int) bool {
		a, b := mutants[i], mutants[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}

		return a.Slug < b.Slug
	})

	return mutants
}

// parse runs the grammar over src and returns the root node, or nil when
// the parser produced no tree.
func parse(lang *sitter.Language, src string) *sitter.Node {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(context.Background(), nil, []byte(src))
	if err != nil || tree == nil {
		return nil
	}

	return tree.RootNode()
}

// Operator maps shared by the engines. The Go and Rust engines use all four;
// the JavaScript engine uses the logical and bitwise maps and its own
// comparison and shift maps (adding ===, !== and >>>). Arithmetic and
// compound maps differ per language.
var (
	comparisonOps = map[string]string{
		"<": ">", ">": "<", "<=": ">=", ">=": "<=", "==": "!=", "!=": "==",
	}
	logicalOps = map[string]string{"&&": "||", "||": "&&"}
	shiftOps   = map[string]string{"<<": ">>", ">>": "<<"}
	bitwiseOps = map[string]string{"&": "|", "|": "&", "^": "&"}
)

// numericFlip implements the CR transform for integer-shaped literals:
// zero becomes one, anything else becomes zero.
func numericFlip(zero, one string) func(string) (string, bool) {
	return func(text string) (string, bool) {
		if text == zero {
			return one, true
		}

		return zero, true
	}
}
