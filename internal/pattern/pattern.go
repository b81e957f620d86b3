// Package pattern provides generic CST-walking primitives that turn a
// mutation pattern plus a parsed tree into candidate text edits. The
// primitives are language-agnostic: node-kind strings, operator maps and
// predicates carry the per-language variability.
package pattern

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Edit is one candidate replacement of a byte range in the source text.
// Start and End index the original source; Line is 1-based and derived
// from Start.
type Edit struct {
	Start       int
	End         int
	Replacement string
	Line        int
}

// Predicate filters candidate nodes. Engines install guards here, e.g. to
// suppress operator swaps inside generic type arguments.
type Predicate func(node *sitter.Node, src string) bool

// Replace emits one edit per node whose kind is in kinds, replacing the
// whole node with replacement. Nodes nested inside an already-matched kind
// are skipped, as are nodes inside comments. A nil pred accepts everything.
func Replace(root *sitter.Node, src string, kinds []string, replacement string, pred Predicate) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if !kindIn(n, kinds) || inComment(n) || hasAncestorOfKind(n, kinds) {
			return
		}

		if pred != nil && !pred(n, src) {
			return
		}

		edits = append(edits, editFor(n, src, replacement))
	})

	return sortEdits(edits)
}

// ReplaceField emits one edit per node of parentKind, replacing the child
// resolved via field with replacement. Parenthesized children keep their
// parentheses around the replacement so the rewrite stays syntactic.
func ReplaceField(root *sitter.Node, src string, parentKind, field, replacement string) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if n.Type() != parentKind || inComment(n) {
			return
		}

		child := n.ChildByFieldName(field)
		if child == nil {
			return
		}

		old := child.Content([]byte(src))
		text := replacement
		if strings.HasPrefix(strings.TrimSpace(old), "(") && strings.HasSuffix(strings.TrimSpace(old), ")") {
			text = "(" + replacement + ")"
		}

		edits = append(edits, editFor(child, src, text))
	})

	return sortEdits(edits)
}

// ReplaceLiteral applies transform to every node whose kind is in kinds.
// The transform returns the new text and true, or false to decline the
// candidate.
func ReplaceLiteral(root *sitter.Node, src string, kinds []string, transform func(string) (string, bool)) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if !kindIn(n, kinds) || inComment(n) {
			return
		}

		replacement, ok := transform(n.Content([]byte(src)))
		if !ok {
			return
		}

		edits = append(edits, editFor(n, src, replacement))
	})

	return sortEdits(edits)
}

// SwapArgs emits one edit per adjacent positional argument pair of every
// call node, replacing the pair's slice with the reordered text.
func SwapArgs(root *sitter.Node, src string, callKinds []string, argsField string) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if !kindIn(n, callKinds) || inComment(n) {
			return
		}

		argsNode := n.ChildByFieldName(argsField)
		if argsNode == nil {
			return
		}

		var args []*sitter.Node

		for i := 0; i < int(argsNode.ChildCount()); i++ {
			child := argsNode.Child(i)
			if child.IsNamed() && child.Type() != "comment" {
				args = append(args, child)
			}
		}

		for i := 0; i+1 < len(args); i++ {
			a, b := args[i], args[i+1]
			start := int(a.StartByte())
			end := int(b.EndByte())
			swapped := b.Content([]byte(src)) + ", " + a.Content([]byte(src))

			edits = append(edits, Edit{
				Start:       start,
				End:         end,
				Replacement: swapped,
				Line:        LineOf(src, start),
			})
		}
	})

	return sortEdits(edits)
}

// SwapOperator rewrites operator tokens of binary-style expressions per
// opMap, one edit per occurrence. The predicate guards the expression node
// itself; engines use it to suppress false positives such as type
// parameter brackets.
func SwapOperator(root *sitter.Node, src string, exprKinds []string, opMap map[string]string, pred Predicate) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if !kindIn(n, exprKinds) || inComment(n) {
			return
		}

		if pred != nil && !pred(n, src) {
			return
		}

		op := n.ChildByFieldName("operator")
		if op == nil {
			op = firstOperatorChild(n, src, opMap)
		}

		if op == nil {
			return
		}

		token := op.Content([]byte(src))

		replacement, ok := opMap[token]
		if !ok || replacement == token {
			return
		}

		edits = append(edits, editFor(op, src, replacement))
	})

	return sortEdits(edits)
}

// DeleteLast emits one edit per block node, deleting the block's last
// statement. Blocks without statements yield nothing.
func DeleteLast(root *sitter.Node, src string, blockKinds []string) []Edit {
	var edits []Edit

	visit(root, func(n *sitter.Node) {
		if !kindIn(n, blockKinds) || inComment(n) {
			return
		}

		var last *sitter.Node

		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() != "comment" {
				last = child
			}
		}

		if last == nil {
			return
		}

		edits = append(edits, editFor(last, src, ""))
	})

	return sortEdits(edits)
}

// LineOf returns the 1-based line number of the byte offset in src.
func LineOf(src string, offset int) int {
	if offset > len(src) {
		offset = len(src)
	}

	return 1 + strings.Count(src[:offset], "\n")
}

func editFor(n *sitter.Node, src, replacement string) Edit {
	start := int(n.StartByte())

	return Edit{
		Start:       start,
		End:         int(n.EndByte()),
		Replacement: replacement,
		Line:        LineOf(src, start),
	}
}

func visit(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)

	for i := 0; i < int(n.ChildCount()); i++ {
		visit(n.Child(i), fn)
	}
}

func kindIn(n *sitter.Node, kinds []string) bool {
	kind := n.Type()
	for _, k := range kinds {
		if kind == k {
			return true
		}
	}

	return false
}

func inComment(n *sitter.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Type() == "comment" {
			return true
		}
	}

	return false
}

func hasAncestorOfKind(n *sitter.Node, kinds []string) bool {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if kindIn(cur, kinds) {
			return true
		}
	}

	return false
}

// HasAncestorOfKind reports whether any ancestor of n has one of the given
// kinds. Exposed for engine predicates.
func HasAncestorOfKind(n *sitter.Node, kinds ...string) bool {
	return hasAncestorOfKind(n, kinds)
}

func firstOperatorChild(n *sitter.Node, src string, opMap map[string]string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}

		if _, ok := opMap[child.Content([]byte(src))]; ok {
			return child
		}
	}

	return nil
}

func sortEdits(edits []Edit) []Edit {
	// Pre-order traversal already yields source order for siblings; a
	// stable sort keeps the guarantee when field lookups visit out of
	// order.
	for i := 1; i < len(edits); i++ {
		for j := i; j > 0 && less(edits[j], edits[j-1]); j-- {
			edits[j], edits[j-1] = edits[j-1], edits[j]
		}
	}

	return edits
}

func less(a, b Edit) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}

	return a.End < b.End
}
