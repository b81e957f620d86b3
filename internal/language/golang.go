package language

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/pattern"
)

// Node kinds and field names from the tree-sitter-go grammar.
const (
	goBinaryExpression    = "binary_expression"
	goAssignment          = "assignment_statement"
	goExpressionStatement = "expression_statement"
	goReturnStatement     = "return_statement"
	goShortVarDeclaration = "short_var_declaration"
	goIfStatement         = "if_statement"
	goForStatement        = "for_statement"
	goCallExpression      = "call_expression"
	goBlock               = "block"
	goIntLiteral          = "int_literal"
	goFloatLiteral        = "float_literal"
	goTrue                = "true"
	goFalse               = "false"
	goTypeArguments       = "type_arguments"
	goTypeParameterList   = "type_parameter_list"

	goFieldCondition = "condition"
	goFieldBody      = "body"
	goFieldArguments = "arguments"
)

var goGrammar = sync.OnceValue(golang.GetLanguage)

// GoEngine mutates Go sources.
type GoEngine struct {
	kinds []m.MutationKind
}

// NewGoEngine builds the Go engine with the common mutation catalog.
func NewGoEngine() *GoEngine {
	return &GoEngine{kinds: CommonKinds()}
}

func (e *GoEngine) Name() string { return "Go" }

func (e *GoEngine) Extensions() []string { return []string{"go"} }

func (e *GoEngine) Grammar() *sitter.Language { return goGrammar() }

func (e *GoEngine) Mutations() []m.MutationKind { return e.kinds }

// goStatementKinds are the statement shapes ER replaces wholesale.
var goStatementKinds = []string{
	goExpressionStatement,
	goReturnStatement,
	goShortVarDeclaration,
	goIfStatement,
	goForStatement,
}

func (e *GoEngine) ApplyAll(target m.Target) []m.Mutant {
	src := target.Text

	root := parse(e.Grammar(), src)
	if root == nil {
		return nil
	}

	// Type parameter brackets parse as dedicated nodes, but partial trees
	// can misfile them; the guard keeps operator swaps out of generics.
	notGeneric := func(n *sitter.Node, _ string) bool {
		return !pattern.HasAncestorOfKind(n, goTypeArguments, goTypeParameterList)
	}

	var mutants []m.Mutant

	for _, kind := range e.kinds {
		var edits []pattern.Edit

		switch kind.Slug {
		case "ER":
			edits = pattern.Replace(root, src, goStatementKinds, `panic("mewt")`,
				func(n *sitter.Node, s string) bool {
					return !containsSentinel(n, s, "panic(")
				})
		case "CR":
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{goTrue, goFalse}, flipBool)...)
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{goIntLiteral}, numericFlip("0", "1"))...)
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{goFloatLiteral}, numericFlip("0.0", "1.0"))...)
		case "IF":
			edits = pattern.ReplaceField(root, src, goIfStatement, goFieldCondition, "false")
		case "IT":
			edits = pattern.ReplaceField(root, src, goIfStatement, goFieldCondition, "true")
		case "WF":
			// Go spells while as a bare for-with-condition.
			edits = pattern.ReplaceField(root, src, goForStatement, goFieldCondition, "false")
		case "AS":
			edits = pattern.SwapArgs(root, src, []string{goCallExpression}, goFieldArguments)
		case "LC":
			edits = pattern.ReplaceField(root, src, goForStatement, goFieldBody, "{}")
		case "BL":
			edits = pattern.DeleteLast(root, src, []string{goBlock})
		case "AOS":
			edits = pattern.SwapOperator(root, src, []string{goBinaryExpression},
				map[string]string{"+": "-", "-": "+", "*": "/", "/": "*", "%": "*"}, notGeneric)
		case "BOS":
			edits = pattern.SwapOperator(root, src, []string{goBinaryExpression}, bitwiseOps, notGeneric)
		case "LOS":
			edits = pattern.SwapOperator(root, src, []string{goBinaryExpression}, logicalOps, notGeneric)
		case "COS":
			edits = pattern.SwapOperator(root, src, []string{goBinaryExpression}, comparisonOps, notGeneric)
		case "SOS":
			edits = pattern.SwapOperator(root, src, []string{goBinaryExpression}, shiftOps, notGeneric)
		case "AAOS":
			edits = pattern.SwapOperator(root, src, []string{goAssignment},
				map[string]string{"+=": "-=", "-=": "+=", "*=": "/=", "/=": "*="}, nil)
		case "BAOS":
			edits = pattern.SwapOperator(root, src, []string{goAssignment},
				map[string]string{"&=": "|=", "|=": "&=", "^=": "&="}, nil)
		case "SAOS":
			edits = pattern.SwapOperator(root, src, []string{goAssignment},
				map[string]string{"<<=": ">>=", ">>=": "<<="}, nil)
		}

		mutants = append(mutants, decorate(edits, target, kind.Slug)...)
	}

	return sortMutants(mutants)
}

// flipBool is the boolean half of the CR transform.
func flipBool(text string) (string, bool) {
	switch text {
	case "true":
		return "false", true
	case "false":
		return "true", true
	}

	return "", false
}

// containsSentinel reports whether the node text already carries the
// fatal-error sentinel, so ER does not stack error on error.
func containsSentinel(n *sitter.Node, src, sentinel string) bool {
	return strings.Contains(n.Content([]byte(src)), sentinel)
}
