package language

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/pattern"
)

// Node kinds and field names from the tree-sitter-rust grammar.
const (
	rustBinaryExpression    = "binary_expression"
	rustCompoundAssignment  = "compound_assignment_expr"
	rustExpressionStatement = "expression_statement"
	rustReturnExpression    = "return_expression"
	rustLetDeclaration      = "let_declaration"
	rustIfExpression        = "if_expression"
	rustWhileExpression     = "while_expression"
	rustForExpression       = "for_expression"
	rustLoopExpression      = "loop_expression"
	rustCallExpression      = "call_expression"
	rustBlock               = "block"
	rustBooleanLiteral      = "boolean_literal"
	rustIntegerLiteral      = "integer_literal"
	rustFloatLiteral        = "float_literal"
	rustTypeArguments       = "type_arguments"
	rustTypeParameters      = "type_parameters"

	rustFieldCondition = "condition"
	rustFieldBody      = "body"
	rustFieldArguments = "arguments"
)

var rustGrammar = sync.OnceValue(rust.GetLanguage)

// RustEngine mutates Rust sources.
type RustEngine struct {
	kinds []m.MutationKind
}

// NewRustEngine builds the Rust engine with the common mutation catalog.
func NewRustEngine() *RustEngine {
	return &RustEngine{kinds: CommonKinds()}
}

func (e *RustEngine) Name() string { return "Rust" }

func (e *RustEngine) Extensions() []string { return []string{"rs"} }

func (e *RustEngine) Grammar() *sitter.Language { return rustGrammar() }

func (e *RustEngine) Mutations() []m.MutationKind { return e.kinds }

var rustStatementKinds = []string{
	rustExpressionStatement,
	rustReturnExpression,
	rustLetDeclaration,
	rustIfExpression,
	rustWhileExpression,
	rustForExpression,
}

var rustLoopKinds = []string{rustForExpression, rustWhileExpression, rustLoopExpression}

func (e *RustEngine) ApplyAll(target m.Target) []m.Mutant {
	src := target.Text

	root := parse(e.Grammar(), src)
	if root == nil {
		return nil
	}

	notGeneric := func(n *sitter.Node, _ string) bool {
		return !pattern.HasAncestorOfKind(n, rustTypeArguments, rustTypeParameters)
	}

	var mutants []m.Mutant

	for _, kind := range e.kinds {
		var edits []pattern.Edit

		switch kind.Slug {
		case "ER":
			edits = pattern.Replace(root, src, rustStatementKinds, `panic!("mewt")`,
				func(n *sitter.Node, s string) bool {
					return !strings.Contains(n.Content([]byte(s)), "panic!")
				})
		case "CR":
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{rustBooleanLiteral}, flipBool)...)
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{rustIntegerLiteral}, numericFlip("0", "1"))...)
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{rustFloatLiteral}, numericFlip("0.0", "1.0"))...)
		case "IF":
			edits = pattern.ReplaceField(root, src, rustIfExpression, rustFieldCondition, "false")
		case "IT":
			edits = pattern.ReplaceField(root, src, rustIfExpression, rustFieldCondition, "true")
		case "WF":
			edits = pattern.ReplaceField(root, src, rustWhileExpression, rustFieldCondition, "false")
		case "AS":
			edits = pattern.SwapArgs(root, src, []string{rustCallExpression}, rustFieldArguments)
		case "LC":
			for _, loop := range rustLoopKinds {
				edits = append(edits, pattern.ReplaceField(root, src, loop, rustFieldBody, "{}")...)
			}
		case "BL":
			edits = pattern.DeleteLast(root, src, []string{rustBlock})
		case "AOS":
			edits = pattern.SwapOperator(root, src, []string{rustBinaryExpression},
				map[string]string{"+": "-", "-": "+", "*": "/", "/": "*", "%": "*"}, notGeneric)
		case "BOS":
			edits = pattern.SwapOperator(root, src, []string{rustBinaryExpression}, bitwiseOps, notGeneric)
		case "LOS":
			edits = pattern.SwapOperator(root, src, []string{rustBinaryExpression}, logicalOps, notGeneric)
		case "COS":
			edits = pattern.SwapOperator(root, src, []string{rustBinaryExpression}, comparisonOps, notGeneric)
		case "SOS":
			edits = pattern.SwapOperator(root, src, []string{rustBinaryExpression}, shiftOps, notGeneric)
		case "AAOS":
			edits = pattern.SwapOperator(root, src, []string{rustCompoundAssignment},
				map[string]string{"+=": "-=", "-=": "+=", "*=": "/=", "/=": "*="}, nil)
		case "BAOS":
			edits = pattern.SwapOperator(root, src, []string{rustCompoundAssignment},
				map[string]string{"&=": "|=", "|=": "&=", "^=": "&="}, nil)
		case "SAOS":
			edits = pattern.SwapOperator(root, src, []string{rustCompoundAssignment},
				map[string]string{"<<=": ">>=", ">>=": "<<="}, nil)
		}

		mutants = append(mutants, decorate(edits, target, kind.Slug)...)
	}

	return sortMutants(mutants)
}
