package language

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	m "mewt.dev/pkg/mewt/internal/model"
	"mewt.dev/pkg/mewt/internal/pattern"
)

// Node kinds and field names shared by the javascript, typescript and tsx
// grammars.
const (
	jsBinaryExpression    = "binary_expression"
	jsAugmentedAssignment = "augmented_assignment_expression"
	jsExpressionStatement = "expression_statement"
	jsReturnStatement     = "return_statement"
	jsVariableDeclaration = "variable_declaration"
	jsLexicalDeclaration  = "lexical_declaration"
	jsIfStatement         = "if_statement"
	jsWhileStatement      = "while_statement"
	jsForStatement        = "for_statement"
	jsForInStatement      = "for_in_statement"
	jsDoStatement         = "do_statement"
	jsCallExpression      = "call_expression"
	jsStatementBlock      = "statement_block"
	jsTrue                = "true"
	jsFalse               = "false"
	jsNumber              = "number"
	jsTypeArguments       = "type_arguments"
	jsTypeParameters      = "type_parameters"

	jsFieldCondition = "condition"
	jsFieldBody      = "body"
	jsFieldArguments = "arguments"
)

var (
	jsGrammar  = sync.OnceValue(javascript.GetLanguage)
	tsGrammar  = sync.OnceValue(typescript.GetLanguage)
	tsxGrammar = sync.OnceValue(tsx.GetLanguage)
)

// JavaScriptEngine mutates JavaScript and TypeScript sources. The grammar
// is selected per file extension; jsx shares the javascript grammar.
type JavaScriptEngine struct {
	kinds []m.MutationKind
}

// NewJavaScriptEngine builds the engine with the common mutation catalog.
func NewJavaScriptEngine() *JavaScriptEngine {
	return &JavaScriptEngine{kinds: CommonKinds()}
}

func (e *JavaScriptEngine) Name() string { return "JavaScript" }

func (e *JavaScriptEngine) Extensions() []string { return []string{"js", "jsx", "ts", "tsx"} }

// Grammar returns the javascript grammar; ApplyAll picks the typescript or
// tsx variant when the target extension calls for it.
func (e *JavaScriptEngine) Grammar() *sitter.Language { return jsGrammar() }

func (e *JavaScriptEngine) Mutations() []m.MutationKind { return e.kinds }

func (e *JavaScriptEngine) grammarFor(path m.Path) *sitter.Language {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(string(path)), ".")) {
	case "ts":
		return tsGrammar()
	case "tsx":
		return tsxGrammar()
	}

	return jsGrammar()
}

var jsStatementKinds = []string{
	jsExpressionStatement,
	jsReturnStatement,
	jsVariableDeclaration,
	jsLexicalDeclaration,
	jsIfStatement,
	jsWhileStatement,
	jsForStatement,
	jsForInStatement,
	jsDoStatement,
}

var jsLoopKinds = []string{jsForStatement, jsForInStatement, jsWhileStatement, jsDoStatement}

func (e *JavaScriptEngine) ApplyAll(target m.Target) []m.Mutant {
	src := target.Text

	root := parse(e.grammarFor(target.Path), src)
	if root == nil {
		return nil
	}

	// Generic call sites like foo<string, number>(a, b) must not yield
	// operator swaps on the angle brackets.
	notGeneric := func(n *sitter.Node, _ string) bool {
		return !pattern.HasAncestorOfKind(n, jsTypeArguments, jsTypeParameters)
	}

	var mutants []m.Mutant

	for _, kind := range e.kinds {
		var edits []pattern.Edit

		switch kind.Slug {
		case "ER":
			edits = pattern.Replace(root, src, jsStatementKinds, `throw new Error("mewt");`,
				func(n *sitter.Node, s string) bool {
					return !strings.Contains(n.Content([]byte(s)), "throw ")
				})
		case "CR":
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{jsTrue, jsFalse}, flipBool)...)
			edits = append(edits,
				pattern.ReplaceLiteral(root, src, []string{jsNumber}, numericFlip("0", "1"))...)
		case "IF":
			edits = pattern.ReplaceField(root, src, jsIfStatement, jsFieldCondition, "false")
		case "IT":
			edits = pattern.ReplaceField(root, src, jsIfStatement, jsFieldCondition, "true")
		case "WF":
			edits = pattern.ReplaceField(root, src, jsWhileStatement, jsFieldCondition, "false")
		case "AS":
			edits = pattern.SwapArgs(root, src, []string{jsCallExpression}, jsFieldArguments)
		case "LC":
			for _, loop := range jsLoopKinds {
				edits = append(edits, pattern.ReplaceField(root, src, loop, jsFieldBody, "{}")...)
			}
		case "BL":
			edits = pattern.DeleteLast(root, src, []string{jsStatementBlock})
		case "AOS":
			edits = pattern.SwapOperator(root, src, []string{jsBinaryExpression},
				map[string]string{"+": "-", "-": "+", "*": "/", "/": "*", "%": "*", "**": "*"}, notGeneric)
		case "BOS":
			edits = pattern.SwapOperator(root, src, []string{jsBinaryExpression}, bitwiseOps, notGeneric)
		case "LOS":
			edits = pattern.SwapOperator(root, src, []string{jsBinaryExpression}, logicalOps, notGeneric)
		case "COS":
			edits = pattern.SwapOperator(root, src, []string{jsBinaryExpression},
				map[string]string{
					"<": ">", ">": "<", "<=": ">=", ">=": "<=",
					"==": "!=", "!=": "==", "===": "!==", "!==": "===",
				}, notGeneric)
		case "SOS":
			edits = pattern.SwapOperator(root, src, []string{jsBinaryExpression},
				map[string]string{"<<": ">>", ">>": "<<", ">>>": "<<"}, notGeneric)
		case "AAOS":
			edits = pattern.SwapOperator(root, src, []string{jsAugmentedAssignment},
				map[string]string{"+=": "-=", "-=": "+=", "*=": "/=", "/=": "*=", "%=": "*="}, nil)
		case "BAOS":
			edits = pattern.SwapOperator(root, src, []string{jsAugmentedAssignment},
				map[string]string{"&=": "|=", "|=": "&=", "^=": "&="}, nil)
		case "SAOS":
			edits = pattern.SwapOperator(root, src, []string{jsAugmentedAssignment},
				map[string]string{"<<=": ">>=", ">>=": "<<=", ">>>=": "<<="}, nil)
		}

		mutants = append(mutants, decorate(edits, target, kind.Slug)...)
	}

	return sortMutants(mutants)
}
