package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// extraction carries per-file walk state.
type extraction struct {
	parser *Parser
	src    []byte
	file   *types.CodeFile
	result *types.ParseResult
}

// walk visits the syntax tree recursively. enclosing is the innermost named
// function whose definition contains the node, nil at module level. Calls,
// lazy requires and declarations found in the body of a named function are
// attributed to it; constructs inside anonymous callbacks fall through to the
// nearest named function, matching how call sites are reported.
func (ex *extraction) walk(node *sitter.Node, enclosing *types.Function) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "comment", "string", "regex":
		return

	case "function_declaration", "generator_function_declaration":
		ex.declaredFunction(node, enclosing)

	case "method_definition":
		ex.methodDefinition(node, enclosing)

	case "lexical_declaration", "variable_declaration":
		ex.variableDeclaration(node, enclosing)

	case "assignment_expression":
		if !ex.memberAssignedFunction(node) {
			ex.walkChildren(node, enclosing)
		}

	case "call_expression":
		ex.callExpression(node, enclosing)

	case "import_statement":
		if source := node.ChildByFieldName("source"); source != nil {
			ex.file.AddRequire(trimQuotes(source.Content(ex.src)))
		}

	case "export_statement":
		// Re-exports ("export { x } from 'mod'") carry a dependency too.
		if source := node.ChildByFieldName("source"); source != nil {
			ex.file.AddRequire(trimQuotes(source.Content(ex.src)))
		}
		ex.walkChildren(node, enclosing)

	default:
		ex.walkChildren(node, enclosing)
	}
}

func (ex *extraction) walkChildren(node *sitter.Node, enclosing *types.Function) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		ex.walk(node.NamedChild(i), enclosing)
	}
}

// declaredFunction handles "function foo() {}" and generator forms.
func (ex *extraction) declaredFunction(node *sitter.Node, enclosing *types.Function) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		ex.walkChildren(node, enclosing)
		return
	}
	name := nameNode.Content(ex.src)
	ex.addFunction(name, node, node, hasExportAncestor(node))
}

// methodDefinition handles class methods and object shorthand methods. The
// method name alone forms the identifier; two classes in one file with the
// same method name collide, which is surfaced like any other collision.
func (ex *extraction) methodDefinition(node *sitter.Node, enclosing *types.Function) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil || nameNode.Type() != "property_identifier" {
		// Computed or string-keyed methods have no stable name.
		ex.walkChildren(node, enclosing)
		return
	}
	name := nameNode.Content(ex.src)
	ex.addFunction(name, node, node, hasExportAncestor(node))
}

// memberAssignedFunction handles "x.y = function () {}" and arrow variants.
// Assignments onto exports or module.exports mark the function exported.
// Returns false when the assignment does not define a named function.
func (ex *extraction) memberAssignedFunction(node *sitter.Node) bool {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != "member_expression" || !isFunctionNode(right.Type()) {
		return false
	}
	prop := left.ChildByFieldName("property")
	if prop == nil || prop.Type() != "property_identifier" {
		return false
	}
	name := prop.Content(ex.src)

	// The snippet spans the whole statement when one wraps the assignment.
	snippetNode := node
	if parent := node.Parent(); parent != nil && parent.Type() == "expression_statement" {
		snippetNode = parent
	}

	leftText := left.Content(ex.src)
	exported := strings.HasPrefix(leftText, "exports.") ||
		strings.HasPrefix(leftText, "module.exports") ||
		hasExportAncestor(node)

	ex.addFunction(name, snippetNode, right, exported)
	return true
}

// variableDeclaration handles const/let/var statements. Declarators holding a
// function become Functions, declarators holding a require() become REQUIRES
// bindings, everything else becomes a Variable.
func (ex *extraction) variableDeclaration(node *sitter.Node, enclosing *types.Function) {
	kind := "var"
	if kindNode := node.ChildByFieldName("kind"); kindNode != nil {
		kind = kindNode.Content(ex.src)
	} else if first := node.Child(0); first != nil {
		kind = first.Content(ex.src)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		ex.declarator(decl, kind, enclosing)
	}
}

func (ex *extraction) declarator(decl *sitter.Node, kind string, enclosing *types.Function) {
	nameNode := decl.ChildByFieldName("name")
	value := decl.ChildByFieldName("value")

	// Destructuring patterns have no single name; still visit the initializer
	// so calls inside it are attributed.
	if nameNode == nil || nameNode.Type() != "identifier" {
		if value != nil {
			ex.walk(value, enclosing)
		}
		return
	}
	name := nameNode.Content(ex.src)

	// const handler = async () => { ... }
	if value != nil && isFunctionNode(value.Type()) {
		ex.addFunction(name, decl, value, hasExportAncestor(decl))
		return
	}

	// const express = require('express')
	if value != nil && value.Type() == "call_expression" {
		if spec, dynamic, ok := requireTarget(value, ex.src); ok {
			if dynamic {
				ex.recordDynamicImport(value, enclosing)
				ex.walkArguments(value, enclosing)
			} else {
				ex.addRequire(spec, enclosing)
			}
			return
		}
	}

	v := types.NewVariable(ex.file.Path, name)
	v.Kind = kind
	v.Line = int(decl.StartPoint().Row) + 1
	if enclosing != nil {
		v.Scope = types.ScopeFunction
		v.EnclosingFunction = enclosing.ID
	}
	if err := ex.file.AddVariable(v); err != nil {
		ex.result.AddError(ex.file.Path, v.Line, err.Error())
	}
	if value != nil {
		ex.walk(value, enclosing)
	}
}

// callExpression records the call target and detects require()/import() at
// any nesting depth.
func (ex *extraction) callExpression(node *sitter.Node, enclosing *types.Function) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		ex.walkChildren(node, enclosing)
		return
	}

	switch fnNode.Type() {
	case "identifier":
		name := fnNode.Content(ex.src)
		if name == "require" {
			if spec, dynamic, ok := requireTarget(node, ex.src); ok && !dynamic {
				ex.addRequire(spec, enclosing)
				return
			}
			ex.recordDynamicImport(node, enclosing)
			ex.walkArguments(node, enclosing)
			return
		}
		if enclosing != nil {
			enclosing.AddCall(name)
		}

	case "member_expression":
		if prop := fnNode.ChildByFieldName("property"); prop != nil && prop.Type() == "property_identifier" {
			if enclosing != nil {
				enclosing.AddCall(prop.Content(ex.src))
			}
		}

	case "super":
		if enclosing != nil {
			enclosing.AddCall("super")
		}

	case "import":
		// Dynamic import(). A literal argument is a lazy dependency; a
		// computed one cannot be resolved to a module identifier.
		if spec, dynamic, ok := literalArgument(node, ex.src); ok && !dynamic {
			ex.addRequire(spec, enclosing)
			return
		}
		ex.recordDynamicImport(node, enclosing)
		ex.walkArguments(node, enclosing)
		return
	}

	ex.walkChildren(node, enclosing)
}

// addFunction registers a named function unless it falls under the
// small-function threshold, then walks its definition attributing nested
// constructs to it. A colliding identifier keeps the first entity, records
// the collision, and skips the duplicate's subtree.
func (ex *extraction) addFunction(name string, snippetNode, defNode *sitter.Node, exported bool) {
	snippet := snippetNode.Content(ex.src)
	if min := ex.parser.minFunctionLength; min > 0 && len(snippet) < min {
		ex.result.SkippedFunctions++
		return
	}

	fn := types.NewFunction(ex.file.Path, name)
	fn.Snippet = snippet
	fn.Exported = exported
	fn.StartLine = int(snippetNode.StartPoint().Row) + 1
	fn.EndLine = int(snippetNode.EndPoint().Row) + 1
	fn.Params = extractParams(defNode, ex.src)

	if err := ex.file.AddFunction(fn); err != nil {
		ex.result.AddError(ex.file.Path, fn.StartLine, err.Error())
		return
	}
	ex.walkChildren(defNode, fn)
}

func (ex *extraction) addRequire(spec string, enclosing *types.Function) {
	ex.file.AddRequire(spec)
	if enclosing != nil {
		enclosing.AddRequire(spec)
	}
}

func (ex *extraction) recordDynamicImport(callNode *sitter.Node, enclosing *types.Function) {
	enclosingID := ""
	if enclosing != nil {
		enclosingID = enclosing.ID
	}
	ex.file.AddDynamicImport(
		callNode.Content(ex.src),
		int(callNode.StartPoint().Row)+1,
		enclosingID,
	)
}

// walkArguments visits only the argument list, for call forms whose function
// part was already consumed.
func (ex *extraction) walkArguments(callNode *sitter.Node, enclosing *types.Function) {
	if args := callNode.ChildByFieldName("arguments"); args != nil {
		ex.walkChildren(args, enclosing)
	}
}

// isFunctionNode reports whether the node type is a function-valued
// expression. The grammar renamed "function" to "function_expression"; both
// spellings are accepted to stay compatible across grammar versions.
func isFunctionNode(nodeType string) bool {
	switch nodeType {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

// requireTarget inspects a call expression for the require(...) form. ok
// reports whether it is a require call at all; dynamic reports a non-literal
// argument.
func requireTarget(callNode *sitter.Node, src []byte) (spec string, dynamic, ok bool) {
	fnNode := callNode.ChildByFieldName("function")
	if fnNode == nil || fnNode.Type() != "identifier" || fnNode.Content(src) != "require" {
		return "", false, false
	}
	return literalArgumentValue(callNode, src)
}

// literalArgument inspects any call-like node for a single string-literal
// argument.
func literalArgument(callNode *sitter.Node, src []byte) (spec string, dynamic, ok bool) {
	return literalArgumentValue(callNode, src)
}

func literalArgumentValue(callNode *sitter.Node, src []byte) (spec string, dynamic, ok bool) {
	args := callNode.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return "", true, true
	}
	first := args.NamedChild(0)
	if first == nil || first.Type() != "string" {
		return "", true, true
	}
	return trimQuotes(first.Content(src)), false, true
}

// extractParams pulls parameter texts from a function-like node. Arrow
// functions with a single bare parameter use the "parameter" field instead of
// a parenthesized list.
func extractParams(fnNode *sitter.Node, src []byte) []string {
	if fnNode == nil {
		return nil
	}
	if single := fnNode.ChildByFieldName("parameter"); single != nil {
		return []string{single.Content(src)}
	}
	params := fnNode.ChildByFieldName("parameters")
	if params == nil {
		// For declarator-hosted functions the parameters live on the value.
		if value := fnNode.ChildByFieldName("value"); value != nil {
			return extractParams(value, src)
		}
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if p := params.NamedChild(i); p != nil {
			out = append(out, p.Content(src))
		}
	}
	return out
}

func hasExportAncestor(node *sitter.Node) bool {
	for n := node.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "export_statement":
			return true
		case "program":
			return false
		}
	}
	return false
}

func trimQuotes(s string) string {
	return strings.Trim(s, "\"'`")
}
