package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// Parser turns JavaScript/TypeScript source into CodeFile entities by walking
// the concrete syntax tree. It is stateless per file; one Parser may be shared
// across goroutines because each ParseFile call owns its own tree-sitter
// parser instance.
type Parser struct {
	// minFunctionLength excludes functions whose snippet is shorter, in
	// bytes. Trivial functions add index noise, but the filter also drops
	// legitimate small retrieval targets, so 0 disables it.
	minFunctionLength int
}

// New creates a Parser. minFunctionLength of 0 disables small-function
// filtering.
func New(minFunctionLength int) *Parser {
	if minFunctionLength < 0 {
		minFunctionLength = 0
	}
	return &Parser{minFunctionLength: minFunctionLength}
}

// ParseFile parses one source file into its entity representation. relPath is
// the repository-relative path used for identifiers. A file with syntax errors
// yields a result with File == nil and a recorded ParseError; the caller skips
// the file and continues the run.
func (p *Parser) ParseFile(ctx context.Context, relPath string, src []byte) (*types.ParseResult, error) {
	lang, err := DetectLanguage(relPath)
	if err != nil {
		return nil, err
	}
	grammar, err := grammarFor(lang)
	if err != nil {
		return nil, err
	}

	sp := sitter.NewParser()
	defer sp.Close()
	sp.SetLanguage(grammar)

	tree, err := sp.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", relPath, err)
	}
	defer tree.Close()

	result := &types.ParseResult{}
	root := tree.RootNode()
	if root.HasError() {
		result.AddError(relPath, firstErrorLine(root), "syntax error")
		return result, nil
	}

	cf := types.NewCodeFile(relPath, lang)
	ex := &extraction{
		parser: p,
		src:    src,
		file:   cf,
		result: result,
	}
	ex.walk(root, nil)

	result.File = cf
	return result, nil
}

// firstErrorLine locates the first ERROR or missing node so the recorded
// warning points somewhere useful.
func firstErrorLine(node *sitter.Node) int {
	if node.IsError() || node.IsMissing() {
		return int(node.StartPoint().Row) + 1
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !child.HasError() {
			continue
		}
		return firstErrorLine(child)
	}
	return int(node.StartPoint().Row) + 1
}
