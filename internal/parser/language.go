package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// DetectLanguage maps a file extension to its grammar. Returns
// types.ErrUnsupportedLanguage for anything outside the JavaScript family.
func DetectLanguage(path string) (types.Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return types.LangJavaScript, nil
	case ".ts", ".mts", ".cts":
		return types.LangTypeScript, nil
	case ".tsx":
		return types.LangTSX, nil
	default:
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, path)
	}
}

// SupportedFile reports whether the path has a recognized source extension.
func SupportedFile(path string) bool {
	_, err := DetectLanguage(path)
	return err == nil
}

func grammarFor(lang types.Language) (*sitter.Language, error) {
	switch lang {
	case types.LangJavaScript:
		return javascript.GetLanguage(), nil
	case types.LangTypeScript:
		return typescript.GetLanguage(), nil
	case types.LangTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedLanguage, lang)
	}
}
