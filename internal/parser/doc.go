// Package parser turns JavaScript and TypeScript source files into the typed
// entity model used for indexing and retrieval.
//
// Parsing is structural, not semantic: each file is parsed with tree-sitter
// and the resulting syntax tree is walked once, collecting named functions,
// module and function scoped variables, call targets, and module
// dependencies. No type checking or module resolution happens here.
//
// # Basic Usage
//
//	p := parser.New(25)
//
//	src, _ := os.ReadFile("controllers/product.controller.js")
//	result, err := p.ParseFile(ctx, "controllers/product.controller.js", src)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, fn := range result.File.Functions {
//	    fmt.Println(fn.ID, fn.Calls)
//	}
//
// # What Counts as a Function
//
// Four definition forms produce a Function entity:
//
//	function createProduct(req, res) { ... }     // declaration
//	const updateProduct = async (req, res) => {} // const/let/var assigned
//	exports.deleteProduct = function (req) {}    // member assignment
//	class Repo { save(entity) { ... } }          // method definition
//
// Anonymous function expressions (callbacks, IIFEs) never become entities;
// calls made inside them are attributed to the nearest enclosing named
// function. Snippets are stored verbatim from the source, spanning the whole
// declarator or statement for the assignment forms.
//
// Named functions whose snippet is shorter than the configured minimum length
// are skipped entirely, including everything defined in their bodies. A
// minimum of zero disables the filter.
//
// # Dependencies
//
// Top-level and nested require() calls with a string-literal argument are
// recorded as module dependencies, as are import statement sources and
// literal dynamic import() calls. A require() or import() whose argument is
// computed at runtime cannot name a module; it is kept as a DynamicImport
// marker on the file instead.
//
// # Error Handling
//
// A file whose tree contains syntax errors is skipped whole: ParseFile
// returns a result with a nil File and a recorded ParseError. Identifier
// collisions inside a valid file are recorded the same way without
// invalidating the file; the first entity claiming an identifier wins.
package parser
