package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeID(t *testing.T) {
	id := CompositeID("controllers/product.controller.js", "createProduct")
	assert.Equal(t, "controllers/product.controller.js::createProduct", id)

	path, name := SplitID(id)
	assert.Equal(t, "controllers/product.controller.js", path)
	assert.Equal(t, "createProduct", name)
}

func TestSplitIDWithoutSeparator(t *testing.T) {
	path, name := SplitID("bare")
	assert.Empty(t, path)
	assert.Equal(t, "bare", name)
}

func TestAddFunctionCollision(t *testing.T) {
	cf := NewCodeFile("routes/user.js", LangJavaScript)

	first := NewFunction(cf.Path, "getUser")
	require.NoError(t, cf.AddFunction(first))

	dup := NewFunction(cf.Path, "getUser")
	err := cf.AddFunction(dup)
	require.ErrorIs(t, err, ErrIdentifierCollision)

	// First entity wins; the duplicate is not registered.
	require.Len(t, cf.Functions, 1)
	assert.Same(t, first, cf.Functions[0])
}

func TestFunctionVariableSharedNamespace(t *testing.T) {
	cf := NewCodeFile("lib/cache.js", LangJavaScript)

	require.NoError(t, cf.AddFunction(NewFunction(cf.Path, "store")))

	v := NewVariable(cf.Path, "store")
	err := cf.AddVariable(v)
	require.ErrorIs(t, err, ErrIdentifierCollision)
	assert.Empty(t, cf.Variables)
}

func TestAddRequireDeduplicates(t *testing.T) {
	cf := NewCodeFile("app.js", LangJavaScript)
	cf.AddRequire("express")
	cf.AddRequire("mongoose")
	cf.AddRequire("express")

	assert.Equal(t, []string{"express", "mongoose"}, cf.Requires)
}

func TestFunctionAddCallKeepsFirstOccurrenceOrder(t *testing.T) {
	fn := NewFunction("app.js", "handler")
	fn.AddCall("validateInput")
	fn.AddCall("save")
	fn.AddCall("validateInput")

	assert.Equal(t, []string{"validateInput", "save"}, fn.Calls)
}

func TestFunctionValidate(t *testing.T) {
	fn := NewFunction("app.js", "run")
	fn.Snippet = "function run() {}"
	fn.StartLine = 1
	fn.EndLine = 1
	require.NoError(t, fn.Validate())

	tests := []struct {
		name   string
		mutate func(*Function)
	}{
		{"EmptySnippet", func(f *Function) { f.Snippet = "" }},
		{"BadPosition", func(f *Function) { f.EndLine = 0 }},
		{"MismatchedID", func(f *Function) { f.ID = "other.js::run" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := *fn
			tt.mutate(&bad)
			assert.Error(t, bad.Validate())
		})
	}
}

func TestVariableValidateScopes(t *testing.T) {
	v := NewVariable("app.js", "port")
	v.Kind = "const"
	v.Line = 3
	require.NoError(t, v.Validate())

	v.Scope = ScopeFunction
	assert.Error(t, v.Validate(), "function scope requires an enclosing function")

	v.EnclosingFunction = CompositeID("app.js", "main")
	require.NoError(t, v.Validate())
}

func TestModelCollectsModulesAndIdentifiers(t *testing.T) {
	m := NewModel()

	a := NewCodeFile("a.js", LangJavaScript)
	a.AddRequire("express")
	fnA := NewFunction(a.Path, "alpha")
	fnA.AddRequire("lodash")
	require.NoError(t, a.AddFunction(fnA))

	b := NewCodeFile("b.js", LangJavaScript)
	b.AddRequire("express")
	require.NoError(t, b.AddFunction(NewFunction(b.Path, "beta")))

	m.AddFile(a)
	m.AddFile(b)

	names := make([]string, 0, len(m.Modules))
	for _, mod := range m.Modules {
		names = append(names, mod.Name)
	}
	assert.ElementsMatch(t, []string{"express", "lodash"}, names)
	assert.Equal(t, []string{"a.js::alpha", "b.js::beta"}, m.FunctionIDs())
}

func TestQueryResultValidate(t *testing.T) {
	vec := QueryResult{Identifier: "a.js::alpha", Score: 0.8, Source: SourceVector}
	require.NoError(t, vec.Validate())

	graph := QueryResult{Identifier: "a.js::beta", Source: SourceGraph, Relations: []string{"calls"}}
	require.NoError(t, graph.Validate())

	bad := QueryResult{Identifier: "a.js::gamma", Source: SourceGraph}
	assert.Error(t, bad.Validate())
}
