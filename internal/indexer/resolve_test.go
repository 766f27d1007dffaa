package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

func fileWithFunctions(t *testing.T, path string, names ...string) *types.CodeFile {
	t.Helper()
	cf := types.NewCodeFile(path, types.LangJavaScript)
	for _, name := range names {
		fn := types.NewFunction(path, name)
		fn.Snippet = "function " + name + "() {}"
		fn.StartLine, fn.EndLine = 1, 1
		require.NoError(t, cf.AddFunction(fn))
	}
	return cf
}

func TestResolveCallsAcrossFiles(t *testing.T) {
	caller := fileWithFunctions(t, "a.js", "run")
	caller.Functions[0].AddCall("helper")
	callee := fileWithFunctions(t, "b.js", "helper")

	model := types.NewModel()
	model.AddFile(caller)
	model.AddFile(callee)

	resolved, dropped := ResolveCalls(model)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, []string{"b.js::helper"}, caller.Functions[0].CallTargets)
}

func TestResolveCallsFirstDefinitionWins(t *testing.T) {
	// Two files define "format"; a call resolves to the one in the file
	// added first.
	first := fileWithFunctions(t, "a.js", "format")
	second := fileWithFunctions(t, "z.js", "format")
	caller := fileWithFunctions(t, "m.js", "render")
	caller.Functions[0].AddCall("format")

	model := types.NewModel()
	model.AddFile(first)
	model.AddFile(caller)
	model.AddFile(second)

	resolved, _ := ResolveCalls(model)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, []string{"a.js::format"}, caller.Functions[0].CallTargets)
}

func TestResolveCallsDropsUnknownNames(t *testing.T) {
	caller := fileWithFunctions(t, "a.js", "run")
	caller.Functions[0].AddCall("parseInt")
	caller.Functions[0].AddCall("console")

	model := types.NewModel()
	model.AddFile(caller)

	resolved, dropped := ResolveCalls(model)
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 2, dropped)
	assert.Empty(t, caller.Functions[0].CallTargets)
}

func TestResolveCallsIsRepeatable(t *testing.T) {
	caller := fileWithFunctions(t, "a.js", "run")
	caller.Functions[0].AddCall("helper")
	model := types.NewModel()
	model.AddFile(caller)
	model.AddFile(fileWithFunctions(t, "b.js", "helper"))

	ResolveCalls(model)
	resolved, dropped := ResolveCalls(model)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, []string{"b.js::helper"}, caller.Functions[0].CallTargets)
}
