package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// controllerModel builds a small two-file model: a controller whose handlers
// all call a validator defined in another file, with both files requiring a
// shared module.
func controllerModel(t *testing.T) *types.Model {
	t.Helper()

	validate := types.NewCodeFile("utils/validate.js", types.LangJavaScript)
	validateInput := types.NewFunction("utils/validate.js", "validateInput")
	validateInput.Snippet = "function validateInput(payload) { return schema.validate(payload); }"
	validateInput.StartLine, validateInput.EndLine = 3, 5
	require.NoError(t, validate.AddFunction(validateInput))
	validate.AddRequire("joi")

	controller := types.NewCodeFile("controllers/product.controller.js", types.LangJavaScript)
	controller.AddRequire("joi")
	controller.AddRequire("express")
	for _, name := range []string{"createProduct", "updateProduct", "deleteProduct"} {
		fn := types.NewFunction(controller.Path, name)
		fn.Snippet = "async function " + name + "(req, res) { validateInput(req.body); }"
		fn.StartLine, fn.EndLine = 10, 14
		fn.AddCall("validateInput")
		fn.CallTargets = []string{validateInput.ID}
		require.NoError(t, controller.AddFunction(fn))
	}

	taxRate := types.NewVariable(controller.Path, "TAX_RATE")
	taxRate.Kind = "const"
	taxRate.Line = 5
	require.NoError(t, controller.AddVariable(taxRate))

	scratch := types.NewVariable(validate.Path, "result")
	scratch.Kind = "let"
	scratch.Scope = types.ScopeFunction
	scratch.EnclosingFunction = validateInput.ID
	scratch.Line = 4
	require.NoError(t, validate.AddVariable(scratch))

	model := types.NewModel()
	model.AddFile(validate)
	model.AddFile(controller)
	return model
}

func buildInto(t *testing.T, store *MemoryStore, model *types.Model, runID string) *BuildResult {
	t.Helper()
	result, err := NewBuilder(store).Build(context.Background(), model, runID)
	require.NoError(t, err)
	return result
}

func TestBuildCreatesNodesAndEdges(t *testing.T) {
	store := NewMemoryStore()
	model := controllerModel(t)
	buildInto(t, store, model, "run-1")

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, 4, stats.Functions)
	assert.Equal(t, 2, stats.Modules) // joi, express
	assert.Equal(t, 2, stats.Variables)

	// 4 CONTAINS fn + 2 CONTAINS var + 3 CALLS + 3 REQUIRES + 2 DECLARES
	assert.Equal(t, 14, stats.Edges)

	ids, err := store.Identifiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.FunctionIDs(), ids)
}

func TestBuildIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	model := controllerModel(t)

	buildInto(t, store, model, "run-1")
	nodes1, edges1 := store.Snapshot()

	buildInto(t, store, model, "run-1")
	nodes2, edges2 := store.Snapshot()

	assert.Equal(t, nodes1, nodes2)
	assert.Equal(t, edges1, edges2)
}

func TestBuildThenPruneRemovesVanishedEntities(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	buildInto(t, store, controllerModel(t), "run-1")

	// Second run: only the validator file survives.
	survivor := types.NewCodeFile("utils/validate.js", types.LangJavaScript)
	fn := types.NewFunction(survivor.Path, "validateInput")
	fn.Snippet = "function validateInput(payload) { return schema.validate(payload); }"
	fn.StartLine, fn.EndLine = 3, 5
	require.NoError(t, survivor.AddFunction(fn))
	survivor.AddRequire("joi")
	model := types.NewModel()
	model.AddFile(survivor)

	buildInto(t, store, model, "run-2")
	pruned, err := store.PruneStale(ctx, "run-2")
	require.NoError(t, err)
	// controller file, 3 handlers, 2 variables, express module
	assert.Equal(t, 7, pruned)

	ids, err := store.Identifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"utils/validate.js::validateInput"}, ids)
}

func TestModuleStubCreatedByEdge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.UpsertNodes(ctx, []Node{
		{Label: LabelCodeFile, Key: "a.js", Props: map[string]any{"run_id": "run-1"}},
	}))
	require.NoError(t, store.UpsertEdges(ctx, []Edge{
		{Kind: types.RelRequires, FromLabel: LabelCodeFile, From: "a.js", ToLabel: LabelModule, To: "lodash"},
	}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Modules)
	assert.Equal(t, 1, stats.Edges)
}
