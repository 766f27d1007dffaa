package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

func parseSource(t *testing.T, p *Parser, path, src string) *types.ParseResult {
	t.Helper()
	result, err := p.ParseFile(context.Background(), path, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func findFunction(t *testing.T, file *types.CodeFile, name string) *types.Function {
	t.Helper()
	for _, fn := range file.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found in %s", name, file.Path)
	return nil
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want types.Language
		ok   bool
	}{
		{"app.js", types.LangJavaScript, true},
		{"components/App.jsx", types.LangJavaScript, true},
		{"server.mjs", types.LangJavaScript, true},
		{"legacy.cjs", types.LangJavaScript, true},
		{"service.ts", types.LangTypeScript, true},
		{"worker.mts", types.LangTypeScript, true},
		{"Panel.tsx", types.LangTSX, true},
		{"styles.css", "", false},
		{"README.md", "", false},
		{"Makefile", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			lang, err := DetectLanguage(tt.path)
			if !tt.ok {
				require.ErrorIs(t, err, types.ErrUnsupportedLanguage)
				assert.False(t, SupportedFile(tt.path))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, lang)
			assert.True(t, SupportedFile(tt.path))
		})
	}
}

func TestParseFile_FunctionDeclaration(t *testing.T) {
	src := `function loadConfig(path, defaults) {
  const raw = readFileSync(path);
  return Object.assign({}, defaults, JSON.parse(raw));
}
`
	p := New(0)
	result := parseSource(t, p, "config.js", src)
	require.NotNil(t, result.File)
	require.Len(t, result.File.Functions, 1)

	fn := result.File.Functions[0]
	assert.Equal(t, "loadConfig", fn.Name)
	assert.Equal(t, "config.js::loadConfig", fn.ID)
	assert.Equal(t, "config.js", fn.FilePath)
	assert.Equal(t, []string{"path", "defaults"}, fn.Params)
	assert.False(t, fn.Exported)
	assert.Equal(t, 1, fn.StartLine)
	assert.Equal(t, 4, fn.EndLine)

	// The snippet is the declaration verbatim.
	assert.True(t, strings.HasPrefix(fn.Snippet, "function loadConfig"))
	assert.Contains(t, fn.Snippet, "JSON.parse(raw)")
}

func TestParseFile_ConstArrowFunction(t *testing.T) {
	src := `export const updateProduct = async (req, res) => {
  const data = validateInput(req.body);
  return repository.update(req.params.id, data);
};
`
	p := New(0)
	result := parseSource(t, p, "controllers/product.controller.mjs", src)
	require.NotNil(t, result.File)

	fn := findFunction(t, result.File, "updateProduct")
	assert.Equal(t, "controllers/product.controller.mjs::updateProduct", fn.ID)
	assert.True(t, fn.Exported)
	assert.Equal(t, []string{"req", "res"}, fn.Params)

	// The snippet spans the declarator, not the declaration keyword.
	assert.True(t, strings.HasPrefix(fn.Snippet, "updateProduct ="))
	assert.Contains(t, fn.Snippet, "repository.update")

	// Calls made in the body belong to the function.
	assert.Contains(t, fn.Calls, "validateInput")
	assert.Contains(t, fn.Calls, "update")
}

func TestParseFile_MemberAssignment(t *testing.T) {
	src := `exports.createProduct = async (req, res) => {
  const data = validateInput(req.body);
  const saved = await repository.save(data);
  res.status(201).json(saved);
};

exports.deleteProduct = function (req, res) {
  validateInput(req.params);
  repository.remove(req.params.id);
  res.status(204).end();
};
`
	p := New(0)
	result := parseSource(t, p, "controllers/product.controller.js", src)
	require.NotNil(t, result.File)
	require.Len(t, result.File.Functions, 2)

	create := findFunction(t, result.File, "createProduct")
	assert.True(t, create.Exported)
	assert.True(t, strings.HasPrefix(create.Snippet, "exports.createProduct ="))
	assert.Contains(t, create.Calls, "validateInput")
	assert.Contains(t, create.Calls, "save")

	del := findFunction(t, result.File, "deleteProduct")
	assert.True(t, del.Exported)
	assert.Contains(t, del.Calls, "validateInput")
	assert.Contains(t, del.Calls, "remove")
}

func TestParseFile_MethodDefinition(t *testing.T) {
	src := `class ProductRepo extends BaseRepo {
  constructor(db) {
    super(db);
    this.db = db;
  }

  findById(id) {
    return this.db.collection("products").findOne({ _id: id });
  }
}
`
	p := New(0)
	result := parseSource(t, p, "repo.js", src)
	require.NotNil(t, result.File)
	require.Len(t, result.File.Functions, 2)

	ctor := findFunction(t, result.File, "constructor")
	assert.Equal(t, "repo.js::constructor", ctor.ID)
	assert.Contains(t, ctor.Calls, "super")
	assert.True(t, strings.HasPrefix(ctor.Snippet, "constructor(db)"))

	find := findFunction(t, result.File, "findById")
	assert.Equal(t, []string{"id"}, find.Params)
	assert.Contains(t, find.Calls, "collection")
	assert.Contains(t, find.Calls, "findOne")
}

func TestParseFile_CallOrderAndDedup(t *testing.T) {
	src := `function createProduct(req, res) {
  const data = validateInput(req.body);
  if (!data) {
    return res.status(400).json({ error: "invalid" });
  }
  repository.save(data);
  validateInput(data);
}
`
	p := New(0)
	result := parseSource(t, p, "app.js", src)
	fn := findFunction(t, result.File, "createProduct")

	// First occurrence order, duplicates dropped. Chained member calls are
	// recorded outermost first.
	assert.Equal(t, []string{"validateInput", "json", "status", "save"}, fn.Calls)
}

func TestParseFile_Requires(t *testing.T) {
	src := `const express = require("express");
const { Router } = require("router-kit");
require("dotenv/config");

function sendMail(message) {
  const mailer = require("nodemailer");
  return mailer.createTransport().sendMail(message);
}
`
	p := New(0)
	result := parseSource(t, p, "server.js", src)
	require.NotNil(t, result.File)

	assert.Equal(t,
		[]string{"express", "router-kit", "dotenv/config", "nodemailer"},
		result.File.Requires)

	// require-bound names are dependencies, not variables.
	for _, v := range result.File.Variables {
		assert.NotEqual(t, "express", v.Name)
	}

	// A require inside a function body is a lazy dependency of that function.
	fn := findFunction(t, result.File, "sendMail")
	assert.Equal(t, []string{"nodemailer"}, fn.Requires)

	// require itself never appears as a call target.
	assert.NotContains(t, fn.Calls, "require")
	assert.Contains(t, fn.Calls, "createTransport")
}

func TestParseFile_ImportStatements(t *testing.T) {
	src := `import express from "express";
import { readFile } from "node:fs/promises";
export { helper } from "./helper.js";

export const handler = async (event) => {
  const body = await readFile(event.path);
  return body;
};
`
	p := New(0)
	result := parseSource(t, p, "lambda.mjs", src)
	require.NotNil(t, result.File)

	assert.Equal(t,
		[]string{"express", "node:fs/promises", "./helper.js"},
		result.File.Requires)

	fn := findFunction(t, result.File, "handler")
	assert.True(t, fn.Exported)
	assert.Equal(t, []string{"event"}, fn.Params)
}

func TestParseFile_DynamicImport(t *testing.T) {
	src := `async function loadLocale(name) {
  const bundle = await import("./locales/en.js");
  return bundle.messages;
}

function loadPlugin(name) {
  return require("./plugins/" + name);
}
`
	p := New(0)
	result := parseSource(t, p, "loader.js", src)
	require.NotNil(t, result.File)

	// A literal import() is a lazy dependency like any other require.
	locale := findFunction(t, result.File, "loadLocale")
	assert.Equal(t, []string{"./locales/en.js"}, locale.Requires)
	assert.Contains(t, result.File.Requires, "./locales/en.js")

	// A computed argument cannot name a module; it becomes a marker.
	plugin := findFunction(t, result.File, "loadPlugin")
	assert.Empty(t, plugin.Requires)
	require.Len(t, result.File.DynamicImports, 1)

	dyn := result.File.DynamicImports[0]
	assert.Contains(t, dyn.Raw, `"./plugins/" + name`)
	assert.Equal(t, plugin.ID, dyn.EnclosingFunction)
	assert.Equal(t, 7, dyn.Line)
	assert.NotContains(t, result.File.Requires, "./plugins/")
}

func TestParseFile_Variables(t *testing.T) {
	src := `var legacyMode = false;
let counter = 0;
const MAX_RETRIES = 5;

function bumpCounter() {
  let delta = computeDelta();
  counter += delta;
  return counter;
}
`
	p := New(0)
	result := parseSource(t, p, "state.js", src)
	require.NotNil(t, result.File)
	require.Len(t, result.File.Variables, 4)

	byName := make(map[string]*types.Variable)
	for _, v := range result.File.Variables {
		byName[v.Name] = v
	}

	assert.Equal(t, "var", byName["legacyMode"].Kind)
	assert.Equal(t, "let", byName["counter"].Kind)
	assert.Equal(t, "const", byName["MAX_RETRIES"].Kind)
	assert.Equal(t, types.ScopeModule, byName["counter"].Scope)
	assert.Equal(t, "state.js::MAX_RETRIES", byName["MAX_RETRIES"].ID)
	assert.Equal(t, 3, byName["MAX_RETRIES"].Line)

	delta := byName["delta"]
	require.NotNil(t, delta)
	assert.Equal(t, types.ScopeFunction, delta.Scope)
	assert.Equal(t, "state.js::bumpCounter", delta.EnclosingFunction)

	fn := findFunction(t, result.File, "bumpCounter")
	assert.Equal(t, []string{"computeDelta"}, fn.Calls)
}

func TestParseFile_AnonymousCallbacksSkipped(t *testing.T) {
	src := `app.get("/products", async (req, res) => {
  res.json(listProducts());
});

setTimeout(function () {
  flushQueue();
}, 1000);
`
	p := New(0)
	result := parseSource(t, p, "routes.js", src)
	require.NotNil(t, result.File)

	// Anonymous callbacks never become entities, and calls inside them have
	// no named function to attach to at module level.
	assert.Empty(t, result.File.Functions)
	assert.Empty(t, result.File.Variables)
	assert.False(t, result.HasErrors())
}

func TestParseFile_MinFunctionLength(t *testing.T) {
	src := `function tiny() { go() }

function bigEnoughHandler(req, res) {
  return res.json({ ok: true });
}
`
	p := New(25)
	result := parseSource(t, p, "mixed.js", src)
	require.NotNil(t, result.File)

	require.Len(t, result.File.Functions, 1)
	assert.Equal(t, "bigEnoughHandler", result.File.Functions[0].Name)
	assert.Equal(t, 1, result.SkippedFunctions)

	// Nothing inside a skipped function is recorded.
	for _, fn := range result.File.Functions {
		assert.NotContains(t, fn.Calls, "go")
	}

	// A zero threshold disables the filter.
	all := parseSource(t, New(0), "mixed.js", src)
	assert.Len(t, all.File.Functions, 2)
	assert.Equal(t, 0, all.SkippedFunctions)
}

func TestParseFile_IdentifierCollision(t *testing.T) {
	src := `function dup(a, b) { return a + b; }
const dup = 3;
`
	p := New(0)
	result := parseSource(t, p, "app.js", src)
	require.NotNil(t, result.File)

	// The first entity claiming the identifier wins; the collision is
	// recorded without invalidating the file.
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "collision")
	require.Len(t, result.File.Functions, 1)
	assert.Equal(t, "dup", result.File.Functions[0].Name)
	assert.Empty(t, result.File.Variables)
}

func TestParseFile_SyntaxError(t *testing.T) {
	src := `function broken( {
  return 1;
`
	p := New(0)
	result := parseSource(t, p, "broken.js", src)

	assert.Nil(t, result.File)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "broken.js", result.Errors[0].File)
	assert.Contains(t, result.Errors[0].Message, "syntax error")
	assert.Greater(t, result.Errors[0].Line, 0)
}

func TestParseFile_TypeScript(t *testing.T) {
	src := `interface Product {
  id: string;
  price: number;
}

export function formatPrice(value: number, currency: string): string {
  return currency + " " + value.toFixed(2);
}
`
	p := New(0)
	result := parseSource(t, p, "pricing.ts", src)
	require.NotNil(t, result.File)

	fn := findFunction(t, result.File, "formatPrice")
	assert.True(t, fn.Exported)
	assert.Contains(t, fn.Calls, "toFixed")
	require.Len(t, fn.Params, 2)
	assert.Contains(t, fn.Params[0], "value")
	assert.Contains(t, fn.Params[1], "currency")
}

func TestParseFile_UnsupportedExtension(t *testing.T) {
	p := New(0)
	result, err := p.ParseFile(context.Background(), "styles.css", []byte("body {}"))
	require.ErrorIs(t, err, types.ErrUnsupportedLanguage)
	assert.Nil(t, result)
}
