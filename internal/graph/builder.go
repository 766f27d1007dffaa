package graph

import (
	"context"
	"fmt"

	"github.com/dkarlsven/jscontext-mcp/pkg/types"
)

// Builder translates a parsed entity model into graph nodes and edges and
// writes them to a Store. Snippet text is deliberately not stored in the
// graph; the vector store owns it, keyed by the same composite identifier.
type Builder struct {
	store Store
}

// NewBuilder creates a builder writing to the given store.
func NewBuilder(store Store) *Builder {
	return &Builder{store: store}
}

// BuildResult reports what a build wrote.
type BuildResult struct {
	Nodes int
	Edges int
}

// Build writes the model to the graph store: nodes first, then edges, so
// every edge endpoint exists when the edge is merged. All writes are MERGE
// based, so building the same model twice yields an identical graph.
func (b *Builder) Build(ctx context.Context, model *types.Model, runID string) (*BuildResult, error) {
	nodes := collectNodes(model, runID)
	if err := b.store.UpsertNodes(ctx, nodes); err != nil {
		return nil, fmt.Errorf("graph node upsert failed: %w", err)
	}

	edges := collectEdges(model)
	if err := b.store.UpsertEdges(ctx, edges); err != nil {
		return nil, fmt.Errorf("graph edge upsert failed: %w", err)
	}

	return &BuildResult{Nodes: len(nodes), Edges: len(edges)}, nil
}

func collectNodes(model *types.Model, runID string) []Node {
	var nodes []Node

	for _, file := range model.Files {
		nodes = append(nodes, Node{
			Label: LabelCodeFile,
			Key:   file.Path,
			Props: map[string]any{
				"name":     file.Name(),
				"language": string(file.Language),
				"run_id":   runID,
			},
		})

		for _, fn := range file.Functions {
			nodes = append(nodes, Node{
				Label: LabelFunction,
				Key:   fn.ID,
				Props: map[string]any{
					"name":       fn.Name,
					"file_path":  fn.FilePath,
					"exported":   fn.Exported,
					"params":     fn.Params,
					"start_line": fn.StartLine,
					"end_line":   fn.EndLine,
					"run_id":     runID,
				},
			})
		}

		for _, v := range file.Variables {
			nodes = append(nodes, Node{
				Label: LabelVariable,
				Key:   v.ID,
				Props: map[string]any{
					"name":      v.Name,
					"file_path": v.FilePath,
					"kind":      v.Kind,
					"scope":     string(v.Scope),
					"line":      v.Line,
					"run_id":    runID,
				},
			})
		}
	}

	for _, mod := range model.Modules {
		nodes = append(nodes, Node{
			Label: LabelModule,
			Key:   mod.Name,
			Props: map[string]any{"run_id": runID},
		})
	}

	return nodes
}

func collectEdges(model *types.Model) []Edge {
	var edges []Edge

	for _, file := range model.Files {
		for _, fn := range file.Functions {
			edges = append(edges, Edge{
				Kind:      types.RelContains,
				FromLabel: LabelCodeFile, From: file.Path,
				ToLabel: LabelFunction, To: fn.ID,
			})
			for _, target := range fn.CallTargets {
				edges = append(edges, Edge{
					Kind:      types.RelCalls,
					FromLabel: LabelFunction, From: fn.ID,
					ToLabel: LabelFunction, To: target,
				})
			}
			for _, mod := range fn.Requires {
				edges = append(edges, Edge{
					Kind:      types.RelRequires,
					FromLabel: LabelFunction, From: fn.ID,
					ToLabel: LabelModule, To: mod,
				})
			}
		}

		for _, v := range file.Variables {
			edges = append(edges, Edge{
				Kind:      types.RelContains,
				FromLabel: LabelCodeFile, From: file.Path,
				ToLabel: LabelVariable, To: v.ID,
			})
			if v.Scope == types.ScopeFunction && v.EnclosingFunction != "" {
				edges = append(edges, Edge{
					Kind:      types.RelDeclaresVariable,
					FromLabel: LabelFunction, From: v.EnclosingFunction,
					ToLabel: LabelVariable, To: v.ID,
				})
			} else {
				edges = append(edges, Edge{
					Kind:      types.RelDeclaresVariable,
					FromLabel: LabelCodeFile, From: file.Path,
					ToLabel: LabelVariable, To: v.ID,
				})
			}
		}

		for _, mod := range file.Requires {
			edges = append(edges, Edge{
				Kind:      types.RelRequires,
				FromLabel: LabelCodeFile, From: file.Path,
				ToLabel: LabelModule, To: mod,
			})
		}
	}

	return edges
}
