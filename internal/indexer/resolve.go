package indexer

import "github.com/dkarlsven/jscontext-mcp/pkg/types"

// ResolveCalls links the raw called-identifier names recorded during parsing
// to function identifiers across the whole model, filling each function's
// CallTargets.
//
// Resolution is a second pass by design: a call site in one file may target a
// function in a file parsed later, so no per-file pass can resolve it. The
// lookup maps bare names to identifiers; when two files define the same name
// the first definition in sorted file order wins, making resolution
// deterministic across runs. Names that resolve to nothing (globals, library
// calls, methods) are dropped and counted.
func ResolveCalls(model *types.Model) (resolved, dropped int) {
	lookup := make(map[string]string)
	for _, file := range model.Files {
		for _, fn := range file.Functions {
			if _, ok := lookup[fn.Name]; !ok {
				lookup[fn.Name] = fn.ID
			}
		}
	}

	for _, fn := range model.Functions() {
		fn.CallTargets = fn.CallTargets[:0]
		for _, name := range fn.Calls {
			target, ok := lookup[name]
			if !ok {
				dropped++
				continue
			}
			fn.CallTargets = append(fn.CallTargets, target)
			resolved++
		}
	}
	return resolved, dropped
}
