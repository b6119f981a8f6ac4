// Package compiler lowers flow graphs into self-contained TypeScript
// functions that share one input/output contract, and assembles them with
// the fixed runtime support files into a per-context bundle.
//
// Compilation never fails. Dangling node references are skipped, cycles are
// cut with a marker comment and missing configuration falls back to the
// documented defaults of each node type's Contract. Problems the compiler
// cannot see surface at runtime as {error} results.
//
// Cycle detection follows the current recursion path, not a global visited
// set, so a node reachable along several paths is emitted once per path. On
// a chain of k diamonds that is about 2^k node bodies. Stats.Reemitted
// counts the extra emissions.
//
// custom_code nodes are copied verbatim into the generated function. That
// text runs with the full privileges of the host runtime; integrators must
// treat flow authors as trusted.
package compiler

import (
	"fmt"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Stats counts what a compilation encountered.
type Stats struct {
	NodesEmitted   int `json:"nodes_emitted"`
	CyclesCut      int `json:"cycles_cut"`
	DanglingSkips  int `json:"dangling_skips"`
	UnknownNodes   int `json:"unknown_nodes"`
	CustomCodeUsed int `json:"custom_code_used"`
	Reemitted      int `json:"reemitted"`
}

// Inflated reports whether shared successors more than doubled the
// emitted node count.
func (s Stats) Inflated() bool {
	return s.Reemitted > s.NodesEmitted-s.Reemitted
}

// CompiledFlow is the output of compiling one flow.
type CompiledFlow struct {
	FlowID       string `json:"flow_id"`
	FunctionName string `json:"function_name"`
	FilePath     string `json:"file_path"`
	Source       string `json:"source"`
	Stats        Stats  `json:"stats"`
}

// Compile lowers one flow into one function.
func Compile(f *flow.Flow) CompiledFlow {
	return compileAs(f, FunctionName(f.ID))
}

func compileAs(f *flow.Flow, fn string) CompiledFlow {
	e := &emitter{flow: f, nodes: f.NodeIndex(), w: &writer{}, seen: make(map[string]bool)}
	e.function(fn)
	return CompiledFlow{
		FlowID:       f.ID,
		FunctionName: fn,
		FilePath:     FlowFilePath(fn),
		Source:       e.w.String(),
		Stats:        e.stats,
	}
}

type emitter struct {
	flow  *flow.Flow
	nodes map[string]*flow.Node
	w     *writer
	seen  map[string]bool
	stats Stats
}

func (e *emitter) function(fn string) {
	w := e.w
	w.line("// Generated flow %s (%s). Do not edit.", jsString(comment(e.flow.Name)), comment(e.flow.ID))
	w.line(`import type { FlowInput, FlowOutput } from "../types";`)
	w.blank()
	w.open("export async function %s(input: FlowInput): Promise<FlowOutput> {", fn)
	if e.flow.EntryNodeID == "" {
		w.line("return { data: input.payload };")
		w.close("}")
		return
	}
	w.line("const state: Record<string, any> = {};")
	w.line("const payload = input.payload;")
	w.line("const ctx = input.context ?? {};")
	w.line("const req = ctx.req;")
	w.line("const res = ctx.res;")
	w.open("try {")
	e.visit(e.flow.EntryNodeID, nil)
	w.line("return { data: state };")
	w.close("} catch (err) {")
	w.depth++
	w.line("return { error: err instanceof Error ? err.message : String(err) };")
	w.close("}")
	w.close("}")
}

// walk emits each successor in order along the current path.
func (e *emitter) walk(ids []string, path []string) {
	for _, id := range ids {
		e.visit(id, path)
	}
}

// visit emits one node and, unless it is terminal, its normal successors.
// path holds the nodes open on the current recursion branch; re-entering
// one of them is a cycle.
func (e *emitter) visit(id string, path []string) {
	for _, open := range path {
		if open == id {
			e.stats.CyclesCut++
			e.w.line("// cycle detected: %s", comment(id))
			return
		}
	}
	n, ok := e.nodes[id]
	if !ok {
		e.stats.DanglingSkips++
		return
	}
	// Full slice expression so sibling branches never share a backing array.
	path = append(path[:len(path):len(path)], id)

	e.stats.NodesEmitted++
	if e.seen[id] {
		e.stats.Reemitted++
	}
	e.seen[id] = true
	if n.Type != flow.NodeStart {
		e.w.line("// %s", describe(n))
	}
	if terminal := e.emit(n, path); !terminal {
		e.walk(n.NextNodes, path)
	}
}

func describe(n *flow.Node) string {
	if n.Label != "" {
		return fmt.Sprintf("%s: %s", n.Type, comment(n.Label))
	}
	return fmt.Sprintf("%s: %s", n.Type, comment(n.ID))
}
