package validation

import (
	"sort"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Edge is one id reference between two nodes of a flow.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// FlowReport lists structural findings for one flow. The compiler tolerates
// all of them; the report exists so editors can surface them.
type FlowReport struct {
	FlowID       string   `json:"flow_id"`
	MissingEntry bool     `json:"missing_entry,omitempty"`
	Dangling     []Edge   `json:"dangling,omitempty"`
	Unreachable  []string `json:"unreachable,omitempty"`
	BackEdges    []Edge   `json:"back_edges,omitempty"`
	UnknownTypes []string `json:"unknown_types,omitempty"`
}

// Clean reports whether there is nothing to surface.
func (r FlowReport) Clean() bool {
	return !r.MissingEntry && len(r.Dangling) == 0 && len(r.Unreachable) == 0 &&
		len(r.BackEdges) == 0 && len(r.UnknownTypes) == 0
}

// HasCycle reports whether the graph has a directed cycle.
func (r FlowReport) HasCycle() bool { return len(r.BackEdges) > 0 }

// InspectFlow walks the graph of f from its entry node, following both
// edge lists, and collects dangling references, unreachable nodes, cycle
// back-edges and node types the compiler does not know.
func InspectFlow(f *flow.Flow) FlowReport {
	rep := FlowReport{FlowID: f.ID}
	idx := f.NodeIndex()

	order := make([]string, 0, len(idx))
	seen := make(map[string]bool, len(idx))
	for _, n := range f.Nodes {
		if !seen[n.ID] {
			seen[n.ID] = true
			order = append(order, n.ID)
		}
	}

	unknown := make(map[string]bool)
	for _, id := range order {
		n := idx[id]
		if !n.Type.Known() && !unknown[string(n.Type)] {
			unknown[string(n.Type)] = true
			rep.UnknownTypes = append(rep.UnknownTypes, string(n.Type))
		}
		for _, to := range n.Successors() {
			if _, ok := idx[to]; !ok {
				rep.Dangling = append(rep.Dangling, Edge{From: id, To: to})
			}
		}
	}
	sort.Strings(rep.UnknownTypes)

	const (
		white = 0 // unvisited
		gray  = 1 // on the DFS stack
		black = 2 // finished
	)
	color := make(map[string]int, len(idx))
	var dfs func(string)
	dfs = func(u string) {
		color[u] = gray
		for _, v := range idx[u].Successors() {
			if _, ok := idx[v]; !ok {
				continue
			}
			switch color[v] {
			case gray:
				rep.BackEdges = append(rep.BackEdges, Edge{From: u, To: v})
			case white:
				dfs(v)
			}
		}
		color[u] = black
	}

	if f.EntryNodeID != "" {
		if _, ok := idx[f.EntryNodeID]; ok {
			dfs(f.EntryNodeID)
		} else {
			rep.MissingEntry = true
		}
	}
	for _, id := range order {
		if color[id] == white {
			rep.Unreachable = append(rep.Unreachable, id)
		}
	}
	// Cycles among unreachable nodes still count.
	for _, id := range order {
		if color[id] == white {
			dfs(id)
		}
	}
	return rep
}

// InspectFlows reports every flow that has findings, in flow id order.
func InspectFlows(flows []flow.Flow) []FlowReport {
	var out []FlowReport
	active := flow.FilterActive(flows, "")
	for i := range active {
		if rep := InspectFlow(&active[i]); !rep.Clean() {
			out = append(out, rep)
		}
	}
	return out
}
