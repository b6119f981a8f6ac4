// Package flow provides the core flow domain entities: flows, their node
// graphs and the triggers that activate them. It has no external dependencies.
package flow

import "sort"

// Context selects the runtime a flow is compiled for.
type Context string

const (
	// ContextFrontend flows run in the browser-hosted runtime.
	ContextFrontend Context = "frontend"
	// ContextBackend flows run in the server-hosted runtime.
	ContextBackend Context = "backend"
)

// Valid reports whether c is one of the known runtime contexts.
func (c Context) Valid() bool {
	return c == ContextFrontend || c == ContextBackend
}

// Flow is a visual process graph compiled to exactly one function.
type Flow struct {
	ID          string  `json:"id" yaml:"id" msgpack:"id" validate:"required,flow_ref"`
	Name        string  `json:"name" yaml:"name" msgpack:"name"`
	Trigger     Trigger `json:"trigger" yaml:"trigger" msgpack:"trigger"`
	Nodes       []Node  `json:"nodes,omitempty" yaml:"nodes,omitempty" msgpack:"nodes,omitempty" validate:"dive"`
	EntryNodeID string  `json:"entry_node_id,omitempty" yaml:"entry_node_id,omitempty" msgpack:"entry_node_id,omitempty"`
	Context     Context `json:"context" yaml:"context" msgpack:"context" validate:"required,flow_context"`
	Archived    bool    `json:"archived,omitempty" yaml:"archived,omitempty" msgpack:"archived,omitempty"`
}

// Validate ensures the flow carries the fields every consumer relies on.
func (f *Flow) Validate() error {
	if f.ID == "" {
		return ErrInvalidFlowID
	}
	if !f.Context.Valid() {
		return ErrInvalidContext
	}
	if !f.Trigger.Kind.Valid() {
		return ErrInvalidTrigger
	}
	seen := make(map[string]struct{}, len(f.Nodes))
	for i := range f.Nodes {
		if err := f.Nodes[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[f.Nodes[i].ID]; dup {
			return ErrDuplicateNode
		}
		seen[f.Nodes[i].ID] = struct{}{}
	}
	return nil
}

// Active reports whether the flow participates in wiring and compilation.
func (f *Flow) Active() bool {
	return !f.Archived
}

// NodeIndex builds the id-keyed arena used for traversal. When a graph
// carries duplicate ids the first occurrence wins.
func (f *Flow) NodeIndex() map[string]*Node {
	idx := make(map[string]*Node, len(f.Nodes))
	for i := range f.Nodes {
		if _, exists := idx[f.Nodes[i].ID]; !exists {
			idx[f.Nodes[i].ID] = &f.Nodes[i]
		}
	}
	return idx
}

// FilterActive returns the non-archived flows, optionally restricted to one
// context, sorted by id.
func FilterActive(flows []Flow, ctx Context) []Flow {
	out := make([]Flow, 0, len(flows))
	for _, f := range flows {
		if !f.Active() {
			continue
		}
		if ctx != "" && f.Context != ctx {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
