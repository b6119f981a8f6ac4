// Package schema describes the read-only project snapshot the wiring
// resolver and compiler consume. The schema layer that owns and mutates
// these records lives outside this module; it hands over a View.
package schema

import "github.com/flowgraph/flowlogic/internal/core/flow"

// ElementKind distinguishes UI elements that can carry event bindings.
type ElementKind string

const (
	ElementComponent ElementKind = "component"
	ElementBlock     ElementKind = "block"
)

// ElementBinding is one UI element together with its event bindings.
type ElementBinding struct {
	ID     string            `json:"id" yaml:"id" validate:"required"`
	Kind   ElementKind       `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=component block"`
	Events map[string]string `json:"events,omitempty" yaml:"events,omitempty" validate:"dive,keys,required,endkeys,omitempty,flow_ref"` // event name -> flow id
}

// Endpoint is an HTTP endpoint record. FlowID is the endpoint's own link to
// the flow it runs; empty means unbound.
type Endpoint struct {
	ID     string `json:"id" yaml:"id" validate:"required"`
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	FlowID string `json:"flow_id,omitempty" yaml:"flow_id,omitempty" validate:"omitempty,flow_ref"`
}

// View is the read-only snapshot contract.
type View interface {
	// Flows returns every flow record, archived ones included.
	Flows() []flow.Flow
	// Elements returns every UI element that may carry event bindings.
	Elements() []ElementBinding
	// Endpoints returns every endpoint record.
	Endpoints() []Endpoint
	// Endpoint looks up one endpoint by id.
	Endpoint(id string) (Endpoint, bool)

	HasPage(id string) bool
	HasComponent(id string) bool
	HasBlock(id string) bool
}
