package flowlogic

import (
	"context"
	"fmt"

	"github.com/flowgraph/flowlogic/internal/adapters/repository/memory"
	"github.com/flowgraph/flowlogic/internal/app/dto"
	"github.com/flowgraph/flowlogic/internal/app/services"
	"github.com/flowgraph/flowlogic/internal/app/usecases"
	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
)

// Version is the release of the generator, reported by both binaries.
var Version = "0.3.0"

// Re-export core types for convenience
type (
	Flow           = flow.Flow
	Node           = flow.Node
	NodeType       = flow.NodeType
	Context        = flow.Context
	Trigger        = flow.Trigger
	View           = schema.View
	Snapshot       = schema.Snapshot
	ElementBinding = schema.ElementBinding
	Endpoint       = schema.Endpoint
	FlowWiring     = wiring.FlowWiring
	WiringError    = wiring.Error
	CompiledFlow   = compiler.CompiledFlow
	LogicBundle    = compiler.LogicBundle
	File           = compiler.File
	Artifact       = artifact.Artifact
)

// Runtime contexts.
const (
	Frontend = flow.ContextFrontend
	Backend  = flow.ContextBackend
)

// Resolve derives the wiring of a snapshot.
func Resolve(view View) (*FlowWiring, error) {
	return wiring.Resolve(view)
}

// Compile lowers one flow into one generated function.
func Compile(f *Flow) CompiledFlow {
	return compiler.Compile(f)
}

// CompileBundle compiles the active flows of ctx into a bundle.
func CompileBundle(flows []Flow, ctx Context, fw *FlowWiring) *LogicBundle {
	return compiler.CompileBundle(flows, ctx, fw)
}

// Generate resolves the wiring of view and compiles the bundle of ctx. A
// wiring failure aborts before anything is compiled.
func Generate(view View, ctx Context) (*LogicBundle, *FlowWiring, error) {
	if !ctx.Valid() {
		return nil, nil, fmt.Errorf("generate: %w", flow.ErrInvalidContext)
	}
	fw, err := wiring.Resolve(view)
	if err != nil {
		return nil, nil, err
	}
	return compiler.CompileBundle(view.Flows(), ctx, fw), fw, nil
}

// Runtime runs the full pipeline, including validation and artifact
// storage, over an in-memory store. It is suitable for local usage and
// tests.
type Runtime struct {
	generator *usecases.Generator
}

// NewRuntime constructs a runtime with in-memory persistence.
func NewRuntime() *Runtime {
	store := services.NewArtifactService(memory.DefaultSaver(), nil, nil)
	return &Runtime{generator: usecases.NewGenerator(usecases.WithStore(store))}
}

// Generate validates the snapshot, generates the bundle of ctx and stores
// it. An unchanged snapshot returns the previously stored artifact id.
func (rt *Runtime) Generate(ctx context.Context, s *Snapshot, flowCtx Context) (*dto.GenerateResponse, error) {
	return rt.generator.Generate(ctx, &dto.GenerateRequest{Snapshot: s, Context: flowCtx, Persist: true})
}

// Artifact loads a stored bundle.
func (rt *Runtime) Artifact(ctx context.Context, id string) (*Artifact, error) {
	return rt.generator.Artifact(ctx, id)
}
