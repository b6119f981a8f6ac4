// Package usecases orchestrates bundle generation: validate the snapshot,
// resolve its wiring, compile one context and optionally persist the
// result as an artifact.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowgraph/flowlogic/internal/app/dto"
	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
	"github.com/flowgraph/flowlogic/internal/infrastructure/metrics"
	"github.com/flowgraph/flowlogic/pkg/validation"
)

// Generator runs the generation pipeline. It holds no per-request state
// and is safe for concurrent use.
type Generator struct {
	store   ArtifactStore
	logger  *slog.Logger
	metrics *metrics.Metrics
	config  *validation.ValidationConfig
	now     func() time.Time
	newID   func() string
}

// Option configures a Generator.
type Option func(*Generator)

// WithStore enables artifact persistence.
func WithStore(store ArtifactStore) Option {
	return func(g *Generator) { g.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithValidationConfig sets the snapshot validation configuration.
func WithValidationConfig(config *validation.ValidationConfig) Option {
	return func(g *Generator) {
		if config != nil {
			g.config = config
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithIDGenerator overrides artifact id generation.
func WithIDGenerator(newID func() string) Option {
	return func(g *Generator) { g.newID = newID }
}

// NewGenerator creates a generator. Without WithStore it never persists.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		logger: slog.Default(),
		config: validation.DefaultValidationConfig(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "generator")
	return g
}

// Persistent reports whether the generator can store artifacts.
func (g *Generator) Persistent() bool {
	return g.store != nil
}

// Resolve validates the snapshot and returns its wiring with the
// structural reports of its flows.
func (g *Generator) Resolve(ctx context.Context, req *dto.WiringRequest) (*dto.WiringResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.ValidateWithConfig(g.config); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	fw, err := wiring.Resolve(req.Snapshot)
	if err != nil {
		g.logWiringFailure("", err)
		return nil, fmt.Errorf("resolve wiring: %w", err)
	}

	return &dto.WiringResponse{
		Wiring:  fw,
		Reports: validation.InspectFlows(req.Snapshot.FlowList),
	}, nil
}

// Generate produces the logic bundle of req.Context.
func (g *Generator) Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResponse, error) {
	start := g.now()
	status := metrics.StatusOK
	label := string(req.Context)
	defer func() { g.metrics.RecordGeneration(label, status, g.now().Sub(start)) }()

	if err := ctx.Err(); err != nil {
		status = metrics.StatusInvalid
		return nil, err
	}
	if req.Persist && g.store == nil {
		status = metrics.StatusInvalid
		return nil, dto.ErrPersistenceDisabled
	}
	if err := req.ValidateWithConfig(g.config); err != nil {
		status = metrics.StatusInvalid
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	fw, err := wiring.Resolve(req.Snapshot)
	if err != nil {
		status = metrics.StatusWiringFailed
		g.logWiringFailure(label, err)
		return nil, fmt.Errorf("resolve wiring: %w", err)
	}
	if err := ctx.Err(); err != nil {
		status = metrics.StatusInvalid
		return nil, err
	}

	bundle := compiler.CompileBundle(req.Snapshot.FlowList, req.Context, fw)
	g.metrics.RecordBundle(bundle)

	resp := &dto.GenerateResponse{
		Context: bundle.Context,
		Digest:  bundle.Digest(),
		FlowIDs: bundle.FlowIDs(),
		Files:   bundle.Files,
		Stats:   make(map[string]compiler.Stats, len(bundle.Compiled)),
		Wiring:  fw,
		Reports: validation.InspectFlows(req.Snapshot.FlowList),
	}
	for _, c := range bundle.Compiled {
		resp.Stats[c.FlowID] = c.Stats
		if c.Stats.CustomCodeUsed > 0 {
			g.logger.Warn("flow embeds custom code", "flow_id", c.FlowID, "context", label, "nodes", c.Stats.CustomCodeUsed)
		}
		if c.Stats.Inflated() {
			g.logger.Warn("shared successors inflated flow output",
				"flow_id", c.FlowID, "context", label,
				"nodes_emitted", c.Stats.NodesEmitted, "reemitted", c.Stats.Reemitted)
		}
	}

	if req.Persist {
		if err := g.persist(ctx, bundle, resp); err != nil {
			status = metrics.StatusPersistFailed
			return nil, err
		}
	}

	resp.Duration = g.now().Sub(start)
	g.logger.Info("bundle generated",
		"context", label,
		"flows", len(resp.FlowIDs),
		"files", len(resp.Files),
		"digest", resp.Digest,
		"artifact_id", resp.ArtifactID,
		"reused", resp.Reused,
		"duration", resp.Duration)
	return resp, nil
}

// persist stores the bundle unless an artifact with the same digest
// already exists for the context.
func (g *Generator) persist(ctx context.Context, b *compiler.LogicBundle, resp *dto.GenerateResponse) error {
	existing, err := g.store.FindByDigest(ctx, b.Context, resp.Digest)
	if err != nil {
		return err
	}
	if existing != nil {
		resp.ArtifactID = existing.ID
		resp.Reused = true
		return nil
	}

	a := artifact.FromBundle(g.newID(), b, g.now())
	if err := g.store.Store(ctx, a); err != nil {
		return err
	}
	resp.ArtifactID = a.ID
	return nil
}

// Artifact loads a stored artifact.
func (g *Generator) Artifact(ctx context.Context, id string) (*artifact.Artifact, error) {
	if g.store == nil {
		return nil, dto.ErrPersistenceDisabled
	}
	if id == "" {
		return nil, dto.ErrMissingArtifactID
	}
	return g.store.Get(ctx, id)
}

// Artifacts lists stored artifacts without their files.
func (g *Generator) Artifacts(ctx context.Context, filter artifact.Filter) ([]dto.ArtifactSummary, error) {
	if g.store == nil {
		return nil, dto.ErrPersistenceDisabled
	}
	list, err := g.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ArtifactSummary, 0, len(list))
	for _, a := range list {
		out = append(out, dto.Summarize(a))
	}
	return out, nil
}

func (g *Generator) logWiringFailure(label string, err error) {
	var werr *wiring.Error
	if errors.As(err, &werr) {
		g.logger.Warn("wiring failed",
			"context", label,
			"flow_id", werr.FlowID,
			"binding", werr.Binding,
			"rule", werr.Rule.Error())
		return
	}
	g.logger.Warn("wiring failed", "context", label, "error", err)
}

