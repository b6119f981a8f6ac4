package usecases

import (
	"context"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// ArtifactStore defines the artifact operations the generator needs.
// services.ArtifactService is the production implementation.
type ArtifactStore interface {
	// Store validates and saves an artifact
	Store(ctx context.Context, a *artifact.Artifact) error

	// Get loads one artifact by ID
	Get(ctx context.Context, id string) (*artifact.Artifact, error)

	// List returns artifacts matching the filter, newest first
	List(ctx context.Context, filter artifact.Filter) ([]*artifact.Artifact, error)

	// FindByDigest returns the newest artifact of a context with the given
	// digest, or nil when there is none
	FindByDigest(ctx context.Context, flowCtx flow.Context, digest string) (*artifact.Artifact, error)
}
