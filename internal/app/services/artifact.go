package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/infrastructure/metrics"
)

// ArtifactService wraps an artifact.Saver with logging and store metrics.
type ArtifactService struct {
	saver   artifact.Saver
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewArtifactService creates a new artifact service. logger and m may be nil.
func NewArtifactService(saver artifact.Saver, logger *slog.Logger, m *metrics.Metrics) *ArtifactService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArtifactService{
		saver:   saver,
		logger:  logger.With("component", "artifact_service"),
		metrics: m,
	}
}

// Store validates and saves a.
func (s *ArtifactService) Store(ctx context.Context, a *artifact.Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}
	err := s.saver.Save(ctx, a)
	s.metrics.RecordArtifactOp("save", err)
	if err != nil {
		s.logger.Error("artifact save failed", "artifact_id", a.ID, "error", err)
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	s.logger.Debug("artifact saved",
		"artifact_id", a.ID,
		"context", a.Context,
		"digest", a.Digest,
		"files", len(a.Files))
	return nil
}

// Get loads one artifact by id.
func (s *ArtifactService) Get(ctx context.Context, id string) (*artifact.Artifact, error) {
	a, err := s.saver.Load(ctx, id)
	s.metrics.RecordArtifactOp("load", err)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifact: %w", err)
	}
	return a, nil
}

// List returns the artifacts matching filter, newest first.
func (s *ArtifactService) List(ctx context.Context, filter artifact.Filter) ([]*artifact.Artifact, error) {
	list, err := s.saver.List(ctx, filter)
	s.metrics.RecordArtifactOp("list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return list, nil
}

// Delete removes one artifact by id.
func (s *ArtifactService) Delete(ctx context.Context, id string) error {
	err := s.saver.Delete(ctx, id)
	s.metrics.RecordArtifactOp("delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	s.logger.Debug("artifact deleted", "artifact_id", id)
	return nil
}

// FindByDigest returns the newest stored artifact of ctx with digest, or
// nil when there is none.
func (s *ArtifactService) FindByDigest(ctx context.Context, flowCtx flow.Context, digest string) (*artifact.Artifact, error) {
	list, err := s.List(ctx, artifact.Filter{Context: flowCtx, Digest: digest, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
