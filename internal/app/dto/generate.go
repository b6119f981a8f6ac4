package dto

import (
	"time"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
	"github.com/flowgraph/flowlogic/pkg/validation"
)

// WiringRequest asks for the wiring of a snapshot.
type WiringRequest struct {
	Snapshot *schema.Snapshot `json:"snapshot"`
}

// WiringResponse carries the resolved wiring and the structural findings
// of every flow that has any.
type WiringResponse struct {
	Wiring  *wiring.FlowWiring      `json:"wiring"`
	Reports []validation.FlowReport `json:"reports,omitempty"`
}

// GenerateRequest asks for the logic bundle of one runtime context.
type GenerateRequest struct {
	Snapshot *schema.Snapshot `json:"snapshot"`
	Context  flow.Context     `json:"context"`
	Persist  bool             `json:"persist,omitempty"`
}

// GenerateResponse is one generated bundle. ArtifactID is set only when the
// bundle was persisted; Reused marks a stored artifact with the same digest.
type GenerateResponse struct {
	ArtifactID string                    `json:"artifact_id,omitempty"`
	Reused     bool                      `json:"reused,omitempty"`
	Context    flow.Context              `json:"context"`
	Digest     string                    `json:"digest"`
	FlowIDs    []string                  `json:"flow_ids"`
	Files      []compiler.File           `json:"files"`
	Stats      map[string]compiler.Stats `json:"stats,omitempty"` // flow id -> stats
	Wiring     *wiring.FlowWiring        `json:"wiring"`
	Reports    []validation.FlowReport   `json:"reports,omitempty"`
	Duration   time.Duration             `json:"duration"`
}

// ArtifactSummary lists a stored artifact without its files.
type ArtifactSummary struct {
	ID        string       `json:"id"`
	Context   flow.Context `json:"context"`
	Digest    string       `json:"digest"`
	FlowIDs   []string     `json:"flow_ids"`
	FileCount int          `json:"file_count"`
	CreatedAt time.Time    `json:"created_at"`
}

// Summarize drops the file contents of a.
func Summarize(a *artifact.Artifact) ArtifactSummary {
	return ArtifactSummary{
		ID:        a.ID,
		Context:   a.Context,
		Digest:    a.Digest,
		FlowIDs:   a.FlowIDs,
		FileCount: len(a.Files),
		CreatedAt: a.CreatedAt,
	}
}

// Validate validates the wiring request
func (req *WiringRequest) Validate() error {
	return req.ValidateWithConfig(nil)
}

// ValidateWithConfig validates the request with an explicit validation
// configuration; nil selects the default.
func (req *WiringRequest) ValidateWithConfig(config *validation.ValidationConfig) error {
	return validateSnapshot(req.Snapshot, config)
}

// Validate validates the generate request
func (req *GenerateRequest) Validate() error {
	return req.ValidateWithConfig(nil)
}

// ValidateWithConfig is Validate with an explicit configuration.
func (req *GenerateRequest) ValidateWithConfig(config *validation.ValidationConfig) error {
	if !req.Context.Valid() {
		return ErrInvalidContext
	}
	return validateSnapshot(req.Snapshot, config)
}

func validateSnapshot(s *schema.Snapshot, config *validation.ValidationConfig) error {
	if s == nil {
		return ErrMissingSnapshot
	}
	return validation.ValidateSnapshot(s, config)
}
