// Package artifact provides the persisted form of a generated logic bundle.
// Generation itself is stateless; artifacts exist so the packaging step can
// fetch a bundle again and skip unchanged ones by digest.
package artifact

import (
	"time"

	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Artifact is one generated bundle for one runtime context.
type Artifact struct {
	ID        string          `json:"id" msgpack:"id"`
	Context   flow.Context    `json:"context" msgpack:"context"`
	Files     []compiler.File `json:"files" msgpack:"files"`
	Digest    string          `json:"digest" msgpack:"digest"`
	FlowIDs   []string        `json:"flow_ids" msgpack:"flow_ids"`
	CreatedAt time.Time       `json:"created_at" msgpack:"created_at"`
}

// FromBundle captures a bundle under id.
func FromBundle(id string, b *compiler.LogicBundle, now time.Time) *Artifact {
	files := make([]compiler.File, len(b.Files))
	copy(files, b.Files)
	return &Artifact{
		ID:        id,
		Context:   b.Context,
		Files:     files,
		Digest:    b.Digest(),
		FlowIDs:   b.FlowIDs(),
		CreatedAt: now.UTC(),
	}
}

// Validate ensures artifact integrity.
func (a *Artifact) Validate() error {
	if a.ID == "" {
		return ErrInvalidArtifactID
	}
	if !a.Context.Valid() {
		return ErrInvalidContext
	}
	if len(a.Files) < compiler.SupportFileCount {
		return ErrIncompleteBundle
	}
	if a.Digest != compiler.DigestFiles(a.Files) {
		return ErrDigestMismatch
	}
	return nil
}
