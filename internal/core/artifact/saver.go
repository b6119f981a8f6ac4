package artifact

import (
	"context"
	"time"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Saver persists generated artifacts.
type Saver interface {
	// Save persists an artifact, replacing one with the same ID
	Save(ctx context.Context, a *Artifact) error

	// Load retrieves an artifact by ID
	Load(ctx context.Context, id string) (*Artifact, error)

	// List returns artifacts matching the filter, newest first
	List(ctx context.Context, filter Filter) ([]*Artifact, error)

	// Delete removes an artifact by ID
	Delete(ctx context.Context, id string) error
}

// Filter for artifact queries.
type Filter struct {
	Context flow.Context `json:"context,omitempty"`
	Digest  string       `json:"digest,omitempty"`
	Limit   int          `json:"limit,omitempty"`
	Offset  int          `json:"offset,omitempty"`
	Since   *time.Time   `json:"since,omitempty"`
	Before  *time.Time   `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}

// Matches reports whether a satisfies every set field of the filter.
// Limit and Offset are applied by the caller.
func (f *Filter) Matches(a *Artifact) bool {
	if f.Context != "" && a.Context != f.Context {
		return false
	}
	if f.Digest != "" && a.Digest != f.Digest {
		return false
	}
	if f.Since != nil && a.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Before != nil && !a.CreatedAt.Before(*f.Before) {
		return false
	}
	return true
}
