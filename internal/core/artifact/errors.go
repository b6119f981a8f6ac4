package artifact

import "errors"

var (
	// Artifact validation errors
	ErrInvalidArtifactID = errors.New("invalid artifact ID")
	ErrInvalidContext    = errors.New("invalid artifact context")
	ErrIncompleteBundle  = errors.New("artifact is missing support files")
	ErrDigestMismatch    = errors.New("artifact digest does not match its files")
	ErrArtifactNotFound  = errors.New("artifact not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")

	// Persistence errors
	ErrSaveFailed   = errors.New("failed to save artifact")
	ErrLoadFailed   = errors.New("failed to load artifact")
	ErrDeleteFailed = errors.New("failed to delete artifact")
)
