package dto

import "errors"

// Generation errors
var (
	ErrMissingSnapshot     = errors.New("snapshot is required")
	ErrInvalidContext      = errors.New("invalid flow context")
	ErrMissingArtifactID   = errors.New("artifact ID is required")
	ErrPersistenceDisabled = errors.New("artifact persistence is not configured")
)
