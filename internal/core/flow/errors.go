// Package flow defines domain-specific errors
package flow

import "errors"

var (
	// Flow errors
	ErrInvalidFlowID  = errors.New("invalid flow ID")
	ErrInvalidContext = errors.New("invalid flow context")
	ErrInvalidTrigger = errors.New("invalid trigger kind")
	ErrFlowNotFound   = errors.New("flow not found")

	// Node errors
	ErrInvalidNodeID   = errors.New("invalid node ID")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrDuplicateNode   = errors.New("duplicate node ID")
)
