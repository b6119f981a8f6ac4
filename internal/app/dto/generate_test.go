package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
	"github.com/flowgraph/flowlogic/pkg/validation"
)

func TestGenerateRequest_Validate(t *testing.T) {
	valid := &schema.Snapshot{FlowList: []flow.Flow{
		{ID: "a", Context: flow.ContextBackend, Trigger: flow.Manual()},
	}}

	tests := []struct {
		name    string
		req     GenerateRequest
		wantErr error
	}{
		{"valid", GenerateRequest{Snapshot: valid, Context: flow.ContextBackend}, nil},
		{"missing context", GenerateRequest{Snapshot: valid}, ErrInvalidContext},
		{"unknown context", GenerateRequest{Snapshot: valid, Context: "edge"}, ErrInvalidContext},
		{"missing snapshot", GenerateRequest{Context: flow.ContextFrontend}, ErrMissingSnapshot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequests_SnapshotErrors(t *testing.T) {
	bad := &schema.Snapshot{FlowList: []flow.Flow{{ID: "", Context: flow.ContextBackend, Trigger: flow.Manual()}}}

	err := (&WiringRequest{Snapshot: bad}).Validate()
	assert.IsType(t, validation.ValidationErrors{}, err)

	err = (&GenerateRequest{Snapshot: bad, Context: flow.ContextBackend}).Validate()
	assert.IsType(t, validation.ValidationErrors{}, err)

	assert.ErrorIs(t, (&WiringRequest{}).Validate(), ErrMissingSnapshot)
}

func TestSummarize(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &artifact.Artifact{
		ID:        "art-1",
		Context:   flow.ContextFrontend,
		Files:     make([]compiler.File, 6),
		Digest:    "abc",
		FlowIDs:   []string{"save"},
		CreatedAt: created,
	}

	assert.Equal(t, ArtifactSummary{
		ID:        "art-1",
		Context:   flow.ContextFrontend,
		Digest:    "abc",
		FlowIDs:   []string{"save"},
		FileCount: 6,
		CreatedAt: created,
	}, Summarize(a))
}
