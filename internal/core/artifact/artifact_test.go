package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
)

func bundle(t *testing.T) *compiler.LogicBundle {
	t.Helper()
	flows := []flow.Flow{{ID: "save", Context: flow.ContextBackend, Trigger: flow.Manual()}}
	return compiler.CompileBundle(flows, flow.ContextBackend, nil)
}

func TestFromBundle(t *testing.T) {
	b := bundle(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

	a := FromBundle("art-1", b, now)
	require.NoError(t, a.Validate())
	assert.Equal(t, flow.ContextBackend, a.Context)
	assert.Equal(t, []string{"save"}, a.FlowIDs)
	assert.Equal(t, b.Digest(), a.Digest)
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.Len(t, a.Files, compiler.SupportFileCount+1)

	// the artifact owns its file slice
	b.Files[0].Content = "changed"
	assert.NotEqual(t, "changed", a.Files[0].Content)
}

func TestArtifact_Validate(t *testing.T) {
	valid := func() *Artifact { return FromBundle("a", bundle(t), time.Now()) }

	tests := []struct {
		name    string
		mutate  func(a *Artifact)
		wantErr error
	}{
		{"valid", func(a *Artifact) {}, nil},
		{"missing id", func(a *Artifact) { a.ID = "" }, ErrInvalidArtifactID},
		{"bad context", func(a *Artifact) { a.Context = "mobile" }, ErrInvalidContext},
		{"incomplete", func(a *Artifact) { a.Files = a.Files[:2] }, ErrIncompleteBundle},
		{"tampered", func(a *Artifact) { a.Files[0].Content += "x" }, ErrDigestMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	now := time.Now()
	later := now.Add(time.Hour)

	tests := []struct {
		name    string
		filter  Filter
		wantErr error
	}{
		{"empty", Filter{}, nil},
		{"negative limit", Filter{Limit: -1}, ErrInvalidLimit},
		{"negative offset", Filter{Offset: -1}, ErrInvalidOffset},
		{"inverted range", Filter{Since: &later, Before: &now}, ErrInvalidTimeRange},
		{"range", Filter{Since: &now, Before: &later}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.filter.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	now := time.Now()
	a := &Artifact{ID: "a", Context: flow.ContextFrontend, Digest: "d1", CreatedAt: now}
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	assert.True(t, (&Filter{}).Matches(a))
	assert.True(t, (&Filter{Context: flow.ContextFrontend, Digest: "d1"}).Matches(a))
	assert.False(t, (&Filter{Context: flow.ContextBackend}).Matches(a))
	assert.False(t, (&Filter{Digest: "d2"}).Matches(a))
	assert.True(t, (&Filter{Since: &before, Before: &after}).Matches(a))
	assert.False(t, (&Filter{Since: &after}).Matches(a))
	assert.False(t, (&Filter{Before: &now}).Matches(a))
}
