package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowlogic/internal/core/artifact"
	"github.com/flowgraph/flowlogic/internal/core/compiler"
	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/pkg/serialization"
)

func TestPostgresArtifactSaver(t *testing.T) {
	url := os.Getenv("FLOWLOGIC_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test requires PostgreSQL database (set FLOWLOGIC_TEST_DATABASE_URL)")
	}

	ctx := context.Background()
	saver, err := Connect(ctx, url, nil)
	require.NoError(t, err)
	defer saver.Close()

	flows := []flow.Flow{{ID: "create-order", Context: flow.ContextBackend, Trigger: flow.Manual()}}
	id := uuid.NewString()
	a := artifact.FromBundle(id, compiler.CompileBundle(flows, flow.ContextBackend, nil), time.Now().Truncate(time.Microsecond))

	require.NoError(t, saver.Save(ctx, a))

	loaded, err := saver.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a.Files, loaded.Files)
	assert.Equal(t, a.FlowIDs, loaded.FlowIDs)
	assert.True(t, a.CreatedAt.Equal(loaded.CreatedAt))

	listed, err := saver.List(ctx, artifact.Filter{Digest: a.Digest, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, saver.Delete(ctx, id))
	_, err = saver.Load(ctx, id)
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)
}

func TestPostgresArtifactSaver_Errors(t *testing.T) {
	ctx := context.Background()
	saver := &ArtifactSaver{
		pool:       nil,
		serializer: serialization.DefaultSerializer(),
		tableName:  "artifacts",
	}

	assert.Equal(t, artifact.ErrInvalidArtifactID, saver.Save(ctx, nil))

	_, err := saver.Load(ctx, "")
	assert.Equal(t, artifact.ErrInvalidArtifactID, err)
	assert.Equal(t, artifact.ErrInvalidArtifactID, saver.Delete(ctx, ""))

	_, err = saver.List(ctx, artifact.Filter{Limit: -1})
	assert.ErrorIs(t, err, artifact.ErrInvalidLimit)
}

func TestBuildListQuery(t *testing.T) {
	s := NewArtifactSaver(nil, nil)
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	q, args := s.buildListQuery(artifact.Filter{Context: flow.ContextBackend, Since: &since, Limit: 10, Offset: 20})
	assert.Contains(t, q, "AND context = $1")
	assert.Contains(t, q, "AND created_at >= $2")
	assert.Contains(t, q, "LIMIT $3")
	assert.Contains(t, q, "OFFSET $4")
	assert.Equal(t, []any{"backend", since, 10, 20}, args)
}
