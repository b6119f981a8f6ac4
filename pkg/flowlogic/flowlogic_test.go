package flowlogic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
)

func demo() *Snapshot {
	return &Snapshot{
		FlowList: []Flow{
			{
				ID:          "greet",
				Context:     Frontend,
				Trigger:     flow.OnEvent("hello", "onClick"),
				EntryNodeID: "n1",
				Nodes:       []Node{{ID: "n1", Type: flow.NodeAlert, Data: map[string]any{"message": "Hi"}}},
			},
		},
		ElementList: []ElementBinding{{ID: "hello", Events: map[string]string{"onClick": "greet"}}},
	}
}

func TestGenerate(t *testing.T) {
	b, fw, err := Generate(demo(), Frontend)
	require.NoError(t, err)

	assert.Equal(t, "greet", fw.EventMap["hello:onClick"])
	assert.Equal(t, []string{"greet"}, b.FlowIDs())
	f, ok := b.File("logic/flows/flow_greet.ts")
	require.True(t, ok)
	assert.True(t, strings.Contains(f.Content, `"Hi"`))
}

func TestGenerate_Errors(t *testing.T) {
	_, _, err := Generate(demo(), "edge")
	assert.ErrorIs(t, err, flow.ErrInvalidContext)

	s := demo()
	s.ElementList = nil
	_, _, err = Generate(s, Frontend)
	var werr *WiringError
	require.True(t, errors.As(err, &werr))
	assert.ErrorIs(t, err, wiring.ErrComponentNotFound)
}

func TestResolveAndCompile(t *testing.T) {
	s := demo()
	fw, err := Resolve(s)
	require.NoError(t, err)

	c := Compile(&s.FlowList[0])
	assert.Equal(t, "flow_greet", c.FunctionName)

	b := CompileBundle(s.FlowList, Backend, fw)
	assert.Empty(t, b.FlowIDs())
}

func TestRuntime(t *testing.T) {
	rt := NewRuntime()
	ctx := context.Background()

	resp, err := rt.Generate(ctx, demo(), Frontend)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ArtifactID)

	again, err := rt.Generate(ctx, demo(), Frontend)
	require.NoError(t, err)
	assert.True(t, again.Reused)
	assert.Equal(t, resp.ArtifactID, again.ArtifactID)

	a, err := rt.Artifact(ctx, resp.ArtifactID)
	require.NoError(t, err)
	assert.Equal(t, resp.Digest, a.Digest)
}
