package validation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
)

func validSnapshot() *schema.Snapshot {
	return &schema.Snapshot{
		FlowList: []flow.Flow{
			{
				ID:      "save",
				Context: flow.ContextFrontend,
				Trigger: flow.OnEvent("btn", "onClick"),
				Nodes: []flow.Node{
					{ID: "n1", Type: flow.NodeAlert},
				},
				EntryNodeID: "n1",
			},
		},
		ElementList:  []schema.ElementBinding{{ID: "btn", Events: map[string]string{"onClick": "save"}}},
		EndpointList: []schema.Endpoint{{ID: "a1", FlowID: ""}},
	}
}

func fields(err error) []string {
	var out []string
	if errs, ok := err.(ValidationErrors); ok {
		for _, e := range errs {
			out = append(out, e.Field)
		}
	}
	return out
}

func TestValidationError(t *testing.T) {
	err := ValidationError{Field: "name", Value: "", Message: "field is required"}

	assert.Equal(t, "validation error on field 'name': field is required (got: )", err.Error())
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "id", Value: "", Message: "field is required"},
		{Field: "context", Value: "mobile", Message: "bad"},
	}

	assert.Equal(t,
		"validation error on field 'id': field is required (got: ); validation error on field 'context': bad (got: mobile)",
		errs.Error())
	assert.Equal(t, "no validation errors", ValidationErrors{}.Error())
	assert.NoError(t, ValidationErrors{}.orNil())
}

func TestValidateSnapshot_Valid(t *testing.T) {
	assert.NoError(t, ValidateSnapshot(validSnapshot(), nil))
}

func TestValidateSnapshot_TagErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *schema.Snapshot)
		field  string
	}{
		{"missing flow id", func(s *schema.Snapshot) { s.FlowList[0].ID = "" }, "flows[0].id"},
		{"padded flow id", func(s *schema.Snapshot) { s.FlowList[0].ID = " save" }, "flows[0].id"},
		{"bad context", func(s *schema.Snapshot) { s.FlowList[0].Context = "mobile" }, "flows[0].context"},
		{"bad trigger", func(s *schema.Snapshot) { s.FlowList[0].Trigger.Kind = "cron" }, "flows[0].trigger.kind"},
		{"missing node id", func(s *schema.Snapshot) { s.FlowList[0].Nodes[0].ID = "" }, "flows[0].nodes[0].id"},
		{"bad node type", func(s *schema.Snapshot) { s.FlowList[0].Nodes[0].Type = "Alert Box" }, "flows[0].nodes[0].node_type"},
		{"missing element id", func(s *schema.Snapshot) { s.ElementList[0].ID = "" }, "elements[0].id"},
		{"bad element kind", func(s *schema.Snapshot) { s.ElementList[0].Kind = "page" }, "elements[0].kind"},
		{"bad event target", func(s *schema.Snapshot) { s.ElementList[0].Events["onClick"] = "a b " }, "elements[0].events[onClick]"},
		{"missing endpoint id", func(s *schema.Snapshot) { s.EndpointList[0].ID = "" }, "endpoints[0].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSnapshot()
			tt.mutate(s)

			err := ValidateSnapshot(s, nil)
			require.Error(t, err)
			assert.Contains(t, fields(err), tt.field)
		})
	}
}

func TestValidateSnapshot_Duplicates(t *testing.T) {
	s := validSnapshot()
	s.FlowList = append(s.FlowList, s.FlowList[0])
	s.FlowList[0].Nodes = append(s.FlowList[0].Nodes, flow.Node{ID: "n1", Type: flow.NodeDelay})
	s.ElementList = append(s.ElementList, schema.ElementBinding{ID: "btn"})
	s.EndpointList = append(s.EndpointList, schema.Endpoint{ID: "a1"})

	err := ValidateSnapshot(s, nil)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{
		"flows[1].id",
		"flows[0].nodes[1].id",
	}, fields(err))
}

func TestValidateSnapshot_RepeatedBindingRecordsAreLeftToWiring(t *testing.T) {
	s := validSnapshot()
	s.ElementList = append(s.ElementList, s.ElementList[0])
	s.EndpointList = append(s.EndpointList, s.EndpointList[0])

	assert.NoError(t, ValidateSnapshot(s, nil))
}

func TestValidateSnapshot_StrictMode(t *testing.T) {
	s := validSnapshot()
	s.FlowList[0].Nodes[0].Type = "teleport"

	assert.NoError(t, ValidateSnapshot(s, nil))

	err := ValidateSnapshot(s, &ValidationConfig{StrictMode: true})
	require.Error(t, err)
	assert.Equal(t, []string{"flows[0].nodes[0].node_type"}, fields(err))
}

func TestValidateSnapshot_MaxErrors(t *testing.T) {
	s := validSnapshot()
	for i := 0; i < 5; i++ {
		s.EndpointList = append(s.EndpointList, schema.Endpoint{})
	}

	err := ValidateSnapshot(s, &ValidationConfig{MaxErrors: 2})
	require.Error(t, err)
	assert.Len(t, err.(ValidationErrors), 2)
}

func TestValidateSnapshot_Nil(t *testing.T) {
	assert.Error(t, ValidateSnapshot(nil, nil))
}

func TestValidateFlows(t *testing.T) {
	flows := []flow.Flow{
		{ID: "ok", Context: flow.ContextBackend, Trigger: flow.Manual()},
		{ID: "bad", Context: flow.ContextBackend, Trigger: flow.Manual(),
			Nodes: []flow.Node{{ID: "a", Type: flow.NodeDelay}, {ID: "a", Type: flow.NodeDelay}}},
	}

	err := ValidateFlows(flows)
	require.Error(t, err)
	errs := err.(ValidationErrors)
	require.Len(t, errs, 1)
	assert.Equal(t, "flows[1]", errs[0].Field)
	assert.Contains(t, errs[0].Message, flow.ErrDuplicateNode.Error())
}

func TestMarshalValidationErrors(t *testing.T) {
	errs := ValidationErrors{{Field: "id", Value: "x", Message: "bad"}}

	data, err := MarshalValidationErrors(errs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":[{"field":"id","value":"x","message":"bad"}],"count":1}`, string(data))

	back, err := UnmarshalValidationErrors(data)
	require.NoError(t, err)
	assert.Equal(t, errs, back)
}

type createRequest struct {
	Context flow.Context `json:"context" validate:"required,flow_context"`
	Name    string       `json:"name" validate:"required"`
}

func TestMiddleware_ValidateJSON(t *testing.T) {
	m := NewMiddleware(nil)
	var got *createRequest
	handler := m.ValidateJSON(createRequest{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := Body[createRequest](r)
		require.True(t, ok)
		got = body
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"context":"backend","name":"x"}`, http.StatusNoContent},
		{"malformed", `{"context":`, http.StatusBadRequest},
		{"unknown field", `{"context":"backend","name":"x","extra":1}`, http.StatusBadRequest},
		{"invalid", `{"context":"mobile","name":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusNoContent {
				require.NotNil(t, got)
				assert.Equal(t, flow.ContextBackend, got.Context)
				return
			}
			assert.Nil(t, got)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var doc struct {
				Count int `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
			assert.Positive(t, doc.Count)
		})
	}
}

func TestMiddleware_BodyLimit(t *testing.T) {
	m := NewMiddleware(nil).WithMaxBodyBytes(8)
	handler := m.ValidateJSON(createRequest{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"context":"backend","name":"long enough"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMiddleware_ValidateQueryParams(t *testing.T) {
	m := NewMiddleware(nil)
	handler := m.ValidateQueryParams(map[string]string{
		"limit":   "numeric",
		"context": "flow_context",
		"persist": "bool",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for target, status := range map[string]int{
		"/?limit=10&context=frontend": http.StatusOK,
		"/":                           http.StatusOK,
		"/?limit=ten":                 http.StatusBadRequest,
		"/?context=mobile":            http.StatusBadRequest,
		"/?persist=true":              http.StatusOK,
		"/?persist=maybe":             http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, status, rec.Code, target)
	}
}

func TestBody_Missing(t *testing.T) {
	_, ok := Body[createRequest](httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}
