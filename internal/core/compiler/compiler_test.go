package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

func graph(nodes ...flow.Node) *flow.Flow {
	f := &flow.Flow{
		ID:      "f1",
		Name:    "test flow",
		Trigger: flow.Manual(),
		Context: flow.ContextFrontend,
		Nodes:   nodes,
	}
	if len(nodes) > 0 {
		f.EntryNodeID = nodes[0].ID
	}
	return f
}

func node(id string, t flow.NodeType, data map[string]any, next ...string) flow.Node {
	return flow.Node{ID: id, Type: t, Data: data, NextNodes: next}
}

func TestFunctionName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"save", "flow_save"},
		{"My Flow!", "flow_my_flow"},
		{"--a--b--", "flow_a_b"},
		{"Hello_World", "flow_hello_world"},
		{"123abc", "flow_f_123abc"},
		{"", "flow_unnamed"},
		{"!!!", "flow_unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, FunctionName(tt.id))
		})
	}
}

func TestFlowFilePath(t *testing.T) {
	assert.Equal(t, "logic/flows/flow_save.ts", FlowFilePath("flow_save"))
}

func TestCompile_Identity(t *testing.T) {
	f := graph()
	f.ID = "Order Created"

	c := Compile(f)
	assert.Equal(t, "Order Created", c.FlowID)
	assert.Equal(t, "flow_order_created", c.FunctionName)
	assert.Equal(t, "logic/flows/flow_order_created.ts", c.FilePath)
	assert.Contains(t, c.Source, "export async function flow_order_created(input: FlowInput): Promise<FlowOutput> {")
	assert.Contains(t, c.Source, `import type { FlowInput, FlowOutput } from "../types";`)
}

func TestCompile_NoEntryReturnsPayload(t *testing.T) {
	f := graph(node("a", flow.NodeAlert, nil))
	f.EntryNodeID = ""

	c := Compile(f)
	assert.Contains(t, c.Source, "return { data: input.payload };")
	assert.NotContains(t, c.Source, "const state")
	assert.NotContains(t, c.Source, "$actions")
}

func TestCompile_WrapsBodyInTryCatch(t *testing.T) {
	c := Compile(graph(node("a", flow.NodeStart, nil)))

	assert.Contains(t, c.Source, "try {")
	assert.Contains(t, c.Source, "return { data: state };")
	assert.Contains(t, c.Source, "return { error: err instanceof Error ? err.message : String(err) };")
	assert.Contains(t, c.Source, "const req = ctx.req;")
	assert.Contains(t, c.Source, "const res = ctx.res;")
}

func TestCompile_AlertUsesNoGlobals(t *testing.T) {
	c := Compile(graph(node("n1", flow.NodeAlert, map[string]any{"message": "Hi", "type": "info"})))

	assert.Contains(t, c.Source, `(state.$actions ??= []).push({ type: "alert", message: "Hi", severity: "info" });`)
	for _, global := range []string{"window", "document", "globalThis", "alert("} {
		assert.NotContains(t, c.Source, global)
	}
}

func TestCompile_SuccessorOrder(t *testing.T) {
	c := Compile(graph(
		node("A", flow.NodeSetVariable, map[string]any{"name": "a", "value": 1}, "B"),
		node("B", flow.NodeSetVariable, map[string]any{"name": "b", "value": 2}),
	))

	a := strings.Index(c.Source, `state["a"] = (1);`)
	b := strings.Index(c.Source, `state["b"] = (2);`)
	require.NotEqual(t, -1, a)
	require.NotEqual(t, -1, b)
	assert.Less(t, a, b)
	assert.Equal(t, 2, c.Stats.NodesEmitted)
}

func TestCompile_CycleIsCutOnce(t *testing.T) {
	c := Compile(graph(
		node("A", flow.NodeSetVariable, map[string]any{"name": "a"}, "B"),
		node("B", flow.NodeSetVariable, map[string]any{"name": "b"}, "A"),
	))

	assert.Equal(t, 1, strings.Count(c.Source, "// cycle detected:"))
	assert.Contains(t, c.Source, "// cycle detected: A")
	assert.Equal(t, 1, c.Stats.CyclesCut)
	assert.Equal(t, 2, c.Stats.NodesEmitted)
}

func TestCompile_SelfLoop(t *testing.T) {
	c := Compile(graph(node("A", flow.NodeDelay, nil, "A")))

	assert.Equal(t, 1, strings.Count(c.Source, "// cycle detected: A"))
}

func TestCompile_DiamondIsNotACycle(t *testing.T) {
	c := Compile(graph(
		node("A", flow.NodeStart, nil, "B", "C"),
		node("B", flow.NodeSetVariable, map[string]any{"name": "b"}, "D"),
		node("C", flow.NodeSetVariable, map[string]any{"name": "c"}, "D"),
		node("D", flow.NodeSetVariable, map[string]any{"name": "d"}),
	))

	assert.NotContains(t, c.Source, "cycle detected")
	assert.Equal(t, 2, strings.Count(c.Source, `state["d"] = (undefined);`))
	assert.Equal(t, 5, c.Stats.NodesEmitted)
	assert.Equal(t, 1, c.Stats.Reemitted)
	assert.False(t, c.Stats.Inflated())
}

func TestCompile_DiamondChainReemitsPerPath(t *testing.T) {
	var nodes []flow.Node
	for i := 0; i < 3; i++ {
		h, l, r, next := fmt.Sprintf("h%d", i), fmt.Sprintf("l%d", i), fmt.Sprintf("r%d", i), fmt.Sprintf("h%d", i+1)
		nodes = append(nodes,
			node(h, flow.NodeStart, nil, l, r),
			node(l, flow.NodeSetVariable, map[string]any{"name": l}, next),
			node(r, flow.NodeSetVariable, map[string]any{"name": r}, next),
		)
	}
	nodes = append(nodes, node("h3", flow.NodeSetVariable, map[string]any{"name": "end"}))

	c := Compile(graph(nodes...))

	assert.NotContains(t, c.Source, "cycle detected")
	assert.Equal(t, 8, strings.Count(c.Source, `state["end"] = (undefined);`))
	assert.Equal(t, 29, c.Stats.NodesEmitted)
	assert.Equal(t, 19, c.Stats.Reemitted)
	assert.True(t, c.Stats.Inflated())
}

func TestCompile_DanglingEdgeSkipped(t *testing.T) {
	c := Compile(graph(
		node("A", flow.NodeSetVariable, map[string]any{"name": "a"}, "missing", "B"),
		node("B", flow.NodeSetVariable, map[string]any{"name": "b"}),
	))

	assert.Equal(t, 1, c.Stats.DanglingSkips)
	assert.Contains(t, c.Source, `state["b"]`)
	assert.NotContains(t, c.Source, "missing")
}

func TestCompile_DanglingEntry(t *testing.T) {
	f := graph(node("A", flow.NodeAlert, nil))
	f.EntryNodeID = "ghost"

	c := Compile(f)
	assert.Equal(t, 1, c.Stats.DanglingSkips)
	assert.Contains(t, c.Source, "return { data: state };")
}

func TestCompile_UnknownNodeContinues(t *testing.T) {
	c := Compile(graph(
		node("A", flow.NodeType("teleport"), nil, "B"),
		node("B", flow.NodeSetVariable, map[string]any{"name": "b"}),
	))

	assert.Contains(t, c.Source, "// unsupported node type: teleport")
	assert.Contains(t, c.Source, `state["b"]`)
	assert.Equal(t, 1, c.Stats.UnknownNodes)
}

func TestCompile_LabelsInComments(t *testing.T) {
	n := node("A", flow.NodeDelay, nil)
	n.Label = "wait\nabit"
	c := Compile(graph(n))

	assert.Contains(t, c.Source, "// delay: wait abit")
}

func TestCompile_Condition(t *testing.T) {
	cond := node("if", flow.NodeCondition, map[string]any{"left": "payload.total", "operator": ">", "right": 100}, "big")
	cond.ElseNodes = []string{"small"}

	c := Compile(graph(
		cond,
		node("big", flow.NodeSetVariable, map[string]any{"name": "size", "value": `"big"`}),
		node("small", flow.NodeSetVariable, map[string]any{"name": "size", "value": `"small"`}),
	))

	assert.Contains(t, c.Source, "if ((payload.total) > (100)) {")
	assert.Contains(t, c.Source, "} else {")
	assert.Less(t, strings.Index(c.Source, `state["size"] = ("big");`), strings.Index(c.Source, "} else {"))
	assert.Greater(t, strings.Index(c.Source, `state["size"] = ("small");`), strings.Index(c.Source, "} else {"))
}

func TestCompile_ConditionIsTerminal(t *testing.T) {
	cond := node("if", flow.NodeCondition, nil, "body")
	c := Compile(graph(cond, node("body", flow.NodeDelay, nil)))

	// next_nodes are the branch body, emitted exactly once
	assert.Equal(t, 1, strings.Count(c.Source, "setTimeout"))
	assert.Contains(t, c.Source, "if ((true) === (true)) {")
	assert.NotContains(t, c.Source, "else")
}

func TestCompile_ConditionRejectsUnknownOperator(t *testing.T) {
	c := Compile(graph(node("if", flow.NodeCondition, map[string]any{"left": "a", "operator": "); x(", "right": "b"})))

	assert.Contains(t, c.Source, "if ((a) === (b)) {")
}

func TestCompile_Loops(t *testing.T) {
	t.Run("for_each", func(t *testing.T) {
		c := Compile(graph(
			node("loop", flow.NodeForEach, map[string]any{"items": "payload.rows", "item": "row"}, "body"),
			node("body", flow.NodeTransform, map[string]any{"expression": "row.id", "target": "last"}),
		))
		assert.Contains(t, c.Source, "const __items = (payload.rows) ?? [];")
		assert.Contains(t, c.Source, "for (const row of __items) {")
		assert.Contains(t, c.Source, `state["row"] = row;`)
		assert.Contains(t, c.Source, `state["last"] = (row.id);`)
	})

	t.Run("for_each reserved item", func(t *testing.T) {
		c := Compile(graph(node("loop", flow.NodeForEach, map[string]any{"item": "state"})))
		assert.Contains(t, c.Source, "for (const item of __items) {")
		assert.Contains(t, c.Source, `state["state"] = item;`)
	})

	t.Run("while", func(t *testing.T) {
		c := Compile(graph(node("w", flow.NodeWhile, nil)))
		assert.Contains(t, c.Source, "while (false) {")
	})
}

func TestCompile_TryCatch(t *testing.T) {
	tc := node("try", flow.NodeTryCatch, map[string]any{"error_variable": "failure"}, "risky")
	tc.ElseNodes = []string{"recover"}

	c := Compile(graph(
		tc,
		node("risky", flow.NodeThrowError, map[string]any{"message": "boom"}),
		node("recover", flow.NodeSetVariable, map[string]any{"name": "recovered", "value": true}),
	))

	assert.Contains(t, c.Source, "} catch (caught) {")
	assert.Contains(t, c.Source, `state["failure"] = caught instanceof Error ? caught.message : String(caught);`)
	assert.Greater(t, strings.Index(c.Source, `state["recovered"] = (true);`), strings.Index(c.Source, "catch (caught)"))
}

func TestCompile_Defaults(t *testing.T) {
	tests := []struct {
		name string
		node flow.Node
		want []string
	}{
		{"delay", node("n", flow.NodeDelay, nil), []string{"setTimeout(resolve, 1000)"}},
		{"delay bad ms", node("n", flow.NodeDelay, map[string]any{"ms": "soon"}), []string{"setTimeout(resolve, 1000)"}},
		{"delay negative", node("n", flow.NodeDelay, map[string]any{"ms": -5}), []string{"setTimeout(resolve, 1000)"}},
		{"delay float", node("n", flow.NodeDelay, map[string]any{"ms": float64(250)}), []string{"setTimeout(resolve, 250)"}},
		{"alert", node("n", flow.NodeAlert, nil), []string{`message: ""`, `severity: "info"`}},
		{"navigate", node("n", flow.NodeNavigate, nil), []string{`{ type: "navigate", path: "/" }`}},
		{"set_variable", node("n", flow.NodeSetVariable, nil), []string{`state["value"] = (undefined);`}},
		{"get_variable", node("n", flow.NodeGetVariable, nil), []string{`state["result"] = state["value"];`}},
		{"transform", node("n", flow.NodeTransform, nil), []string{`state["result"] = (payload);`}},
		{"db_read", node("n", flow.NodeDBRead, nil), []string{`state["result"] = await __db["item"].findMany();`}},
		{"db_read one", node("n", flow.NodeDBRead, map[string]any{"model": "User", "find_many": false}),
			[]string{`await db["user"].findUnique({ where: { id: req?.params?.id } });`}},
		{"db_read flag string", node("n", flow.NodeDBRead, map[string]any{"find_many": "false"}), []string{"findUnique("}},
		{"db_create", node("n", flow.NodeDBCreate, nil), []string{`await db["item"].create({ data: (payload) });`}},
		{"db_update", node("n", flow.NodeDBUpdate, nil),
			[]string{`await db["item"].update({ where: { id: req?.params?.id }, data: (payload) });`}},
		{"db_delete", node("n", flow.NodeDBDelete, nil), []string{`await db["item"].delete({ where: { id: req?.params?.id } });`}},
		{"return", node("n", flow.NodeReturn, nil), []string{"const __result = (state);", "res.status(200).json(__result);", "return { data: __result };"}},
		{"throw_error", node("n", flow.NodeThrowError, nil),
			[]string{`res.status(400).json({ error: "Error" });`, `return { error: "Error" };`, `throw new Error("Error");`}},
		{"send_email", node("n", flow.NodeSendEmail, nil), []string{`state["email"] = { to: "", subject: "", body: "" };`}},
		{"fetch_api", node("n", flow.NodeFetchAPI, nil), []string{`__fetch("", { method: "GET"`, `state["response"] = await __response.json();`}},
		{"http_request", node("n", flow.NodeHTTPRequest, nil), []string{`...({})`, `state["http_response"] = { status: __response.status`}},
		{"blank target", node("n", flow.NodeTransform, map[string]any{"target": "  "}), []string{`state["result"] =`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compile(graph(tt.node))
			for _, want := range tt.want {
				assert.Contains(t, c.Source, want)
			}
		})
	}
}

func TestCompile_CapabilitiesComeFromRequest(t *testing.T) {
	t.Run("fetch without body for GET", func(t *testing.T) {
		c := Compile(graph(node("n", flow.NodeFetchAPI, map[string]any{"url": "/api/items"})))
		assert.Contains(t, c.Source, "const __fetch = req?.fetch;")
		assert.Contains(t, c.Source, `throw new Error("fetch capability missing from context.req");`)
		assert.NotContains(t, c.Source, "JSON.stringify")
	})

	t.Run("fetch with body for POST", func(t *testing.T) {
		c := Compile(graph(node("n", flow.NodeFetchAPI, map[string]any{"url": "/api/items", "method": "post", "body": "state.form"})))
		assert.Contains(t, c.Source, `method: "POST"`)
		assert.Contains(t, c.Source, "body: JSON.stringify(state.form)")
	})

	t.Run("db", func(t *testing.T) {
		c := Compile(graph(node("n", flow.NodeDBCreate, map[string]any{"model": "Order"})))
		assert.Contains(t, c.Source, "const __db = req?.db;")
		assert.Contains(t, c.Source, `if (!__db) throw new Error("db capability missing from context.req");`)
		assert.Contains(t, c.Source, `db["order"]`)
	})
}

func TestCompile_ReturnIsTerminal(t *testing.T) {
	c := Compile(graph(
		node("r", flow.NodeReturn, map[string]any{"value": "payload", "status": 201}, "after"),
		node("after", flow.NodeDelay, nil),
	))

	assert.Contains(t, c.Source, "res.status(201).json(__result);")
	assert.NotContains(t, c.Source, "setTimeout")
}

func TestCompile_CustomCodeVerbatim(t *testing.T) {
	code := "const total = payload.items.length;\r\nstate.total = total;"
	c := Compile(graph(node("cc", flow.NodeCustomCode, map[string]any{"code": code})))

	assert.Contains(t, c.Source, "const total = payload.items.length;\n")
	assert.Contains(t, c.Source, "state.total = total;\n")
	assert.Contains(t, c.Source, "not sandboxed")
	assert.Equal(t, 1, c.Stats.CustomCodeUsed)
}

func TestCompile_EmptyCustomCodeIsNotCounted(t *testing.T) {
	c := Compile(graph(node("cc", flow.NodeCustomCode, map[string]any{"code": "  \n "})))

	assert.Equal(t, 0, c.Stats.CustomCodeUsed)
	assert.NotContains(t, c.Source, "not sandboxed")
}

func TestCompile_UserExpressionsDoNotSeeEmitterLocals(t *testing.T) {
	tests := []struct {
		name    string
		node    flow.Node
		want    []string
		notWant []string
	}{
		{
			name: "for_each items reference the item name",
			node: node("n", flow.NodeForEach, map[string]any{"items": "row.children", "item": "row"}),
			want: []string{"const __items = (row.children) ?? [];", "for (const row of __items) {"},
		},
		{
			name:    "return value named result",
			node:    node("n", flow.NodeReturn, map[string]any{"value": "result"}),
			want:    []string{"const __result = (result);"},
			notWant: []string{"const result"},
		},
		{
			name:    "http body named body",
			node:    node("n", flow.NodeHTTPRequest, map[string]any{"method": "POST", "body": "body"}),
			want:    []string{"body: JSON.stringify(body)", "const __body = await __response.json()"},
			notWant: []string{"const body", "const response"},
		},
		{
			name:    "db data named db",
			node:    node("n", flow.NodeDBCreate, map[string]any{"data": "db"}),
			want:    []string{`await __db["item"].create({ data: (db) });`},
			notWant: []string{"const db "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Compile(graph(tt.node))
			for _, want := range tt.want {
				assert.Contains(t, c.Source, want)
			}
			for _, bad := range tt.notWant {
				assert.NotContains(t, c.Source, bad)
			}
		})
	}
}

func TestCompile_LiteralsAreQuoted(t *testing.T) {
	c := Compile(graph(node("n", flow.NodeNavigate, map[string]any{"path": `/x"); evil(); ("`})))

	assert.Contains(t, c.Source, `path: "/x\"); evil(); (\""`)
}

func TestCompile_Deterministic(t *testing.T) {
	f := graph(
		node("A", flow.NodeStart, nil, "B", "C"),
		node("B", flow.NodeAlert, map[string]any{"message": "b"}),
		node("C", flow.NodeReturn, nil),
	)
	assert.Equal(t, Compile(f).Source, Compile(f).Source)
}

func TestContractFor(t *testing.T) {
	for _, nt := range flow.NodeTypes() {
		_, ok := ContractFor(nt)
		assert.True(t, ok, "node type %s has no contract", nt)
	}

	c, ok := ContractFor(flow.NodeDelay)
	require.True(t, ok)
	require.Len(t, c, 1)
	assert.Equal(t, Param{Key: "ms", Kind: KindInt, Default: 1000}, c[0])

	c, _ = ContractFor(flow.NodeDBRead)
	p, ok := c.param("find_many")
	require.True(t, ok)
	assert.Equal(t, true, p.Default)

	_, ok = ContractFor(flow.NodeType("teleport"))
	assert.False(t, ok)
}

func TestJSString(t *testing.T) {
	assert.Equal(t, `"plain"`, jsString("plain"))
	assert.Equal(t, `"a\"b"`, jsString(`a"b`))
	assert.Equal(t, `"line\nbreak"`, jsString("line\nbreak"))
	assert.Equal(t, `"<b>"`, jsString("<b>"))
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "row", localName("row", "item"))
	assert.Equal(t, "item", localName("class", "item"))
	assert.Equal(t, "item", localName("payload", "item"))
	assert.Equal(t, "item", localName("1st", "item"))
	assert.Equal(t, "$el", localName("$el", "item"))
	assert.Equal(t, "item", localName("__items", "item"))
}
