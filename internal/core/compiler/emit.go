package compiler

import (
	"strings"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

var comparisonOperators = map[string]bool{
	"==": true, "!=": true, "===": true, "!==": true,
	">": true, "<": true, ">=": true, "<=": true,
}

// emit writes the statements of one node and reports whether the node is
// terminal, meaning its next_nodes were already consumed or must not run.
func (e *emitter) emit(n *flow.Node, path []string) bool {
	p := bind(n)
	w := e.w

	switch n.Type {
	case flow.NodeStart:
		return false

	// control flow
	case flow.NodeCondition:
		op := p.literal("operator")
		if !comparisonOperators[op] {
			op = "==="
		}
		w.open("if ((%s) %s (%s)) {", p.expr("left"), op, p.expr("right"))
		e.walk(n.NextNodes, path)
		if len(n.ElseNodes) > 0 {
			w.close("} else {")
			w.depth++
			e.walk(n.ElseNodes, path)
		}
		w.close("}")
		return true
	case flow.NodeForEach:
		slot := p.name("item")
		item := localName(slot, "item")
		// Items are evaluated before the loop binding exists.
		w.open("{")
		w.line("const __items = (%s) ?? [];", p.expr("items"))
		w.open("for (const %s of __items) {", item)
		w.line("state[%s] = %s;", jsString(slot), item)
		e.walk(n.NextNodes, path)
		w.close("}")
		w.close("}")
		return true
	case flow.NodeWhile:
		w.open("while (%s) {", p.expr("condition"))
		e.walk(n.NextNodes, path)
		w.close("}")
		return true
	case flow.NodeDelay:
		w.line("await new Promise((resolve) => setTimeout(resolve, %d));", p.integer("ms"))
		return false
	case flow.NodeTryCatch:
		w.open("try {")
		e.walk(n.NextNodes, path)
		w.close("} catch (caught) {")
		w.depth++
		w.line("state[%s] = caught instanceof Error ? caught.message : String(caught);", jsString(p.name("error_variable")))
		e.walk(n.ElseNodes, path)
		w.close("}")
		return true

	// data
	case flow.NodeSetVariable:
		w.line("state[%s] = (%s);", jsString(p.name("name")), p.expr("value"))
		return false
	case flow.NodeGetVariable:
		w.line("state[%s] = state[%s];", jsString(p.name("target")), jsString(p.name("name")))
		return false
	case flow.NodeTransform:
		w.line("state[%s] = (%s);", jsString(p.name("target")), p.expr("expression"))
		return false

	// ui actions
	case flow.NodeNavigate:
		e.action("navigate", "path", jsString(p.literal("path")))
		return false
	case flow.NodeAlert:
		e.action("alert", "message", jsString(p.literal("message")), "severity", jsString(p.name("type")))
		return false
	case flow.NodeOpenModal:
		e.action("open_modal", "modalId", jsString(p.literal("modal_id")))
		return false
	case flow.NodeCloseModal:
		e.action("close_modal", "modalId", jsString(p.literal("modal_id")))
		return false
	case flow.NodeToggleClass:
		e.action("toggle_class", "target", jsString(p.literal("target")), "className", jsString(p.literal("class_name")))
		return false
	case flow.NodeSetProperty:
		e.action("set_property",
			"target", jsString(p.literal("target")),
			"property", jsString(p.literal("property")),
			"value", "("+p.expr("value")+")")
		return false

	// http
	case flow.NodeFetchAPI:
		e.request(p, false)
		return false
	case flow.NodeHTTPRequest:
		e.request(p, true)
		return false

	// database
	case flow.NodeDBCreate:
		e.database(p, "create({ data: (%s) })", p.expr("data"))
		return false
	case flow.NodeDBRead:
		if p.boolean("find_many") {
			e.database(p, "findMany()")
		} else {
			e.database(p, "findUnique({ where: { id: req?.params?.id } })")
		}
		return false
	case flow.NodeDBUpdate:
		e.database(p, "update({ where: { id: req?.params?.id }, data: (%s) })", p.expr("data"))
		return false
	case flow.NodeDBDelete:
		e.database(p, "delete({ where: { id: req?.params?.id } })")
		return false

	// response
	case flow.NodeReturn:
		w.open("{")
		w.line("const __result = (%s);", p.expr("value"))
		w.line(`if (res && typeof res.status === "function") res.status(%d).json(__result);`, p.integer("status"))
		w.line("return { data: __result };")
		w.close("}")
		return true
	case flow.NodeThrowError:
		msg := jsString(p.literal("message"))
		w.open(`if (res && typeof res.status === "function") {`)
		w.line("res.status(%d).json({ error: %s });", p.integer("status"), msg)
		w.line("return { error: %s };", msg)
		w.close("}")
		w.line("throw new Error(%s);", msg)
		return true

	// integration
	case flow.NodeSendEmail:
		w.line("state[%s] = { to: %s, subject: %s, body: %s };",
			jsString(p.name("target")),
			jsString(p.literal("to")), jsString(p.literal("subject")), jsString(p.literal("body")))
		return false
	case flow.NodeCustomCode:
		code := p.literal("code")
		if strings.TrimSpace(code) == "" {
			return false
		}
		e.stats.CustomCodeUsed++
		w.line("// custom code: copied verbatim, not sandboxed")
		for _, l := range strings.Split(code, "\n") {
			w.raw(strings.TrimRight(l, "\r"))
		}
		return false
	}

	e.stats.UnknownNodes++
	w.line("// unsupported node type: %s", comment(string(n.Type)))
	return false
}

// action appends one declarative UI instruction for the host runtime.
// fields alternate key and already-rendered value.
func (e *emitter) action(kind string, fields ...string) {
	var b strings.Builder
	b.WriteString("{ type: ")
	b.WriteString(jsString(kind))
	for i := 0; i+1 < len(fields); i += 2 {
		b.WriteString(", ")
		b.WriteString(fields[i])
		b.WriteString(": ")
		b.WriteString(fields[i+1])
	}
	b.WriteString(" }")
	e.w.line("(state.$actions ??= []).push(%s);", b.String())
}

// request emits a fetch through the capability injected in context.req.
// Only methods that carry a payload get a JSON body attached.
func (e *emitter) request(p params, full bool) {
	w := e.w
	method := strings.ToUpper(strings.TrimSpace(p.literal("method")))
	if method == "" {
		method = "GET"
	}
	headers := `{ "Content-Type": "application/json" }`
	if full {
		headers = `{ "Content-Type": "application/json", ...(` + p.expr("headers") + `) }`
	}

	w.open("{")
	w.line("const __fetch = req?.fetch;")
	w.line(`if (typeof __fetch !== "function") throw new Error("fetch capability missing from context.req");`)
	if method == "GET" || method == "HEAD" {
		w.line("const __response = await __fetch(%s, { method: %s, headers: %s });",
			jsString(p.literal("url")), jsString(method), headers)
	} else {
		w.line("const __response = await __fetch(%s, { method: %s, headers: %s, body: JSON.stringify(%s) });",
			jsString(p.literal("url")), jsString(method), headers, p.expr("body"))
	}
	if full {
		w.line("const __body = await __response.json().catch(() => null);")
		w.line("state[%s] = { status: __response.status, ok: __response.ok, data: __body };", jsString(p.name("target")))
	} else {
		w.line("state[%s] = await __response.json();", jsString(p.name("target")))
	}
	w.close("}")
}

// database emits one ORM call through the capability injected in req.db.
func (e *emitter) database(p params, call string, args ...any) {
	w := e.w
	model := strings.ToLower(p.name("model"))
	w.open("{")
	w.line("const __db = req?.db;")
	w.line(`if (!__db) throw new Error("db capability missing from context.req");`)
	w.line("state[%s] = await __db[%s]."+call+";", append([]any{jsString(p.name("target")), jsString(model)}, args...)...)
	w.close("}")
}

// name returns a literal used as a key or identifier; blank values fall
// back to the default.
func (p params) name(key string) string {
	if s := strings.TrimSpace(p.literal(key)); s != "" {
		return s
	}
	return p.lookup(key, KindLiteral).Default.(string)
}
