package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// ParamKind is how a node configuration value is interpreted.
type ParamKind string

const (
	// KindLiteral values are plain strings emitted as quoted string literals.
	KindLiteral ParamKind = "literal"
	// KindExpr values are user-supplied expressions emitted verbatim.
	KindExpr ParamKind = "expr"
	KindInt  ParamKind = "int"
	KindBool ParamKind = "bool"
)

// Param is one expected configuration key of a node type.
type Param struct {
	Key     string    `json:"key"`
	Kind    ParamKind `json:"kind"`
	Default any       `json:"default"`
}

// Contract lists the configuration keys a node type reads.
type Contract []Param

func lit(key, def string) Param { return Param{Key: key, Kind: KindLiteral, Default: def} }
func expr(key, def string) Param { return Param{Key: key, Kind: KindExpr, Default: def} }
func integer(key string, def int) Param { return Param{Key: key, Kind: KindInt, Default: def} }
func boolean(key string, def bool) Param { return Param{Key: key, Kind: KindBool, Default: def} }

var contracts = map[flow.NodeType]Contract{
	flow.NodeStart:     {},
	flow.NodeCondition: {expr("left", "true"), lit("operator", "==="), expr("right", "true")},
	flow.NodeForEach:   {expr("items", "[]"), lit("item", "item")},
	flow.NodeWhile:     {expr("condition", "false")},
	flow.NodeDelay:     {integer("ms", 1000)},
	flow.NodeTryCatch:  {lit("error_variable", "error")},

	flow.NodeSetVariable: {lit("name", "value"), expr("value", "undefined")},
	flow.NodeGetVariable: {lit("name", "value"), lit("target", "result")},
	flow.NodeTransform:   {expr("expression", "payload"), lit("target", "result")},

	flow.NodeNavigate:    {lit("path", "/")},
	flow.NodeAlert:       {lit("message", ""), lit("type", "info")},
	flow.NodeOpenModal:   {lit("modal_id", "")},
	flow.NodeCloseModal:  {lit("modal_id", "")},
	flow.NodeToggleClass: {lit("target", ""), lit("class_name", "")},
	flow.NodeSetProperty: {lit("target", ""), lit("property", ""), expr("value", "undefined")},

	flow.NodeFetchAPI:    {lit("url", ""), lit("method", "GET"), expr("body", "payload"), lit("target", "response")},
	flow.NodeHTTPRequest: {lit("url", ""), lit("method", "GET"), expr("body", "payload"), expr("headers", "{}"), lit("target", "http_response")},

	flow.NodeDBCreate: {lit("model", "item"), expr("data", "payload"), lit("target", "result")},
	flow.NodeDBRead:   {lit("model", "item"), boolean("find_many", true), lit("target", "result")},
	flow.NodeDBUpdate: {lit("model", "item"), expr("data", "payload"), lit("target", "result")},
	flow.NodeDBDelete: {lit("model", "item"), lit("target", "result")},

	flow.NodeReturn:     {expr("value", "state"), integer("status", 200)},
	flow.NodeThrowError: {lit("message", "Error"), integer("status", 400)},

	flow.NodeSendEmail:  {lit("to", ""), lit("subject", ""), lit("body", ""), lit("target", "email")},
	flow.NodeCustomCode: {lit("code", "")},
}

// ContractFor returns the configuration contract of a node type.
func ContractFor(t flow.NodeType) (Contract, bool) {
	c, ok := contracts[t]
	return c, ok
}

func (c Contract) param(key string) (Param, bool) {
	for _, p := range c {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

// params is a node's configuration viewed through its contract. Raw values
// of the wrong kind are ignored in favour of the declared default.
type params struct {
	data     map[string]any
	contract Contract
}

func bind(n *flow.Node) params {
	return params{data: n.Data, contract: contracts[n.Type]}
}

func (p params) lookup(key string, kind ParamKind) Param {
	ps, ok := p.contract.param(key)
	if !ok || ps.Kind != kind {
		panic(fmt.Sprintf("compiler: no %s param %q in contract", kind, key))
	}
	return ps
}

// literal returns a string value.
func (p params) literal(key string) string {
	ps := p.lookup(key, KindLiteral)
	if s, ok := p.data[key].(string); ok {
		return s
	}
	return ps.Default.(string)
}

// expr returns an expression. Scalars are accepted as their JavaScript
// spelling; blank strings fall back to the default.
func (p params) expr(key string) string {
	ps := p.lookup(key, KindExpr)
	switch v := p.data[key].(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return ps.Default.(string)
}

// integer returns a non-negative integer value.
func (p params) integer(key string) int {
	ps := p.lookup(key, KindInt)
	def := ps.Default.(int)
	var n int64
	switch v := p.data[key].(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint64:
		if v > math.MaxInt32 {
			return def
		}
		n = int64(v)
	case float64:
		if v != math.Trunc(v) || v < 0 || v > math.MaxInt32 {
			return def
		}
		n = int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return def
		}
		n = parsed
	default:
		return def
	}
	if n < 0 || n > math.MaxInt32 {
		return def
	}
	return int(n)
}

func (p params) boolean(key string) bool {
	ps := p.lookup(key, KindBool)
	switch v := p.data[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return ps.Default.(bool)
}
