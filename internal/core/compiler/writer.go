package compiler

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const indentUnit = "  "

// writer accumulates indented source lines.
type writer struct {
	buf   strings.Builder
	depth int
}

func (w *writer) line(format string, args ...any) {
	w.raw(fmt.Sprintf(format, args...))
}

// raw writes s as one line without interpreting format verbs.
func (w *writer) raw(s string) {
	if s == "" {
		w.buf.WriteByte('\n')
		return
	}
	w.buf.WriteString(strings.Repeat(indentUnit, w.depth))
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

func (w *writer) blank() { w.buf.WriteByte('\n') }

func (w *writer) open(format string, args ...any) {
	w.line(format, args...)
	w.depth++
}

func (w *writer) close(s string) {
	if w.depth > 0 {
		w.depth--
	}
	w.raw(s)
}

func (w *writer) String() string { return w.buf.String() }

// jsString returns s as a JavaScript string literal.
func jsString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(b.String(), "\n")
}

// comment flattens text so it cannot escape a line comment.
func comment(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true, "enum": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true, "function": true,
	"if": true, "import": true, "in": true, "instanceof": true, "let": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true, "with": true, "yield": true,
	"await": true, "static": true,
	// locals of every compiled function
	"input": true, "state": true, "payload": true, "ctx": true, "req": true, "res": true,
}

// localName returns name if it is a usable local identifier, else fallback.
// Names starting with "__" belong to the emitter.
func localName(name, fallback string) string {
	if identPattern.MatchString(name) && !reserved[name] && !strings.HasPrefix(name, "__") {
		return name
	}
	return fallback
}
