package compiler

import (
	"path"
	"strings"
)

const (
	// BundleRoot is the directory every generated file lives under.
	BundleRoot = "logic"
	// FunctionPrefix namespaces compiled functions away from reserved and
	// runtime names.
	FunctionPrefix = "flow_"
	// FileExt is the extension of every generated source file.
	FileExt = ".ts"
)

// FunctionName derives the compiled function identifier of a flow id:
// lowercase, every non-alphanumeric run collapsed to one underscore, edge
// underscores trimmed, "f_" prepended when the result starts with a digit,
// then namespaced with FunctionPrefix.
func FunctionName(flowID string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(flowID) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	ident := b.String()
	switch {
	case ident == "":
		ident = "unnamed"
	case ident[0] >= '0' && ident[0] <= '9':
		ident = "f_" + ident
	}
	return FunctionPrefix + ident
}

// FlowFilePath is the bundle path of a compiled function.
func FlowFilePath(functionName string) string {
	return path.Join(BundleRoot, "flows", functionName+FileExt)
}
