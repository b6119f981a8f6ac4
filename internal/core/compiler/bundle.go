package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
)

// File is one generated text file, its path relative to the project root.
type File struct {
	Path    string `json:"path" msgpack:"path"`
	Content string `json:"content" msgpack:"content"`
}

// LogicBundle is every generated file for one runtime context: the fixed
// support files first, then one file per compiled flow in flow id order.
type LogicBundle struct {
	Context  flow.Context   `json:"context"`
	Files    []File         `json:"files"`
	Compiled []CompiledFlow `json:"compiled"`
}

// SupportFileCount is the number of files present in every bundle.
const SupportFileCount = 5

// CompileBundle compiles the active flows of ctx and assembles them with
// the support files. fw supplies the schedule; nil is treated as empty.
func CompileBundle(flows []flow.Flow, ctx flow.Context, fw *wiring.FlowWiring) *LogicBundle {
	var eligible []flow.Flow
	if ctx.Valid() {
		eligible = flow.FilterActive(flows, ctx)
	}

	compiled := make([]CompiledFlow, 0, len(eligible))
	taken := make(map[string]bool, len(eligible))
	for i := range eligible {
		compiled = append(compiled, compileAs(&eligible[i], uniqueName(FunctionName(eligible[i].ID), taken)))
	}

	files := make([]File, 0, SupportFileCount+len(compiled))
	files = append(files,
		typesFile(),
		registryFile(compiled),
		runnerFile(),
		scheduleFile(ctx, fw),
		indexFile(),
	)
	for _, c := range compiled {
		files = append(files, File{Path: c.FilePath, Content: c.Source})
	}

	return &LogicBundle{Context: ctx, Files: files, Compiled: compiled}
}

// uniqueName suffixes fn with _2, _3, ... until it is unused. Distinct ids
// can sanitize to the same identifier.
func uniqueName(fn string, taken map[string]bool) string {
	name := fn
	for i := 2; taken[name]; i++ {
		name = fmt.Sprintf("%s_%d", fn, i)
	}
	taken[name] = true
	return name
}

// File returns the file at path.
func (b *LogicBundle) File(path string) (File, bool) {
	for _, f := range b.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// FlowIDs returns the ids of the compiled flows in bundle order.
func (b *LogicBundle) FlowIDs() []string {
	ids := make([]string, len(b.Compiled))
	for i, c := range b.Compiled {
		ids[i] = c.FlowID
	}
	return ids
}

// Digest is a hex SHA-256 over the ordered path and content pairs.
func (b *LogicBundle) Digest() string {
	return DigestFiles(b.Files)
}

// DigestFiles hashes files in order as path NUL content NUL.
func DigestFiles(files []File) string {
	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.Path))
		h.Write([]byte{0})
		h.Write([]byte(f.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
