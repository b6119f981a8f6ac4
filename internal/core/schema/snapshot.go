package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowgraph/flowlogic/internal/core/flow"
)

// Snapshot is a value-type View. It is what the schema layer serializes
// when handing a project over for code generation.
type Snapshot struct {
	FlowList     []flow.Flow      `json:"flows" yaml:"flows" validate:"dive"`
	ElementList  []ElementBinding `json:"elements,omitempty" yaml:"elements,omitempty" validate:"dive"`
	Pages        []string         `json:"pages,omitempty" yaml:"pages,omitempty"`
	EndpointList []Endpoint       `json:"endpoints,omitempty" yaml:"endpoints,omitempty" validate:"dive"`
}

var _ View = (*Snapshot)(nil)

func (s *Snapshot) Flows() []flow.Flow         { return s.FlowList }
func (s *Snapshot) Elements() []ElementBinding { return s.ElementList }
func (s *Snapshot) Endpoints() []Endpoint      { return s.EndpointList }

func (s *Snapshot) Endpoint(id string) (Endpoint, bool) {
	for _, ep := range s.EndpointList {
		if ep.ID == id {
			return ep, true
		}
	}
	return Endpoint{}, false
}

func (s *Snapshot) HasPage(id string) bool {
	for _, p := range s.Pages {
		if p == id {
			return true
		}
	}
	return false
}

// HasComponent treats elements without an explicit kind as components.
func (s *Snapshot) HasComponent(id string) bool {
	return s.hasElement(id, func(k ElementKind) bool { return k == "" || k == ElementComponent })
}

func (s *Snapshot) HasBlock(id string) bool {
	return s.hasElement(id, func(k ElementKind) bool { return k == ElementBlock })
}

func (s *Snapshot) hasElement(id string, match func(ElementKind) bool) bool {
	for _, el := range s.ElementList {
		if el.ID == id && match(el.Kind) {
			return true
		}
	}
	return false
}

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Decode reads a snapshot in the given format.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	var snap Snapshot
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&snap); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&snap); err != nil && err != io.EOF {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return &snap, nil
}

// DecodeBytes is Decode over an in-memory document.
func DecodeBytes(data []byte, format Format) (*Snapshot, error) {
	return Decode(bytes.NewReader(data), format)
}

// FormatFromPath picks a format from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}
