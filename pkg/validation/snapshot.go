package validation

import (
	"fmt"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
)

// ValidateSnapshot checks field tags and flow and node id uniqueness of a
// snapshot. Element and endpoint records may repeat an id: their bindings
// merge, and conflicting or idempotent rebindings are judged by the wiring
// resolver like every other cross-record rule.
func ValidateSnapshot(s *schema.Snapshot, config *ValidationConfig) error {
	if config == nil {
		config = DefaultValidationConfig()
	}
	if s == nil {
		return ValidationErrors{{Field: "snapshot", Message: "snapshot is required"}}
	}

	var errs ValidationErrors
	if err := Struct(s); err != nil {
		tagErrs, ok := err.(ValidationErrors)
		if !ok {
			return err
		}
		errs = append(errs, tagErrs...)
	}

	flowIDs := make(map[string]bool, len(s.FlowList))
	for i := range s.FlowList {
		f := &s.FlowList[i]
		if f.ID != "" && flowIDs[f.ID] {
			errs.add(fmt.Sprintf("flows[%d].id", i), f.ID, "duplicate flow ID")
		}
		flowIDs[f.ID] = true

		nodeIDs := make(map[string]bool, len(f.Nodes))
		for j, n := range f.Nodes {
			if n.ID != "" && nodeIDs[n.ID] {
				errs.add(fmt.Sprintf("flows[%d].nodes[%d].id", i, j), n.ID, "duplicate node ID in flow %s", f.ID)
			}
			nodeIDs[n.ID] = true
			if config.StrictMode && n.Type != "" && !n.Type.Known() {
				errs.add(fmt.Sprintf("flows[%d].nodes[%d].node_type", i, j), string(n.Type), "unsupported node type")
			}
		}
	}

	return config.truncate(errs).orNil()
}

// ValidateFlows runs each flow's own invariants and reports the first
// failure per flow.
func ValidateFlows(flows []flow.Flow) error {
	var errs ValidationErrors
	for i := range flows {
		if err := flows[i].Validate(); err != nil {
			errs.add(fmt.Sprintf("flows[%d]", i), flows[i].ID, "%v", err)
		}
	}
	return errs.orNil()
}
