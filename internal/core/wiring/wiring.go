// Package wiring resolves which runtime event, endpoint, mount or schedule
// activates which flow, and the single effective trigger of every flow.
package wiring

import "github.com/flowgraph/flowlogic/internal/core/flow"

// ScheduleEntry is one scheduled flow.
type ScheduleEntry struct {
	FlowID string `json:"flow_id" msgpack:"flow_id"`
	Cron   string `json:"cron" msgpack:"cron"`
}

// FlowWiring is the validated mapping from runtime activations to flow ids.
// Values are produced by Resolve and never mutated afterwards.
type FlowWiring struct {
	EventMap          map[string]string       `json:"event_map" msgpack:"event_map"`   // EventKey -> flow id
	APIMap            map[string]string       `json:"api_map" msgpack:"api_map"`       // endpoint id -> flow id
	MountMap          map[string][]string     `json:"mount_map" msgpack:"mount_map"`   // component id -> sorted flow ids
	Schedule          []ScheduleEntry         `json:"schedule" msgpack:"schedule"`     // sorted by flow id
	ManualFlowIDs     []string                `json:"manual_flow_ids" msgpack:"manual_flow_ids"`
	EffectiveTriggers map[string]flow.Trigger `json:"effective_triggers" msgpack:"effective_triggers"`
}

// New returns an empty wiring, the value used when no snapshot has been
// resolved.
func New() *FlowWiring {
	return &FlowWiring{
		EventMap:          make(map[string]string),
		APIMap:            make(map[string]string),
		MountMap:          make(map[string][]string),
		Schedule:          []ScheduleEntry{},
		ManualFlowIDs:     []string{},
		EffectiveTriggers: make(map[string]flow.Trigger),
	}
}

// EventKey builds the event_map key for a component event.
func EventKey(componentID, event string) string {
	return componentID + ":" + event
}

// FlowForEvent returns the flow bound to a component event.
func (w *FlowWiring) FlowForEvent(componentID, event string) (string, bool) {
	id, ok := w.EventMap[EventKey(componentID, event)]
	return id, ok
}

// FlowForAPI returns the flow bound to an endpoint.
func (w *FlowWiring) FlowForAPI(apiID string) (string, bool) {
	id, ok := w.APIMap[apiID]
	return id, ok
}

// MountFlowIDsFor returns the flows run when the component mounts.
func (w *FlowWiring) MountFlowIDsFor(componentID string) []string {
	ids := w.MountMap[componentID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// EffectiveTrigger returns the resolved trigger of a flow.
func (w *FlowWiring) EffectiveTrigger(flowID string) (flow.Trigger, bool) {
	t, ok := w.EffectiveTriggers[flowID]
	return t, ok
}

// IsManual reports whether the flow stayed manual after resolution.
func (w *FlowWiring) IsManual(flowID string) bool {
	t, ok := w.EffectiveTriggers[flowID]
	return ok && t.Kind == flow.TriggerManual
}
