package flow

import "fmt"

// TriggerKind tags the Trigger variant.
type TriggerKind string

const (
	TriggerManual   TriggerKind = "manual"
	TriggerEvent    TriggerKind = "event"
	TriggerAPI      TriggerKind = "api"
	TriggerMount    TriggerKind = "mount"
	TriggerSchedule TriggerKind = "schedule"
)

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerManual, TriggerEvent, TriggerAPI, TriggerMount, TriggerSchedule:
		return true
	}
	return false
}

// Trigger is the declared cause that runs a flow. Kind selects which of the
// payload fields are meaningful:
//
//	manual   -
//	event    ComponentID, Event
//	api      APIID
//	mount    ComponentID
//	schedule Cron
//
// Build values with the constructors below so unused fields stay empty.
type Trigger struct {
	Kind        TriggerKind `json:"kind" yaml:"kind" msgpack:"kind" validate:"required,trigger_kind"`
	ComponentID string      `json:"component_id,omitempty" yaml:"component_id,omitempty" msgpack:"component_id,omitempty"`
	Event       string      `json:"event,omitempty" yaml:"event,omitempty" msgpack:"event,omitempty"`
	APIID       string      `json:"api_id,omitempty" yaml:"api_id,omitempty" msgpack:"api_id,omitempty"`
	Cron        string      `json:"cron,omitempty" yaml:"cron,omitempty" msgpack:"cron,omitempty"`
}

// Manual returns a trigger that is only ever invoked explicitly.
func Manual() Trigger { return Trigger{Kind: TriggerManual} }

// OnEvent returns a trigger fired by a UI element event.
func OnEvent(componentID, event string) Trigger {
	return Trigger{Kind: TriggerEvent, ComponentID: componentID, Event: event}
}

// OnAPI returns a trigger fired by an HTTP endpoint.
func OnAPI(apiID string) Trigger { return Trigger{Kind: TriggerAPI, APIID: apiID} }

// OnMount returns a trigger fired when a page, component or block mounts.
func OnMount(componentID string) Trigger {
	return Trigger{Kind: TriggerMount, ComponentID: componentID}
}

// OnSchedule returns a trigger fired on a cron schedule.
func OnSchedule(cron string) Trigger { return Trigger{Kind: TriggerSchedule, Cron: cron} }

// RequiredContext returns the only runtime context the trigger kind is valid
// for. Manual triggers are valid everywhere and report false.
func (t Trigger) RequiredContext() (Context, bool) {
	switch t.Kind {
	case TriggerEvent, TriggerMount:
		return ContextFrontend, true
	case TriggerAPI, TriggerSchedule:
		return ContextBackend, true
	}
	return "", false
}

func (t Trigger) String() string {
	switch t.Kind {
	case TriggerEvent:
		return fmt.Sprintf("event(%s:%s)", t.ComponentID, t.Event)
	case TriggerAPI:
		return fmt.Sprintf("api(%s)", t.APIID)
	case TriggerMount:
		return fmt.Sprintf("mount(%s)", t.ComponentID)
	case TriggerSchedule:
		return fmt.Sprintf("schedule(%s)", t.Cron)
	case TriggerManual:
		return "manual"
	}
	return fmt.Sprintf("unknown(%s)", t.Kind)
}
