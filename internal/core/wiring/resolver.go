package wiring

import (
	"sort"
	"strings"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/schema"
)

// resolver carries the indexes of a single Resolve call.
type resolver struct {
	view    schema.View
	flows   map[string]*flow.Flow
	inbound map[string][]flow.Trigger // flow id -> concrete triggers of the bindings pointing at it
	out     *FlowWiring
}

// Resolve derives the FlowWiring of a snapshot. The first violated rule
// aborts resolution; no partial wiring is returned.
//
// Iteration is sorted throughout so resolving the same snapshot twice yields
// identical output.
func Resolve(view schema.View) (*FlowWiring, error) {
	r := &resolver{
		view:    view,
		flows:   make(map[string]*flow.Flow),
		inbound: make(map[string][]flow.Trigger),
		out:     New(),
	}

	active := flow.FilterActive(view.Flows(), "")
	for i := range active {
		r.flows[active[i].ID] = &active[i]
	}

	if err := r.scanElements(); err != nil {
		return nil, err
	}
	if err := r.scanEndpoints(); err != nil {
		return nil, err
	}
	for i := range active {
		if err := r.resolveTrigger(&active[i]); err != nil {
			return nil, err
		}
	}
	r.normalize()
	return r.out, nil
}

func (r *resolver) scanElements() error {
	elements := append([]schema.ElementBinding(nil), r.view.Elements()...)
	sort.SliceStable(elements, func(i, j int) bool { return elements[i].ID < elements[j].ID })

	for _, el := range elements {
		events := make([]string, 0, len(el.Events))
		for ev := range el.Events {
			events = append(events, ev)
		}
		sort.Strings(events)

		for _, ev := range events {
			flowID := el.Events[ev]
			if flowID == "" {
				continue
			}
			key := EventKey(el.ID, ev)
			f, ok := r.flows[flowID]
			if !ok {
				return bindingError(ErrFlowNotFound, key, flowID, "event binding references missing flow")
			}
			if f.Context != flow.ContextFrontend {
				return bindingError(ErrContextMismatch, key, flowID,
					"event bindings require a frontend flow, got %s", f.Context)
			}
			if existing, bound := r.out.EventMap[key]; bound {
				if existing != flowID {
					return bindingError(ErrConflictingBinding, key, flowID,
						"already bound to flow %q", existing)
				}
				continue
			}
			r.out.EventMap[key] = flowID
			r.inbound[flowID] = append(r.inbound[flowID], flow.OnEvent(el.ID, ev))
		}
	}
	return nil
}

func (r *resolver) scanEndpoints() error {
	endpoints := append([]schema.Endpoint(nil), r.view.Endpoints()...)
	sort.SliceStable(endpoints, func(i, j int) bool { return endpoints[i].ID < endpoints[j].ID })

	for _, ep := range endpoints {
		if ep.FlowID == "" {
			continue
		}
		key := "endpoint:" + ep.ID
		f, ok := r.flows[ep.FlowID]
		if !ok {
			return bindingError(ErrFlowNotFound, key, ep.FlowID, "endpoint references missing flow")
		}
		if f.Context != flow.ContextBackend {
			return bindingError(ErrContextMismatch, key, ep.FlowID,
				"endpoint bindings require a backend flow, got %s", f.Context)
		}
		if existing, bound := r.out.APIMap[ep.ID]; bound {
			if existing != ep.FlowID {
				return bindingError(ErrConflictingBinding, key, ep.FlowID,
					"already bound to flow %q", existing)
			}
			continue
		}
		r.out.APIMap[ep.ID] = ep.FlowID
		r.inbound[ep.FlowID] = append(r.inbound[ep.FlowID], flow.OnAPI(ep.ID))
	}
	return nil
}

func (r *resolver) resolveTrigger(f *flow.Flow) error {
	t := f.Trigger
	if required, ok := t.RequiredContext(); ok && f.Context != required {
		return flowError(ErrContextMismatch, f.ID, "%s trigger requires a %s flow, got %s", t.Kind, required, f.Context)
	}

	switch t.Kind {
	case flow.TriggerManual:
		// A manual flow with exactly one inbound binding adopts that binding's trigger.
		if refs := r.inbound[f.ID]; len(refs) == 1 {
			r.out.EffectiveTriggers[f.ID] = refs[0]
			return nil
		}
		r.out.EffectiveTriggers[f.ID] = flow.Manual()
		r.out.ManualFlowIDs = append(r.out.ManualFlowIDs, f.ID)

	case flow.TriggerEvent:
		if !r.view.HasComponent(t.ComponentID) && !r.view.HasBlock(t.ComponentID) {
			return flowError(ErrComponentNotFound, f.ID, "event trigger component %q", t.ComponentID)
		}
		key := EventKey(t.ComponentID, t.Event)
		if bound, ok := r.out.EventMap[key]; !ok || bound != f.ID {
			return bindingError(ErrBindingNotFound, key, f.ID, "component %q has no %q binding to this flow", t.ComponentID, t.Event)
		}
		r.out.EffectiveTriggers[f.ID] = t

	case flow.TriggerAPI:
		ep, ok := r.view.Endpoint(t.APIID)
		if !ok {
			return flowError(ErrEndpointNotFound, f.ID, "api trigger endpoint %q", t.APIID)
		}
		if ep.FlowID != f.ID {
			return flowError(ErrNotLinkedBack, f.ID, "endpoint %q links flow %q", t.APIID, ep.FlowID)
		}
		r.out.EffectiveTriggers[f.ID] = t

	case flow.TriggerMount:
		id := t.ComponentID
		if !r.view.HasPage(id) && !r.view.HasComponent(id) && !r.view.HasBlock(id) {
			return flowError(ErrMountTargetNotFound, f.ID, "no page, component or block %q", id)
		}
		r.out.MountMap[id] = append(r.out.MountMap[id], f.ID)
		r.out.EffectiveTriggers[f.ID] = t

	case flow.TriggerSchedule:
		if strings.TrimSpace(t.Cron) == "" {
			return flowError(ErrEmptyCron, f.ID, "schedule trigger needs a cron expression")
		}
		r.out.Schedule = append(r.out.Schedule, ScheduleEntry{FlowID: f.ID, Cron: t.Cron})
		r.out.EffectiveTriggers[f.ID] = t

	default:
		return flowError(ErrUnknownTrigger, f.ID, "kind %q", t.Kind)
	}
	return nil
}

func (r *resolver) normalize() {
	for id, ids := range r.out.MountMap {
		r.out.MountMap[id] = sortedUnique(ids)
	}
	sort.Strings(r.out.ManualFlowIDs)
	sort.SliceStable(r.out.Schedule, func(i, j int) bool {
		return r.out.Schedule[i].FlowID < r.out.Schedule[j].FlowID
	})
}

func sortedUnique(ids []string) []string {
	sort.Strings(ids)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := len(out); n > 0 && out[n-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
