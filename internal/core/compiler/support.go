package compiler

import (
	"path"

	"github.com/flowgraph/flowlogic/internal/core/flow"
	"github.com/flowgraph/flowlogic/internal/core/wiring"
)

// Support file paths, present in every bundle in this order.
var (
	TypesPath    = path.Join(BundleRoot, "types"+FileExt)
	RegistryPath = path.Join(BundleRoot, "registry"+FileExt)
	RunnerPath   = path.Join(BundleRoot, "runner"+FileExt)
	SchedulePath = path.Join(BundleRoot, "schedule"+FileExt)
	IndexPath    = path.Join(BundleRoot, "index"+FileExt)
)

// UnknownFlowMessage is the runner's error prefix for ids missing from the
// registry. Hosts match on it.
const UnknownFlowMessage = "Unknown flow: "

const generatedHeader = "// Generated by flowlogic. Do not edit."

func typesFile() File {
	w := &writer{}
	w.raw(generatedHeader)
	w.raw(`export type FlowTrigger = "event" | "api" | "mount" | "schedule" | "manual";`)
	w.blank()
	w.open("export interface FlowContext {")
	w.line("event?: any;")
	w.line("req?: any;")
	w.line("res?: any;")
	w.close("}")
	w.blank()
	w.open("export interface FlowInput {")
	w.line("trigger: FlowTrigger;")
	w.line("payload?: any;")
	w.line("context?: FlowContext;")
	w.close("}")
	w.blank()
	w.open("export interface FlowOutput {")
	w.line("data?: any;")
	w.line("error?: string;")
	w.close("}")
	w.blank()
	w.line("export type FlowFunction = (input: FlowInput) => Promise<FlowOutput>;")
	return File{Path: TypesPath, Content: w.String()}
}

func registryFile(compiled []CompiledFlow) File {
	w := &writer{}
	w.raw(generatedHeader)
	w.line(`import type { FlowFunction } from "./types";`)
	for _, c := range compiled {
		w.line("import { %s } from %s;", c.FunctionName, jsString("./flows/"+c.FunctionName))
	}
	w.blank()
	if len(compiled) == 0 {
		w.line("export const flowRegistry: Record<string, FlowFunction> = {};")
		return File{Path: RegistryPath, Content: w.String()}
	}
	// Computed keys keep ids like "__proto__" as own properties.
	w.open("export const flowRegistry: Record<string, FlowFunction> = {")
	for _, c := range compiled {
		w.line("[%s]: %s,", jsString(c.FlowID), c.FunctionName)
	}
	w.close("};")
	return File{Path: RegistryPath, Content: w.String()}
}

func runnerFile() File {
	w := &writer{}
	w.raw(generatedHeader)
	w.line(`import type { FlowInput, FlowOutput } from "./types";`)
	w.line(`import { flowRegistry } from "./registry";`)
	w.blank()
	w.open("export async function runFlow(flowId: string, input: FlowInput): Promise<FlowOutput> {")
	w.open("if (!Object.prototype.hasOwnProperty.call(flowRegistry, flowId)) {")
	w.line("return { error: `%s${flowId}` };", UnknownFlowMessage)
	w.close("}")
	w.open("try {")
	w.line("return await flowRegistry[flowId](input);")
	w.close("} catch (err) {")
	w.depth++
	w.line("return { error: err instanceof Error ? err.message : String(err) };")
	w.close("}")
	w.close("}")
	return File{Path: RunnerPath, Content: w.String()}
}

// scheduleFile lists the cron bindings of the wiring. Only backend bundles
// carry entries.
func scheduleFile(ctx flow.Context, fw *wiring.FlowWiring) File {
	var entries []wiring.ScheduleEntry
	if ctx == flow.ContextBackend && fw != nil {
		entries = fw.Schedule
	}

	w := &writer{}
	w.raw(generatedHeader)
	w.line(`import type { FlowOutput } from "./types";`)
	w.line(`import { runFlow } from "./runner";`)
	w.blank()
	w.open("export interface ScheduledFlow {")
	w.line("flowId: string;")
	w.line("cron: string;")
	w.close("}")
	w.blank()
	if len(entries) == 0 {
		w.line("export const scheduledFlows: ScheduledFlow[] = [];")
	} else {
		w.open("export const scheduledFlows: ScheduledFlow[] = [")
		for _, e := range entries {
			w.line("{ flowId: %s, cron: %s },", jsString(e.FlowID), jsString(e.Cron))
		}
		w.close("];")
	}
	w.blank()
	w.open("export async function runScheduledFlow(flowId: string): Promise<FlowOutput> {")
	w.line(`return runFlow(flowId, { trigger: "schedule" });`)
	w.close("}")
	return File{Path: SchedulePath, Content: w.String()}
}

func indexFile() File {
	w := &writer{}
	w.raw(generatedHeader)
	w.line(`export * from "./types";`)
	w.line(`export * from "./registry";`)
	w.line(`export * from "./runner";`)
	w.line(`export * from "./schedule";`)
	return File{Path: IndexPath, Content: w.String()}
}
