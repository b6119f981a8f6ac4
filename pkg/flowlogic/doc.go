// Package flowlogic provides a minimal public façade for resolving flow
// wiring and generating logic bundles without importing internal packages.
// It re-exports the core types and exposes a Runtime that keeps generated
// bundles in memory.
package flowlogic
