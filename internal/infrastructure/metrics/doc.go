// Package metrics exposes Prometheus counters and histograms for bundle
// generation. A nil *Metrics is valid and records nothing, so the core use
// case can run without a registry.
package metrics
