// Package metrics exposes Prometheus instrumentation for the costguard
// pipeline: usage events, attributed spend, budget pressure, and sentinel
// alert volume.
//
// All metrics live under the "costguard" namespace and are registered on a
// private registry so tests can assert on collector output without touching
// the global default registry.
package metrics
