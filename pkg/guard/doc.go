// Package guard wires the CostGuard pipeline: each usage event reported
// by the agent runtime is attributed to a source, priced, appended to the
// ledger, then checked against budgets and the sentinel detectors.
//
// Guard is the single entry point the hosting process calls per event.
// Events are serialized through one writer so ledger appends and the
// follow-up reads observe a consistent ordering.
package guard
