// Package scanning provides the core connect-scan engine.
//
// The engine takes host and port specifications, expands them through the
// spec package, prunes unreachable hosts through the discovery package, then
// probes every surviving (host, port) pair with a bounded-concurrency TCP
// connect scan and reassembles the outcomes into a report ordered exactly as
// requested.
//
// # Main Components
//
//   - Engine: the top-level pipeline; Run executes a full scan
//   - Options: scan tunables (concurrency ceiling, per-probe timeout,
//     discovery skip, service-lookup protocol)
//   - ConnectProber: one TCP connect attempt classified as open, closed, or
//     filtered
//   - Scheduler: shuffled, bounded-concurrency dispatch of the work set with
//     a pluggable pacing hook
//   - Aggregator: keyed (host, port) result collection and order-restoring
//     finalization into a ScanReport
//
// # Ordering
//
// Probe execution order is randomized by design to spread load across hosts
// and ports. Reported order is strictly the original request order: results
// are keyed by (host, port) at creation time and the final rendering pass
// iterates the request sequences, never the completion sequence.
//
// # Error Handling
//
// Per-probe network errors are never fatal; every probe resolves to a
// classification, with error detail attached for filtered outcomes. A
// missing (host, port) pair at finalization is an IncompleteReport defect,
// indicating the scheduler and aggregator desynchronized.
package scanning
