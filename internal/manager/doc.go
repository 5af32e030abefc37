// Package manager owns job lifecycle and model residency for the
// separation service. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, HTTP-facing operations.
//   - config.go: ManagerConfig and package defaults; New applies defaults.
//   - jobs.go: in-memory job store and guarded status transitions.
//   - registry.go: per-model slots, load/unload, residency invariants.
//   - pool.go: FIFO intake queue and the worker goroutines draining it.
//   - worker.go: the per-job pipeline a worker runs end to end.
//   - adapter_iface.go: Engine interface the pipeline drives.
//   - adapter_demucs.go: demucs CLI implementation of Engine.
//   - errors.go: error types and helpers (IsUnsupportedModel, IsJobNotFound).
//   - events.go: lifecycle event types for pluggable publishers.
//   - metrics.go: Prometheus collectors for jobs and residency.
//   - status.go: StatusResponse assembly for GET /status.
//
// External packages should treat this package as the orchestration layer
// and use public methods only (New, Start, Close, and the Service methods
// consumed by httpapi). Internal types are subject to change.
package manager
