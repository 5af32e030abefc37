package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name plus job/model identifiers and optional fields
// via key/values. Event names in use: job_created, job_started, job_skipped,
// job_completed, job_failed, job_cancelled, engine_crash, model_loaded,
// model_load_failed, model_unloaded, model_unload_inflight.
type Event struct {
	Name   string
	JobID  string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
