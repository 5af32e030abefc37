package types

// SeparationRequest is the payload for POST /process/separate.
type SeparationRequest struct {
	// Required absolute path to the audio file to separate.
	// example: /home/user/song.wav
	FilePath string `json:"file_path" example:"/home/user/song.wav"`
	// Requested number of stems. Recorded for forward compatibility;
	// the current engine always produces its model's native stem set.
	// example: 4
	StemCount int `json:"stem_count,omitempty" example:"4"`
}

// SubmitResponse acknowledges an accepted separation job.
type SubmitResponse struct {
	// Server-generated job identifier to poll with.
	// example: 3e1f3c0a-9d5b-4c1e-8f2a-7f0d6e9b4a21
	JobID string `json:"job_id" example:"3e1f3c0a-9d5b-4c1e-8f2a-7f0d6e9b4a21"`
	// Initial job status, always "pending".
	// example: pending
	Status JobStatus `json:"status" example:"pending"`
}

// ModelActionResponse reports the outcome of a load or unload call.
type ModelActionResponse struct {
	// Outcome: loaded, already_loaded, unloaded or not_found.
	// example: loaded
	Status string `json:"status" example:"loaded"`
}

// CancelResponse acknowledges a cancellation.
type CancelResponse struct {
	// Always "cancelled" when the job exists.
	// example: cancelled
	Status JobStatus `json:"status" example:"cancelled"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Always "ok" while the process is serving.
	// example: ok
	Status string `json:"status" example:"ok"`
	// Whether a usable GPU was visible at probe time.
	// example: true
	GPUAvailable bool `json:"gpu_available" example:"true"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelSlotStatus summarizes one registry slot for /status.
type ModelSlotStatus struct {
	// Public model name clients load and unload by.
	// example: demucs
	Name string `json:"name" example:"demucs"`
	// Engine-level variant backing the name.
	// example: htdemucs
	Variant string `json:"variant" example:"htdemucs"`
	// Whether an instance is currently resident.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Device the instance was placed on (cpu or gpu). Empty when unloaded.
	// example: gpu
	Device string `json:"device,omitempty" example:"gpu"`
	// Load time in unix seconds. Zero when unloaded.
	// example: 1700000000
	LoadedAtUnix int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
}

// DeviceStatus describes the compute device as last probed.
type DeviceStatus struct {
	// Whether a usable GPU was detected.
	// example: true
	GPUAvailable bool `json:"gpu_available" example:"true"`
	// GPU product name when available.
	// example: NVIDIA GeForce RTX 3080
	Name string `json:"name,omitempty" example:"NVIDIA GeForce RTX 3080"`
	// Total VRAM in MB when available.
	// example: 10240
	TotalMB int `json:"total_mb,omitempty" example:"10240"`
	// Free VRAM in MB when available.
	// example: 9800
	FreeMB int `json:"free_mb,omitempty" example:"9800"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state (ok while serving).
	// example: ok
	State string `json:"state" example:"ok"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Compute device as last probed.
	Device DeviceStatus `json:"device"`
	// Registry slots, one per supported model.
	Models []ModelSlotStatus `json:"models"`
	// Job counts keyed by lifecycle status.
	Jobs map[JobStatus]int `json:"jobs"`
	// Jobs accepted but not yet picked up by a worker.
	// example: 2
	QueueLen int `json:"queue_len" example:"2"`
	// Number of worker goroutines.
	// example: 1
	Workers int `json:"workers" example:"1"`
}
