package types

// JobStatus is the lifecycle state of a separation job.
type JobStatus string

const (
	// StatusPending means the job is queued and has not been picked up yet.
	StatusPending JobStatus = "pending"
	// StatusProcessing means a worker is currently separating the file.
	StatusProcessing JobStatus = "processing"
	// StatusCompleted means separation finished and stem paths are available.
	StatusCompleted JobStatus = "completed"
	// StatusFailed means separation finished with an error.
	StatusFailed JobStatus = "failed"
	// StatusCancelled means a caller cancelled the job. Cancellation is
	// best-effort: work already running is not interrupted, but the record
	// stays cancelled no matter how that work ends.
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. A terminal record never
// transitions again.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Stage values reported in a job record's current_stage field, in the
// order a healthy job passes through them.
const (
	StageLoadingModel    = "loading_model"
	StageSeparating      = "separating"
	StageCollectingStems = "collecting_stems"
	StageDone            = "done"
)

// ModelDemucs is the only model name the service accepts today. The
// registry is keyed by name so more can be added without touching the
// job pipeline.
const ModelDemucs = "demucs"

// JobRecord is the full state of one separation job as returned by
// GET /jobs/{id}. There is no id field: the id is the lookup key.
type JobRecord struct {
	// Current lifecycle status.
	// example: processing
	Status JobStatus `json:"status" example:"processing"`
	// Absolute path of the input file as submitted.
	// example: /home/user/song.wav
	FilePath string `json:"file_path" example:"/home/user/song.wav"`
	// Coarse progress in percent (0-100).
	// example: 42
	Progress int `json:"progress" example:"42"`
	// Pipeline stage the job is in (loading_model, separating, ...).
	// example: separating
	CurrentStage string `json:"current_stage" example:"separating"`
	// Stem name to absolute output path. Null until the job completes.
	Result map[string]string `json:"result"`
	// Failure message. Absent unless the job failed.
	// example: input file not found
	Error string `json:"error,omitempty" example:"input file not found"`
}
