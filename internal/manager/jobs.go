package manager

import (
	"sync"

	"github.com/google/uuid"

	"stemd/pkg/types"
)

// JobStore is the in-memory source of truth for job records. Every
// mutation is a guarded transition under one lock: writers name the
// status they expect, and a record that moved on (completed, failed,
// cancelled) silently wins over late writers. Records live until process
// exit; there is no eviction.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*types.JobRecord
}

func newJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*types.JobRecord)}
}

// Create registers a new pending job and returns its id.
func (s *JobStore) Create(filePath string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	for s.jobs[id] != nil {
		id = uuid.NewString()
	}
	s.jobs[id] = &types.JobRecord{
		Status:   types.StatusPending,
		FilePath: filePath,
	}
	return id
}

// Get returns a copy of the record so callers can serialize it without
// holding the lock.
func (s *JobStore) Get(id string) (types.JobRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.jobs[id]
	if rec == nil {
		return types.JobRecord{}, false
	}
	out := *rec
	out.Result = cloneStems(rec.Result)
	return out, true
}

// SetProcessing claims a pending job for a worker. Returns false when
// the job is gone or no longer pending (e.g., cancelled while queued),
// in which case the worker must skip it.
func (s *JobStore) SetProcessing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.jobs[id]
	if rec == nil || rec.Status != types.StatusPending {
		return false
	}
	rec.Status = types.StatusProcessing
	return true
}

// SetProgress updates progress and stage on a processing job. Updates to
// jobs in any other status are dropped, so a cancel that landed mid-run
// is never overwritten by the engine's progress stream.
func (s *JobStore) SetProgress(id string, percent int, stage string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.jobs[id]
	if rec == nil || rec.Status != types.StatusProcessing {
		return
	}
	rec.Progress = percent
	if stage != "" {
		rec.CurrentStage = stage
	}
}

// Complete finishes a processing job with its stem map. Returns false if
// the job was cancelled (or otherwise moved) in flight; the result is
// then dropped.
func (s *JobStore) Complete(id string, stems map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.jobs[id]
	if rec == nil || rec.Status != types.StatusProcessing {
		return false
	}
	rec.Status = types.StatusCompleted
	rec.Result = cloneStems(stems)
	rec.Progress = 100
	rec.CurrentStage = types.StageDone
	return true
}

// Fail finishes a processing job with an error message. Same guard as
// Complete: a cancelled job stays cancelled.
func (s *JobStore) Fail(id string, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.jobs[id]
	if rec == nil || rec.Status != types.StatusProcessing {
		return false
	}
	rec.Status = types.StatusFailed
	rec.Error = msg
	return true
}

// Cancel marks the job cancelled regardless of its current status,
// mirroring the service's best-effort contract: the flag is an override,
// not a transition, and it sticks. Returns false only for unknown ids.
func (s *JobStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.jobs[id]
	if rec == nil {
		return false
	}
	rec.Status = types.StatusCancelled
	return true
}

// Counts returns how many records sit in each status.
func (s *JobStore) Counts() map[types.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.JobStatus]int, 5)
	for _, rec := range s.jobs {
		out[rec.Status]++
	}
	return out
}

// Len returns the total number of records.
func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func cloneStems(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
