package manager

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/device"
	"stemd/pkg/types"
)

// Manager wires the job store, model registry and worker pool together
// and exposes the operations the HTTP layer serves. One Manager runs per
// process.
type Manager struct {
	cfg    ManagerConfig
	log    zerolog.Logger
	engine Engine
	prober device.Prober
	pub    EventPublisher

	store    *JobStore
	registry *ModelRegistry
	pool     *Pool

	startTime time.Time
}

// New constructs a Manager from ManagerConfig. Engine is required;
// everything else falls back to package defaults.
func New(cfg ManagerConfig) (*Manager, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("manager: Engine is required")
	}
	cfg = cfg.withDefaults()
	if _, ok := cfg.Models[cfg.DefaultModel]; !ok {
		return nil, fmt.Errorf("manager: default model %q is not in the model set", cfg.DefaultModel)
	}
	m := &Manager{
		cfg:       cfg,
		log:       cfg.Logger,
		engine:    cfg.Engine,
		prober:    cfg.Prober,
		pub:       cfg.Publisher,
		store:     newJobStore(),
		startTime: time.Now(),
	}
	m.registry = newModelRegistry(cfg.Models, cfg.Engine, cfg.Prober, cfg.Publisher, cfg.Logger)
	m.pool = newPool(cfg.Workers, m.processJob, cfg.Logger)
	return m, nil
}

// Start launches the worker pool. The context governs worker lifetime:
// cancel it to stop pulling new jobs.
func (m *Manager) Start(ctx context.Context) {
	m.pool.Start(ctx)
	m.log.Info().Int("workers", m.cfg.Workers).Str("default_model", m.cfg.DefaultModel).Msg("manager started")
}

// killGrace bounds the second wait after a timed-out drain, giving
// killed engine subprocesses a moment to be reaped before exit.
const killGrace = time.Second

// Close waits for running jobs to finish (bounded by DrainTimeout),
// kills whatever is still running past that and unloads every resident
// model. Call after canceling the Start context so workers stop picking
// up queued work.
func (m *Manager) Close(ctx context.Context) error {
	drained := m.pool.Drain(m.cfg.DrainTimeout)
	if !drained {
		m.log.Warn().Dur("timeout", m.cfg.DrainTimeout).Msg("drain timed out with jobs still running, killing engine runs")
	}
	m.pool.Kill()
	if !drained {
		m.pool.Drain(killGrace)
	}
	m.registry.UnloadAll(ctx)
	m.log.Info().Bool("drained", drained).Msg("manager closed")
	return nil
}

// Health reports liveness plus current GPU visibility. The probe is
// fresh on every call.
func (m *Manager) Health(ctx context.Context) types.HealthResponse {
	info := m.prober.Probe(ctx)
	return types.HealthResponse{Status: "ok", GPUAvailable: info.Available}
}

// LoadModel makes the named model resident ahead of the first job.
func (m *Manager) LoadModel(ctx context.Context, name string) (types.ModelActionResponse, error) {
	outcome, err := m.registry.Load(ctx, name)
	if err != nil {
		return types.ModelActionResponse{}, err
	}
	return types.ModelActionResponse{Status: string(outcome)}, nil
}

// UnloadModel releases the named model. Unknown names and never-loaded
// models both report not_found; neither is an error.
func (m *Manager) UnloadModel(ctx context.Context, name string) (types.ModelActionResponse, error) {
	outcome, err := m.registry.Unload(ctx, name)
	if err != nil {
		return types.ModelActionResponse{}, err
	}
	return types.ModelActionResponse{Status: string(outcome)}, nil
}

// SubmitSeparation registers a job and queues it. Always succeeds: file
// existence and engine health surface later on the job record, where a
// poller will find them.
func (m *Manager) SubmitSeparation(ctx context.Context, req types.SeparationRequest) (types.SubmitResponse, error) {
	jobID := m.store.Create(req.FilePath)
	jobsSubmittedTotal.Inc()
	m.pub.Publish(Event{Name: "job_created", JobID: jobID, Fields: map[string]any{
		"file_path":  req.FilePath,
		"stem_count": req.StemCount,
	}})
	m.log.Info().Str("job_id", jobID).Str("file", req.FilePath).Msg("job accepted")
	m.pool.Submit(jobID)
	return types.SubmitResponse{JobID: jobID, Status: types.StatusPending}, nil
}

// Job returns the current record for a job id.
func (m *Manager) Job(ctx context.Context, id string) (types.JobRecord, error) {
	rec, ok := m.store.Get(id)
	if !ok {
		return types.JobRecord{}, ErrJobNotFound(id)
	}
	return rec, nil
}

// CancelJob flags a job cancelled. Best effort: queued jobs never run,
// running jobs finish their engine pass but their outcome is dropped.
func (m *Manager) CancelJob(ctx context.Context, id string) (types.CancelResponse, error) {
	if !m.store.Cancel(id) {
		return types.CancelResponse{}, ErrJobNotFound(id)
	}
	jobsFinishedTotal.WithLabelValues(string(types.StatusCancelled)).Inc()
	m.pub.Publish(Event{Name: "job_cancelled", JobID: id})
	m.log.Info().Str("job_id", id).Msg("job cancelled")
	return types.CancelResponse{Status: types.StatusCancelled}, nil
}

// EngineName identifies the engine in startup logging.
func (m *Manager) EngineName() string {
	return strings.TrimSpace(m.engine.Name())
}
