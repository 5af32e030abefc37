package manager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/device"
	"stemd/pkg/types"
)

// outputDirPrefix names the per-job stem directory created next to the
// input file: <input dir>/stems_<job id>.
const outputDirPrefix = "stems_"

// Progress checkpoints. The engine's own percentages are mapped into the
// band between separateStartPct and separateEndPct.
const (
	loadingPct       = 5
	separateStartPct = 10
	separateEndPct   = 90
	collectPct       = 95
)

// processJob runs one job end to end on a worker goroutine. Every write
// back to the store is a guarded transition, so a cancel that landed at
// any point simply wins and the worker's outcome is dropped.
func (m *Manager) processJob(ctx context.Context, jobID string) {
	log := m.log.With().Str("job_id", jobID).Logger()
	rec, ok := m.store.Get(jobID)
	if !ok {
		log.Error().Msg("queued job vanished from store")
		return
	}
	if !m.store.SetProcessing(jobID) {
		cur, _ := m.store.Get(jobID)
		log.Info().Str("status", string(cur.Status)).Msg("job no longer pending, skipping")
		m.pub.Publish(Event{Name: "job_skipped", JobID: jobID, Fields: map[string]any{"status": string(cur.Status)}})
		return
	}

	jobsInflight.Inc()
	defer jobsInflight.Dec()
	m.pub.Publish(Event{Name: "job_started", JobID: jobID})
	log.Info().Str("file", rec.FilePath).Msg("job started")
	start := time.Now()

	m.store.SetProgress(jobID, loadingPct, types.StageLoadingModel)
	inst, release, err := m.registry.EnsureLoaded(ctx, m.cfg.DefaultModel)
	if err != nil {
		m.finishFailed(jobID, err, log)
		return
	}
	defer release()

	outDir := filepath.Join(filepath.Dir(rec.FilePath), outputDirPrefix+jobID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		m.finishFailed(jobID, fmt.Errorf("create output dir: %w", err), log)
		return
	}

	m.store.SetProgress(jobID, separateStartPct, types.StageSeparating)
	// placement is decided per run, not inherited from load time: a GPU
	// that appeared or vanished since the model went resident is honored
	dev := device.Choose(m.prober.Probe(ctx))
	sctx := ctx
	cancel := func() {}
	if m.cfg.SeparateTimeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, m.cfg.SeparateTimeout)
	}
	last := separateStartPct
	err = m.engine.Separate(sctx, SeparateRequest{
		InputPath: rec.FilePath,
		OutputDir: outDir,
		Variant:   inst.Variant,
		Device:    dev,
		Progress: func(enginePct int) {
			mapped := separateStartPct + enginePct*(separateEndPct-separateStartPct)/100
			if mapped > last {
				last = mapped
				m.store.SetProgress(jobID, mapped, types.StageSeparating)
			}
		},
	})
	cancel()
	if err != nil {
		m.finishFailed(jobID, err, log)
		return
	}

	m.store.SetProgress(jobID, collectPct, types.StageCollectingStems)
	stems, err := m.engine.CollectStems(outDir, inst.Variant, rec.FilePath)
	if err != nil {
		m.finishFailed(jobID, err, log)
		return
	}

	if !m.store.Complete(jobID, stems) {
		cur, _ := m.store.Get(jobID)
		log.Info().Str("status", string(cur.Status)).Msg("job finished but moved on, result dropped")
		m.pub.Publish(Event{Name: "job_result_dropped", JobID: jobID, Fields: map[string]any{"status": string(cur.Status)}})
		return
	}
	took := time.Since(start)
	separationDuration.Observe(took.Seconds())
	jobsFinishedTotal.WithLabelValues(string(types.StatusCompleted)).Inc()
	m.pub.Publish(Event{Name: "job_completed", JobID: jobID, Fields: map[string]any{"stems": len(stems), "took_ms": took.Milliseconds()}})
	log.Info().Strs("stems", sortedStemNames(stems)).Dur("took", took).Msg("job completed")
}

// finishFailed records a failure unless the job already moved on. Engine
// crashes get a short operator hint in the record; the raw stderr tail
// goes to logs and events only.
func (m *Manager) finishFailed(jobID string, err error, log zerolog.Logger) {
	msg := err.Error()
	if code, tail, ok := CrashDetails(err); ok {
		engineCrashesTotal.Inc()
		msg = crashHint(code)
		log.Warn().Int("exit_code", code).Str("stderr_tail", tail).Msg("engine crashed")
		m.pub.Publish(Event{Name: "engine_crash", JobID: jobID, Fields: map[string]any{"exit_code": code, "stderr_tail": tail}})
	}
	if !m.store.Fail(jobID, msg) {
		cur, _ := m.store.Get(jobID)
		log.Info().Str("status", string(cur.Status)).Msg("job failed but moved on, error dropped")
		m.pub.Publish(Event{Name: "job_result_dropped", JobID: jobID, Fields: map[string]any{"error": msg}})
		return
	}
	jobsFinishedTotal.WithLabelValues(string(types.StatusFailed)).Inc()
	m.pub.Publish(Event{Name: "job_failed", JobID: jobID, Fields: map[string]any{"error": msg}})
	log.Warn().Str("error", msg).Msg("job failed")
}

// crashHint is what a polling client sees after an abnormal engine exit.
func crashHint(exitCode int) string {
	return fmt.Sprintf("separation engine crashed (exit status %d): check for missing ffmpeg/codec support or a malformed input file", exitCode)
}
