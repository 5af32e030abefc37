package manager

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"stemd/internal/device"
	"stemd/pkg/types"
)

// LoadOutcome is the wire-visible result of a load or unload call.
type LoadOutcome string

const (
	OutcomeLoaded        LoadOutcome = "loaded"
	OutcomeAlreadyLoaded LoadOutcome = "already_loaded"
	OutcomeUnloaded      LoadOutcome = "unloaded"
	OutcomeNotFound      LoadOutcome = "not_found"
)

// modelSlot holds residency state for one supported model name. The
// per-slot mutex serializes the whole check-and-load sequence, so two
// concurrent loads of the same name produce exactly one engine load.
type modelSlot struct {
	name    string
	variant string

	mu    sync.Mutex
	inst  *ModelInstance
	inUse atomic.Int32
}

// ModelRegistry owns every model slot. The slot set is fixed at
// construction; only the residency state inside each slot changes, which
// keeps map reads lock-free.
type ModelRegistry struct {
	slots  map[string]*modelSlot
	engine Engine
	prober device.Prober
	pub    EventPublisher
	log    zerolog.Logger
}

func newModelRegistry(models map[string]string, engine Engine, prober device.Prober, pub EventPublisher, log zerolog.Logger) *ModelRegistry {
	slots := make(map[string]*modelSlot, len(models))
	for name, variant := range models {
		slots[name] = &modelSlot{name: name, variant: variant}
	}
	return &ModelRegistry{slots: slots, engine: engine, prober: prober, pub: pub, log: log}
}

// Supported reports whether name is a registry key.
func (r *ModelRegistry) Supported(name string) bool {
	_, ok := r.slots[name]
	return ok
}

// Load makes the named model resident. Device placement is decided fresh
// from a probe on every load, so a GPU that appeared since startup gets
// used. Loading an already-resident model is a cheap no-op.
func (r *ModelRegistry) Load(ctx context.Context, name string) (LoadOutcome, error) {
	s := r.slots[name]
	if s == nil {
		return "", ErrUnsupportedModel(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst != nil {
		return OutcomeAlreadyLoaded, nil
	}
	if err := r.loadSlotLocked(ctx, s); err != nil {
		return "", err
	}
	return OutcomeLoaded, nil
}

// loadSlotLocked performs the engine load for a slot whose mutex is held
// and whose instance is nil.
func (r *ModelRegistry) loadSlotLocked(ctx context.Context, s *modelSlot) error {
	dev := device.Choose(r.prober.Probe(ctx))
	inst, err := r.engine.LoadModel(ctx, s.variant, dev)
	if err != nil {
		modelLoadsTotal.WithLabelValues(s.name, "error").Inc()
		r.pub.Publish(Event{Name: "model_load_failed", Model: s.name, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	s.inst = inst
	modelLoadsTotal.WithLabelValues(s.name, string(OutcomeLoaded)).Inc()
	modelsResident.WithLabelValues(s.name).Set(1)
	r.pub.Publish(Event{Name: "model_loaded", Model: s.name, Fields: map[string]any{"variant": s.variant, "device": string(dev)}})
	r.log.Info().Str("model", s.name).Str("variant", s.variant).Str("device", string(dev)).Msg("model loaded")
	return nil
}

// Unload releases the named model's instance and asks the runtime to
// return freed memory to the OS. Unloading is blunt: in-flight jobs that
// already acquired the instance keep running, which is logged rather
// than prevented.
func (r *ModelRegistry) Unload(ctx context.Context, name string) (LoadOutcome, error) {
	s := r.slots[name]
	if s == nil {
		return OutcomeNotFound, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		return OutcomeNotFound, nil
	}
	if n := s.inUse.Load(); n > 0 {
		r.log.Warn().Str("model", name).Int32("active_jobs", n).Msg("unloading model with jobs in flight")
		r.pub.Publish(Event{Name: "model_unload_inflight", Model: name, Fields: map[string]any{"active_jobs": n}})
	}
	if err := r.engine.ReleaseModel(s.inst); err != nil {
		r.log.Warn().Err(err).Str("model", name).Msg("engine release failed, clearing slot anyway")
	}
	s.inst = nil
	debug.FreeOSMemory()
	modelsResident.WithLabelValues(name).Set(0)
	r.pub.Publish(Event{Name: "model_unloaded", Model: name})
	r.log.Info().Str("model", name).Msg("model unloaded")
	return OutcomeUnloaded, nil
}

// EnsureLoaded returns the resident instance for name, loading it first
// if needed, plus a release func the caller must invoke when done using
// the instance. The in-use count only tracks unload warnings; release is
// always safe to call once.
func (r *ModelRegistry) EnsureLoaded(ctx context.Context, name string) (*ModelInstance, func(), error) {
	s := r.slots[name]
	if s == nil {
		return nil, nil, ErrUnsupportedModel(name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inst == nil {
		if err := r.loadSlotLocked(ctx, s); err != nil {
			return nil, nil, err
		}
	}
	s.inUse.Add(1)
	var once sync.Once
	release := func() { once.Do(func() { s.inUse.Add(-1) }) }
	return s.inst, release, nil
}

// UnloadAll releases every resident model. Used at shutdown.
func (r *ModelRegistry) UnloadAll(ctx context.Context) {
	for _, name := range r.names() {
		if _, err := r.Unload(ctx, name); err != nil {
			r.log.Warn().Err(err).Str("model", name).Msg("unload at shutdown failed")
		}
	}
}

// Snapshot reports every slot for the status endpoint.
func (r *ModelRegistry) Snapshot() []types.ModelSlotStatus {
	out := make([]types.ModelSlotStatus, 0, len(r.slots))
	for _, name := range r.names() {
		s := r.slots[name]
		s.mu.Lock()
		st := types.ModelSlotStatus{Name: s.name, Variant: s.variant, Loaded: s.inst != nil}
		if s.inst != nil {
			st.Device = string(s.inst.Device)
			st.LoadedAtUnix = s.inst.LoadedAt.Unix()
		}
		s.mu.Unlock()
		out = append(out, st)
	}
	return out
}

func (r *ModelRegistry) names() []string {
	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
