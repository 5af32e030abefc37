package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"stemd/internal/device"
	"stemd/pkg/types"
)

// fakeEngine is a lightweight in-memory engine used for tests.
type fakeEngine struct {
	mu       sync.Mutex
	loads    []string
	releases int
	runs     []SeparateRequest

	loadErr    error
	sepErr     error
	collectErr error
	stems      map[string]string
	progress   []int
	loadDelay  time.Duration

	// started, when non-nil, receives a token as each Separate call
	// begins. block, when non-nil, parks Separate until closed; with
	// ignoreCtx the park survives context cancellation, standing in for
	// an engine that cannot be interrupted.
	started   chan struct{}
	block     chan struct{}
	ignoreCtx bool
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) LoadModel(ctx context.Context, variant string, dev device.Kind) (*ModelInstance, error) {
	if f.loadDelay > 0 {
		select {
		case <-time.After(f.loadDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.loads = append(f.loads, variant)
	return &ModelInstance{Variant: variant, Device: dev, LoadedAt: time.Now()}, nil
}

func (f *fakeEngine) ReleaseModel(*ModelInstance) error {
	f.mu.Lock()
	f.releases++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Separate(ctx context.Context, req SeparateRequest) error {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		if f.ignoreCtx {
			<-f.block
		} else {
			select {
			case <-f.block:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	f.mu.Lock()
	f.runs = append(f.runs, req)
	sepErr := f.sepErr
	progress := f.progress
	f.mu.Unlock()
	if req.Progress != nil {
		for _, p := range progress {
			req.Progress(p)
		}
	}
	return sepErr
}

func (f *fakeEngine) CollectStems(outputDir, variant, inputPath string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collectErr != nil {
		return nil, f.collectErr
	}
	if f.stems != nil {
		return f.stems, nil
	}
	return map[string]string{
		"vocals": "/out/vocals.mp3",
		"drums":  "/out/drums.mp3",
		"bass":   "/out/bass.mp3",
		"other":  "/out/other.mp3",
	}, nil
}

func (f *fakeEngine) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeEngine) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

// newTestManager builds a Manager on the fake engine with a static CPU
// prober and an in-memory event publisher. Workers are not started;
// tests that need the pipeline call Start themselves.
func newTestManager(t *testing.T, eng Engine) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	m, err := New(ManagerConfig{
		Engine:       eng,
		Prober:       device.Static{},
		Publisher:    pub,
		DrainTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, pub
}

// startWorkers runs the pool for the duration of the test.
func startWorkers(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
}

// waitForStatus polls the job until it reaches want or the deadline hits.
func waitForStatus(t *testing.T, m *Manager, jobID string, want types.JobStatus) types.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := m.Job(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Job(%s): %v", jobID, err)
		}
		if rec.Status == want {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := m.Job(context.Background(), jobID)
	t.Fatalf("job %s stuck in %q, want %q", jobID, rec.Status, want)
	return types.JobRecord{}
}

// waitForEvent polls the publisher until an event with name shows up.
func waitForEvent(t *testing.T, pub *MemoryPublisher, name string) Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if evs := pub.Named(name); len(evs) > 0 {
			return evs[0]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event %q never published; saw %v", name, eventNames(pub.Events()))
	return Event{}
}

func eventNames(evs []Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Name
	}
	return out
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
