package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stemd/internal/device"
	"stemd/internal/httpapi"
	"stemd/internal/manager"
	"stemd/pkg/types"
)

// scriptEngine is an in-process manager.Engine that fabricates the
// demucs output layout. Knobs cover the scenarios: blocking, crashing,
// counting loads.
type scriptEngine struct {
	stems  []string
	sepErr error

	loads atomic.Int32
	block chan struct{} // when non-nil, Separate parks until closed

	mu   sync.Mutex
	runs []manager.SeparateRequest
}

func (e *scriptEngine) Name() string { return "demucs" }

func (e *scriptEngine) LoadModel(ctx context.Context, variant string, dev device.Kind) (*manager.ModelInstance, error) {
	e.loads.Add(1)
	return &manager.ModelInstance{Variant: variant, Device: dev, LoadedAt: time.Now()}, nil
}

func (e *scriptEngine) ReleaseModel(inst *manager.ModelInstance) error { return nil }

func (e *scriptEngine) Separate(ctx context.Context, req manager.SeparateRequest) error {
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.mu.Lock()
	e.runs = append(e.runs, req)
	e.mu.Unlock()
	if e.sepErr != nil {
		return e.sepErr
	}
	if req.Progress != nil {
		req.Progress(50)
		req.Progress(100)
	}
	base := stemBase(req.InputPath)
	dir := filepath.Join(req.OutputDir, req.Variant, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, stem := range e.stems {
		if err := os.WriteFile(filepath.Join(dir, stem+".mp3"), []byte(stem), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (e *scriptEngine) CollectStems(outputDir, variant, inputPath string) (map[string]string, error) {
	dir := filepath.Join(outputDir, variant, stemBase(inputPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(entries))
	for _, ent := range entries {
		name := ent.Name()
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out[name[:len(name)-len(filepath.Ext(name))]] = abs
	}
	return out, nil
}

func (e *scriptEngine) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

func stemBase(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func fourStems() []string { return []string{"vocals", "drums", "bass", "other"} }

// newServer stands up the full HTTP surface over a real Manager wired
// to eng, with workers running.
func newServer(t *testing.T, eng manager.Engine, workers int) (*httptest.Server, *manager.Manager) {
	t.Helper()
	mgr, err := manager.New(manager.ManagerConfig{
		Engine:       eng,
		Workers:      workers,
		DrainTimeout: 2 * time.Second,
		Prober:       device.Static{},
	})
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = mgr.Close(context.Background())
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return srv, mgr
}

// tempInput creates a small input file to submit.
func tempInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

// submitJob posts a separation request and returns the ack.
func submitJob(t *testing.T, base, filePath string) types.SubmitResponse {
	t.Helper()
	resp := postJSON(t, base+"/process/separate", types.SeparationRequest{FilePath: filePath})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status=%d", resp.StatusCode)
	}
	ack := decodeBody[types.SubmitResponse](t, resp)
	if ack.JobID == "" || ack.Status != types.StatusPending {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	return ack
}

// pollJob GETs the job until want is reached or the deadline passes.
func pollJob(t *testing.T, base, jobID string, want types.JobStatus) types.JobRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(fmt.Sprintf("%s/jobs/%s", base, jobID))
		if err != nil {
			t.Fatalf("GET job: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("job status code=%d", resp.StatusCode)
		}
		rec := decodeBody[types.JobRecord](t, resp)
		if rec.Status == want {
			return rec
		}
		if rec.Status.Terminal() {
			t.Fatalf("job ended %s (error=%q), want %s", rec.Status, rec.Error, want)
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck in %s, want %s", rec.Status, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
