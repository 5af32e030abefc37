package manager

import (
	"context"
	"time"

	"stemd/internal/device"
)

// Engine abstracts the separation runtime used by the Manager.
// Concrete implementations (e.g., the demucs CLI) should satisfy this
// interface; tests use fakes.
type Engine interface {
	// Name identifies the engine in logs and status output.
	Name() string
	// LoadModel makes the variant's weights resident on the given device
	// and returns a handle for them. Implementations must return when the
	// context is canceled.
	LoadModel(ctx context.Context, variant string, dev device.Kind) (*ModelInstance, error)
	// ReleaseModel frees whatever LoadModel acquired. Best effort.
	ReleaseModel(inst *ModelInstance) error
	// Separate runs one separation end to end, writing stems under
	// req.OutputDir. It must return when the context is canceled.
	Separate(ctx context.Context, req SeparateRequest) error
	// CollectStems scans the engine's output layout for req's finished
	// stems and returns stem name -> absolute path. An empty map (not an
	// error) means the engine produced nothing.
	CollectStems(outputDir, variant, inputPath string) (map[string]string, error)
}

// SeparateRequest carries everything one engine run needs.
type SeparateRequest struct {
	InputPath string
	OutputDir string
	Variant   string
	Device    device.Kind
	// Progress, when non-nil, receives coarse completion percentages
	// (0-100) as the engine reports them. Callbacks must be cheap.
	Progress func(percent int)
}

// ModelInstance is a handle to resident model weights.
type ModelInstance struct {
	Variant  string
	Device   device.Kind
	LoadedAt time.Time
}
