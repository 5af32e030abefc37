package manager

import (
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/device"
	"stemd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultWorkers      = 1
	defaultDrainTimeout = 30 * time.Second
)

// DefaultModels returns the stock registry: the public "demucs" name
// backed by the htdemucs variant.
func DefaultModels() map[string]string {
	return map[string]string{types.ModelDemucs: "htdemucs"}
}

// ManagerConfig encapsulates all tunables and dependencies for Manager
// construction. Engine is the only required field; everything else has a
// usable default.
type ManagerConfig struct {
	// Engine performs the actual separation work.
	Engine Engine
	// Models maps public model names to engine variants. Defaults to
	// DefaultModels. The key set is fixed for the manager's lifetime.
	Models map[string]string
	// DefaultModel is the registry name jobs run against. Defaults to
	// the sole entry of Models when it has exactly one, else "demucs".
	DefaultModel string
	// Workers is the number of concurrent separation workers.
	Workers int
	// SeparateTimeout bounds a single engine run. 0 means no bound.
	SeparateTimeout time.Duration
	// DrainTimeout bounds how long Close waits for running jobs.
	DrainTimeout time.Duration
	// Prober reports GPU availability. Defaults to nvidia-smi probing.
	Prober device.Prober
	// Publisher receives lifecycle events. Defaults to a no-op.
	Publisher EventPublisher
	// Logger for manager internals. The zero value discards output.
	Logger zerolog.Logger
}

func (cfg ManagerConfig) withDefaults() ManagerConfig {
	if cfg.Models == nil {
		cfg.Models = DefaultModels()
	}
	if cfg.DefaultModel == "" {
		if len(cfg.Models) == 1 {
			for name := range cfg.Models {
				cfg.DefaultModel = name
			}
		} else {
			cfg.DefaultModel = types.ModelDemucs
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = defaultDrainTimeout
	}
	if cfg.Prober == nil {
		cfg.Prober = device.NewSMIProber()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	return cfg
}
