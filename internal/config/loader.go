package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	// Addr is the listen address. Defaults to loopback only.
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// EngineBin is the separation engine executable.
	EngineBin string `json:"engine_bin" yaml:"engine_bin" toml:"engine_bin"`
	// Models maps public model names to engine variants.
	Models map[string]string `json:"models" yaml:"models" toml:"models"`
	// MP3BitrateKbps is passed to the engine for encoded stems.
	MP3BitrateKbps int `json:"mp3_bitrate_kbps" yaml:"mp3_bitrate_kbps" toml:"mp3_bitrate_kbps"`
	// Workers is the number of concurrent separation workers.
	Workers int `json:"workers" yaml:"workers" toml:"workers"`
	// SeparateTimeoutSec bounds a single engine run. 0 disables the bound.
	SeparateTimeoutSec int `json:"separate_timeout_sec" yaml:"separate_timeout_sec" toml:"separate_timeout_sec"`
	// DrainTimeoutSec bounds how long shutdown waits for running jobs.
	DrainTimeoutSec int `json:"drain_timeout_sec" yaml:"drain_timeout_sec" toml:"drain_timeout_sec"`
	// JournalPath enables the SQLite event journal when non-empty.
	JournalPath string `json:"journal_path" yaml:"journal_path" toml:"journal_path"`
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// ForceCPU skips GPU probing and places everything on the CPU.
	ForceCPU bool `json:"force_cpu" yaml:"force_cpu" toml:"force_cpu"`
	// CORSOrigins enables permissive CORS for the listed origins.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Default returns the configuration the daemon runs with when nothing
// else is specified: loopback address, demucs on PATH, one worker.
func Default() Config {
	return Config{
		Addr:            "127.0.0.1:8000",
		EngineBin:       "demucs",
		Models:          map[string]string{"demucs": "htdemucs"},
		MP3BitrateKbps:  320,
		Workers:         1,
		DrainTimeoutSec: 30,
		LogLevel:        "info",
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays non-zero fields of over onto base and returns the result.
// Flags and config files both produce sparse Configs; main merges them
// over Default in precedence order.
func Merge(base, over Config) Config {
	out := base
	if over.Addr != "" {
		out.Addr = over.Addr
	}
	if over.EngineBin != "" {
		out.EngineBin = over.EngineBin
	}
	if len(over.Models) > 0 {
		out.Models = over.Models
	}
	if over.MP3BitrateKbps != 0 {
		out.MP3BitrateKbps = over.MP3BitrateKbps
	}
	if over.Workers != 0 {
		out.Workers = over.Workers
	}
	if over.SeparateTimeoutSec != 0 {
		out.SeparateTimeoutSec = over.SeparateTimeoutSec
	}
	if over.DrainTimeoutSec != 0 {
		out.DrainTimeoutSec = over.DrainTimeoutSec
	}
	if over.JournalPath != "" {
		out.JournalPath = over.JournalPath
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	if over.ForceCPU {
		out.ForceCPU = true
	}
	if len(over.CORSOrigins) > 0 {
		out.CORSOrigins = over.CORSOrigins
	}
	return out
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("addr is empty")
	}
	if strings.TrimSpace(c.EngineBin) == "" {
		return fmt.Errorf("engine_bin is empty")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("models is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.MP3BitrateKbps <= 0 {
		return fmt.Errorf("mp3_bitrate_kbps must be positive, got %d", c.MP3BitrateKbps)
	}
	if c.SeparateTimeoutSec < 0 {
		return fmt.Errorf("separate_timeout_sec must be >= 0, got %d", c.SeparateTimeoutSec)
	}
	if c.DrainTimeoutSec < 0 {
		return fmt.Errorf("drain_timeout_sec must be >= 0, got %d", c.DrainTimeoutSec)
	}
	return nil
}
