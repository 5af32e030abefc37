package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"stemd/internal/config"
	"stemd/internal/device"
	"stemd/internal/httpapi"
	"stemd/internal/journal"
	"stemd/internal/manager"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stemd:", err)
		os.Exit(1)
	}
}

// envOr returns the environment value when set, else def.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated flag value, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath  string
		over     config.Config
		corsCSV  string
		forceCPU bool
	)
	root := &cobra.Command{
		Use:           "stemd",
		Short:         "Local audio stem separation daemon",
		Long:          "stemd exposes the demucs separation engine as an async job API on a local HTTP port.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				fileCfg, err := config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("load config %s: %w", cfgPath, err)
				}
				cfg = config.Merge(cfg, fileCfg)
			}
			over.ForceCPU = forceCPU
			over.CORSOrigins = splitCSV(corsCSV)
			cfg = config.Merge(cfg, over)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", os.Getenv("STEMD_CONFIG"), "Config file: .yaml, .json or .toml (defaults STEMD_CONFIG)")
	f.StringVar(&over.Addr, "addr", envOr("STEMD_ADDR", ""), "HTTP listen address, e.g. 127.0.0.1:8000 (defaults STEMD_ADDR)")
	f.StringVar(&over.EngineBin, "engine-bin", envOr("STEMD_ENGINE_BIN", ""), "Separation engine executable (defaults STEMD_ENGINE_BIN)")
	f.IntVar(&over.Workers, "workers", 0, "Concurrent separation workers")
	f.IntVar(&over.MP3BitrateKbps, "mp3-bitrate", 0, "Bitrate in kbps for mp3-encoded stems")
	f.IntVar(&over.SeparateTimeoutSec, "separate-timeout-sec", 0, "Per-job engine timeout in seconds (0=unbounded)")
	f.IntVar(&over.DrainTimeoutSec, "drain-timeout-sec", 0, "Shutdown wait for running jobs in seconds")
	f.StringVar(&over.JournalPath, "journal", envOr("STEMD_JOURNAL", ""), "SQLite event journal path, empty disables (defaults STEMD_JOURNAL)")
	f.StringVar(&over.LogLevel, "log-level", envOr("STEMD_LOG_LEVEL", ""), "Log level: debug|info|warn|error (defaults STEMD_LOG_LEVEL)")
	f.BoolVar(&forceCPU, "force-cpu", false, "Skip GPU probing and place every run on the CPU")
	f.StringVar(&corsCSV, "cors-origin", envOr("STEMD_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins, empty disables (defaults STEMD_CORS_ORIGINS)")

	return root
}

func run(ctx context.Context, cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prober device.Prober = device.NewSMIProber()
	if cfg.ForceCPU {
		prober = device.Static{}
	}
	info := prober.Probe(ctx)
	logger.Info().
		Bool("gpu_available", info.Available).
		Str("gpu", info.Name).
		Int("total_mb", info.TotalMB).
		Int("free_mb", info.FreeMB).
		Msg("device probed")

	var pub manager.EventPublisher
	if cfg.JournalPath != "" {
		jr, err := journal.Open(cfg.JournalPath, logger.With().Str("component", "journal").Logger())
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jr.Close()
		pub = jr
	}

	engine := manager.NewDemucsEngine(manager.DemucsConfig{
		Bin:            cfg.EngineBin,
		MP3BitrateKbps: cfg.MP3BitrateKbps,
		Logger:         logger.With().Str("component", "engine").Logger(),
	})
	mgr, err := manager.New(manager.ManagerConfig{
		Engine:          engine,
		Models:          cfg.Models,
		Workers:         cfg.Workers,
		SeparateTimeout: time.Duration(cfg.SeparateTimeoutSec) * time.Second,
		DrainTimeout:    time.Duration(cfg.DrainTimeoutSec) * time.Second,
		Prober:          prober,
		Publisher:       pub,
		Logger:          logger.With().Str("component", "manager").Logger(),
	})
	if err != nil {
		return err
	}
	mgr.Start(ctx)

	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetCORSOrigins(cfg.CORSOrigins)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("engine", mgr.EngineName()).Msg("stemd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown error")
	}
	if err := mgr.Close(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("manager close error")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
