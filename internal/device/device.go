// Package device probes the machine for a usable GPU and decides where
// separation work should run. Detection shells out to nvidia-smi so the
// daemon itself never links CUDA.
package device

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Kind is the compute device a model instance is placed on.
type Kind string

const (
	CPU Kind = "cpu"
	GPU Kind = "gpu"
)

// Info is a snapshot of GPU availability at probe time.
type Info struct {
	Available bool
	Name      string
	TotalMB   int
	FreeMB    int
}

// Prober reports GPU availability. Probes are taken fresh before every
// model load and every separation run, never cached, so a device that
// appears or disappears mid-flight is picked up on the next operation.
type Prober interface {
	Probe(ctx context.Context) Info
}

// Choose maps a probe result to the device work should run on.
func Choose(info Info) Kind {
	if info.Available {
		return GPU
	}
	return CPU
}

const (
	defaultSMIBin  = "nvidia-smi"
	smiProbeBudget = 3 * time.Second
)

// SMIProber detects NVIDIA GPUs by running nvidia-smi. A missing binary
// or any execution failure degrades to "no GPU" rather than an error.
type SMIProber struct {
	Bin string
}

// NewSMIProber returns a Prober backed by the nvidia-smi binary on PATH.
func NewSMIProber() *SMIProber {
	return &SMIProber{Bin: defaultSMIBin}
}

func (p *SMIProber) Probe(ctx context.Context) Info {
	bin := p.Bin
	if bin == "" {
		bin = defaultSMIBin
	}
	if _, err := exec.LookPath(bin); err != nil {
		return Info{}
	}
	ctx, cancel := context.WithTimeout(ctx, smiProbeBudget)
	defer cancel()
	out, err := exec.CommandContext(ctx, bin,
		"--query-gpu=name,memory.total,memory.free",
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return Info{}
	}
	info, err := parseSMIOutput(out)
	if err != nil {
		return Info{}
	}
	return info
}

// parseSMIOutput reads the first line of nvidia-smi CSV output, e.g.
// "NVIDIA GeForce RTX 3080, 10240, 9800".
func parseSMIOutput(out []byte) (Info, error) {
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return Info{}, fmt.Errorf("unexpected nvidia-smi line: %q", line)
		}
		total, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return Info{}, fmt.Errorf("parse total memory: %w", err)
		}
		free, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return Info{}, fmt.Errorf("parse free memory: %w", err)
		}
		return Info{
			Available: true,
			Name:      strings.TrimSpace(parts[0]),
			TotalMB:   total,
			FreeMB:    free,
		}, nil
	}
	return Info{}, fmt.Errorf("empty nvidia-smi output")
}

// Static is a Prober that always reports the same Info. Used for tests
// and for forcing CPU placement via configuration.
type Static struct {
	Info Info
}

func (s Static) Probe(context.Context) Info { return s.Info }
