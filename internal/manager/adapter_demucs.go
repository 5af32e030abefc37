package manager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stemd/internal/common/fsutil"
	"stemd/internal/device"
)

// demucsEngine shells out to the demucs CLI for every separation. The
// process model is one-shot: weights live in the driver process only for
// the duration of a run, so "residency" here means the weight files are
// materialized in demucs's cache and a warm instance handle exists.

const (
	defaultDemucsBin  = "demucs"
	defaultMP3Bitrate = 320
	stderrTailBytes   = 4096
)

// stemExts are the output encodings demucs can emit; CollectStems accepts
// any of them so a bitrate/format config change does not break scanning.
var stemExts = map[string]bool{".mp3": true, ".wav": true, ".flac": true, ".ogg": true}

// DemucsConfig configures the CLI-backed engine.
type DemucsConfig struct {
	// Bin is the demucs executable. Defaults to "demucs" on PATH.
	Bin string
	// MP3BitrateKbps for encoded stems. Defaults to 320.
	MP3BitrateKbps int
	// Logger for subprocess diagnostics. The zero value discards output.
	Logger zerolog.Logger
}

type demucsEngine struct {
	bin     string
	bitrate int
	log     zerolog.Logger
}

// NewDemucsEngine constructs an Engine backed by the demucs CLI.
func NewDemucsEngine(cfg DemucsConfig) Engine {
	bin := strings.TrimSpace(cfg.Bin)
	if bin == "" {
		bin = defaultDemucsBin
	}
	bitrate := cfg.MP3BitrateKbps
	if bitrate <= 0 {
		bitrate = defaultMP3Bitrate
	}
	return &demucsEngine{bin: bin, bitrate: bitrate, log: cfg.Logger}
}

func (e *demucsEngine) Name() string { return "demucs" }

// LoadModel warms the variant by separating a short generated silence
// clip into a throwaway directory. The first run per variant downloads
// the weights into demucs's cache; later runs reuse them, so warmup cost
// collapses to a few seconds once the cache is hot.
func (e *demucsEngine) LoadModel(ctx context.Context, variant string, dev device.Kind) (*ModelInstance, error) {
	if _, err := exec.LookPath(e.bin); err != nil {
		return nil, fmt.Errorf("engine binary %q not found: %w", e.bin, err)
	}
	dir, err := os.MkdirTemp("", "stemd-warmup-*")
	if err != nil {
		return nil, fmt.Errorf("warmup dir: %w", err)
	}
	defer os.RemoveAll(dir)

	clip := filepath.Join(dir, "silence.wav")
	if err := writeSilenceWAV(clip, 500*time.Millisecond); err != nil {
		return nil, fmt.Errorf("warmup clip: %w", err)
	}
	started := time.Now()
	err = e.run(ctx, SeparateRequest{
		InputPath: clip,
		OutputDir: filepath.Join(dir, "out"),
		Variant:   variant,
		Device:    dev,
	})
	if err != nil {
		return nil, fmt.Errorf("warm up %s: %w", variant, err)
	}
	e.log.Debug().Str("variant", variant).Str("device", string(dev)).
		Dur("took", time.Since(started)).Msg("demucs warmup complete")
	return &ModelInstance{Variant: variant, Device: dev, LoadedAt: time.Now()}, nil
}

// ReleaseModel has nothing external to free: the subprocess holding the
// weights has already exited. The registry handles memory release.
func (e *demucsEngine) ReleaseModel(*ModelInstance) error { return nil }

func (e *demucsEngine) Separate(ctx context.Context, req SeparateRequest) error {
	if _, err := exec.LookPath(e.bin); err != nil {
		return fmt.Errorf("engine binary %q not found: %w", e.bin, err)
	}
	return e.run(ctx, req)
}

// run executes one demucs invocation and streams its stderr for progress
// and diagnostics.
func (e *demucsEngine) run(ctx context.Context, req SeparateRequest) error {
	args := demucsArgs(req, e.bitrate)
	cmd := exec.CommandContext(ctx, e.bin, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	cmd.Stdout = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.bin, err)
	}
	e.log.Debug().Str("bin", e.bin).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("demucs start")

	// Drain stderr on a goroutine: progress percentages go to the
	// callback, everything is kept in a bounded tail for diagnostics.
	var tail bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		sc := bufio.NewScanner(stderr)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sc.Split(scanProgressLines)
		for sc.Scan() {
			line := sc.Text()
			appendTail(&tail, line)
			if req.Progress != nil {
				if pct, ok := parsePercent(line); ok {
					req.Progress(pct)
				}
			}
		}
	}()

	werr := cmd.Wait()
	<-done
	if werr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("separation aborted: %w", ctx.Err())
	}
	var ee *exec.ExitError
	if errors.As(werr, &ee) {
		e.log.Warn().Int("exit_code", ee.ExitCode()).Str("stderr_tail", tail.String()).Msg("demucs crashed")
		return ErrEngineCrash(ee.ExitCode(), tail.String())
	}
	return fmt.Errorf("run %s: %w", e.bin, werr)
}

// CollectStems scans demucs's fixed output layout,
// <outputDir>/<variant>/<input basename>/<stem>.<ext>, and returns stem
// name -> absolute path. A missing directory yields an empty map.
func (e *demucsEngine) CollectStems(outputDir, variant, inputPath string) (map[string]string, error) {
	stemDir := filepath.Join(outputDir, variant, fsutil.StemBase(inputPath))
	entries, err := os.ReadDir(stemDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("scan stems: %w", err)
	}
	stems := make(map[string]string, len(entries))
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !stemExts[ext] {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(stemDir, name))
		if err != nil {
			return nil, fmt.Errorf("resolve stem path: %w", err)
		}
		stems[strings.TrimSuffix(name, filepath.Ext(name))] = abs
	}
	return stems, nil
}

// demucsArgs builds the fixed CLI contract:
//
//	demucs -n <variant> -o <outdir> --device cuda|cpu --mp3 --mp3-bitrate <kbps> <input>
func demucsArgs(req SeparateRequest, bitrate int) []string {
	dev := "cpu"
	if req.Device == device.GPU {
		dev = "cuda"
	}
	return []string{
		"-n", req.Variant,
		"-o", req.OutputDir,
		"--device", dev,
		"--mp3",
		"--mp3-bitrate", strconv.Itoa(bitrate),
		req.InputPath,
	}
}

// scanProgressLines is bufio.ScanLines that also splits on bare carriage
// returns, which is how demucs's progress bar redraws in place.
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// parsePercent extracts the last "NN%" token from a progress line.
// Returns false for lines without a plausible percentage.
func parsePercent(line string) (int, bool) {
	idx := strings.LastIndexByte(line, '%')
	if idx <= 0 {
		return 0, false
	}
	start := idx
	for start > 0 && line[start-1] >= '0' && line[start-1] <= '9' {
		start--
	}
	if start == idx {
		return 0, false
	}
	pct, err := strconv.Atoi(line[start:idx])
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// appendTail keeps the trailing stderrTailBytes of output for diagnostics.
func appendTail(buf *bytes.Buffer, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	buf.WriteString(line)
	buf.WriteByte('\n')
	if buf.Len() > stderrTailBytes {
		b := buf.Bytes()
		trimmed := make([]byte, stderrTailBytes)
		copy(trimmed, b[len(b)-stderrTailBytes:])
		buf.Reset()
		buf.Write(trimmed)
	}
}

// writeSilenceWAV writes a PCM16 mono 44.1kHz silent clip of the given
// duration, the cheapest valid input a separation engine will accept.
func writeSilenceWAV(path string, d time.Duration) error {
	const (
		sampleRate    = 44100
		bitsPerSample = 16
		channels      = 1
	)
	samples := int(float64(sampleRate) * d.Seconds())
	if samples <= 0 {
		samples = 1
	}
	dataLen := samples * channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// sortedStemNames is a test/log helper: deterministic ordering for maps.
func sortedStemNames(stems map[string]string) []string {
	names := make([]string, 0, len(stems))
	for name := range stems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
