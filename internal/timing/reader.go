// Package timing reads the frame timing breakdowns exported by an
// instrumented engine as plain files under a configurable root directory.
package timing

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/framelab/framebench-web/internal/frame"
)

const (
	enabledFilename   = "enabled"
	deltaFilename     = "delta_seconds"
	captureFilename   = "capture"
	cpuTimeFilename   = "cpu_time_ms"
	cpuRenderFilename = "cpu_render_time_ms"
	gpuTimeFilename   = "gpu_time_ms"
)

// Reader fetches detailed frame timings from an engine export directory.
// All reads are best-effort: a missing or malformed file means no record,
// never an error surfaced to the caller. Reader implements both
// frame.TimingSource and frame.Clock.
type Reader struct {
	root   string
	logger *slog.Logger
}

// NewReader constructs a Reader over the given export root.
func NewReader(root string, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("stat timing root: %w", err)
	}
	return &Reader{
		root:   root,
		logger: logger.With("component", "timing_reader"),
	}, nil
}

// Root returns the export directory the reader is bound to.
func (r *Reader) Root() string {
	return r.root
}

// Available reports whether the engine exports detailed timings.
func (r *Reader) Available() bool {
	data, err := os.ReadFile(filepath.Join(r.root, enabledFilename))
	if err != nil {
		return false
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(string(data)))
	if err != nil {
		r.logger.Debug("failed to parse enabled flag", "value", strings.TrimSpace(string(data)), "err", err)
		return false
	}
	return enabled
}

// Capture asks the engine to latch its current timings by writing to the
// capture trigger file. Failures are logged and otherwise ignored.
func (r *Reader) Capture() {
	path := filepath.Join(r.root, captureFilename)
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		r.logger.Debug("failed to trigger capture", "path", path, "err", err)
	}
}

// Latest returns the most recently latched timing record, or nothing when
// any of the three values cannot be read. The export format carries a
// single record, so at most one is returned regardless of max.
func (r *Reader) Latest(max int) []frame.Record {
	if max <= 0 {
		return nil
	}

	cpu, err := r.readFloat(cpuTimeFilename)
	if err != nil {
		return nil
	}
	cpuRender, err := r.readFloat(cpuRenderFilename)
	if err != nil {
		return nil
	}
	gpu, err := r.readFloat(gpuTimeFilename)
	if err != nil {
		return nil
	}

	return []frame.Record{{
		CPUTimeMS:       cpu,
		CPURenderTimeMS: cpuRender,
		GPUTimeMS:       gpu,
	}}
}

// DeltaSeconds returns the wall duration of the engine's most recent frame,
// or zero when the export cannot be read.
func (r *Reader) DeltaSeconds() float64 {
	value, err := r.readFloat(deltaFilename)
	if err != nil {
		return 0
	}
	return value
}

func (r *Reader) readFloat(filename string) (float64, error) {
	path := filepath.Join(r.root, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	valueStr := strings.TrimSpace(string(data))
	if valueStr == "" {
		return 0, fmt.Errorf("empty value")
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		r.logger.Debug("failed to parse timing value", "path", path, "value", valueStr, "err", err)
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return value, nil
}
