// Package pipeline runs one chunk's decoder→filter→encoder subprocess
// pipeline to completion for one pass, and verifies the result.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/scenecode/internal/encoder"
	"github.com/five82/scenecode/internal/model"
)

// Dims carries the clip properties the encoder needs that aren't part of
// the chunk itself (they're shared across every chunk of one input).
type Dims struct {
	Width, Height uint32
	FPSNum, FPSDen uint32
	Is10Bit       bool
	Threads       uint32
}

// Runner executes chunks against one encoder Adapter.
type Runner struct {
	Adapter encoder.Adapter
	Prober  FrameCountProber
}

// NewRunner returns a Runner using the given adapter and a default
// ffprobe-backed frame counter.
func NewRunner(adapter encoder.Adapter) *Runner {
	return &Runner{Adapter: adapter, Prober: FFprobeCounter{}}
}

// lineAccumulator collects carriage-return- or newline-delimited records
// from one stream, safe for the reader goroutine to append to while the
// caller reads String() after the goroutine has finished.
type lineAccumulator struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (a *lineAccumulator) WriteRecord(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.WriteString(s)
	a.buf.WriteByte('\n')
}

func (a *lineAccumulator) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

// scanRecords reads r, splitting on '\r' or '\n' (matching how ffmpeg-family
// tools emit carriage-return-delimited progress lines), and invokes onRecord
// for every non-empty record.
func scanRecords(r io.Reader, onRecord func(string)) error {
	reader := bufio.NewReader(r)
	var cur strings.Builder
	for {
		b, err := reader.ReadByte()
		if err != nil {
			if cur.Len() > 0 {
				onRecord(cur.String())
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		if b == '\r' || b == '\n' {
			if cur.Len() > 0 {
				onRecord(cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(b)
	}
}

// OutputPath returns where a chunk's final-pass output is written, the
// same path Run derives internally and the one callers stat afterwards.
func OutputPath(chunk model.Chunk) string {
	return filepath.Join(chunk.TempDir, "encode", chunk.Name+chunk.OutputExt)
}

// Run executes chunk's source→filter→encoder pipeline for one pass. base
// carries the job-wide encoder settings (preset, tune, variance-boost knobs)
// that come from config rather than the chunk; Run fills in the per-chunk
// geometry and paths and applies TQCQ/zone overrides on top of it.
// onProgress is called with the encoder's monotonic frame counter as
// progress records arrive; it may be nil.
func (r *Runner) Run(ctx context.Context, chunk model.Chunk, pass int, dims Dims, base encoder.Params, onProgress func(frames int)) error {
	if len(chunk.SourceCmd) == 0 {
		return fmt.Errorf("chunk %s has an empty source command", chunk.Name)
	}

	sourceCmd := exec.CommandContext(ctx, chunk.SourceCmd[0], chunk.SourceCmd[1:]...)
	sourceStderr := &lineAccumulator{}

	needsFilter := len(chunk.FilterCmd) > 0
	var filterCmd *exec.Cmd
	filterStderr := &lineAccumulator{}

	encoderParams := base
	encoderParams.Width, encoderParams.Height = dims.Width, dims.Height
	encoderParams.FPSNum, encoderParams.FPSDen = uint32(chunk.FPSNum), uint32(chunk.FPSDen)
	encoderParams.Frames = chunk.Frames()
	encoderParams.Is10Bit = dims.Is10Bit
	encoderParams.Threads = dims.Threads
	if chunk.TQCQ != nil {
		encoderParams = r.Adapter.WithCQ(encoderParams, *chunk.TQCQ)
	}
	encoderParams.OutputPath = OutputPath(chunk)
	encoderParams.StatsPath = filepath.Join(chunk.TempDir, "split", chunk.Name+"_fpf")
	if err := os.MkdirAll(filepath.Dir(encoderParams.OutputPath), 0755); err != nil {
		return fmt.Errorf("failed to create encode output directory: %w", err)
	}
	if chunk.Passes == 2 {
		if err := os.MkdirAll(filepath.Dir(encoderParams.StatsPath), 0755); err != nil {
			return fmt.Errorf("failed to create stats directory: %w", err)
		}
	}

	var encoderCmd *exec.Cmd
	switch {
	case chunk.Passes == 1:
		encoderCmd = r.Adapter.OnePass(encoderParams)
	case pass == 1:
		encoderCmd = r.Adapter.FirstOfTwo(encoderParams)
	default:
		encoderCmd = r.Adapter.SecondOfTwo(encoderParams)
	}
	args := append(append([]string{}, encoderCmd.Args[1:]...), chunk.VideoParams...)
	encoderCmd = exec.CommandContext(ctx, encoderCmd.Path, args...)

	sourceStdout, err := sourceCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open source stdout pipe: %w", err)
	}
	sourceStderrPipe, err := sourceCmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open source stderr pipe: %w", err)
	}

	var encoderStdin io.ReadCloser
	if needsFilter {
		filterCmd = exec.CommandContext(ctx, chunk.FilterCmd[0], chunk.FilterCmd[1:]...)
		filterCmd.Stdin = sourceStdout
		filterStdout, ferr := filterCmd.StdoutPipe()
		if ferr != nil {
			return fmt.Errorf("failed to open filter stdout pipe: %w", ferr)
		}
		filterStderrPipe, ferr := filterCmd.StderrPipe()
		if ferr != nil {
			return fmt.Errorf("failed to open filter stderr pipe: %w", ferr)
		}
		encoderStdin = filterStdout
		if err := filterCmd.Start(); err != nil {
			return fmt.Errorf("failed to start filter stage: %w", err)
		}
		go func() { _ = scanRecords(filterStderrPipe, filterStderr.WriteRecord) }()
	} else {
		encoderStdin = sourceStdout
	}
	encoderCmd.Stdin = encoderStdin

	encoderStderrPipe, err := encoderCmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open encoder stderr pipe: %w", err)
	}
	encoderStdoutPipe, err := encoderCmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open encoder stdout pipe: %w", err)
	}

	if err := sourceCmd.Start(); err != nil {
		return fmt.Errorf("failed to start source stage: %w", err)
	}
	if err := encoderCmd.Start(); err != nil {
		return fmt.Errorf("failed to start encoder: %w", err)
	}

	go func() { _ = scanRecords(sourceStderrPipe, sourceStderr.WriteRecord) }()

	lastFrames := 0
	encoderStdoutAcc := &lineAccumulator{}
	encoderStderrAcc := &lineAccumulator{}
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		return scanRecords(encoderStdoutPipe, encoderStdoutAcc.WriteRecord)
	})
	group.Go(func() error {
		return scanRecords(encoderStderrPipe, func(record string) {
			encoderStderrAcc.WriteRecord(record)
			if frames, ok := r.Adapter.ParseEncodedFrames(record, pass); ok {
				lastFrames = frames
				if onProgress != nil {
					onProgress(frames)
				}
			}
		})
	})

	// Reader goroutines see EOF on their own once the encoder closes its
	// stdout/stderr at exit; draining them before Wait avoids racing Wait's
	// own pipe-close against an in-progress read.
	_ = group.Wait()
	waitErr := encoderCmd.Wait()
	_ = sourceCmd.Wait()
	if filterCmd != nil {
		_ = filterCmd.Wait()
	}

	if waitErr != nil {
		exitStatus := -1
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitStatus = exitErr.ExitCode()
		}
		return &CrashError{
			ExitStatus:        exitStatus,
			SourceStderr:      sourceStderr.String(),
			FilterStderr:      filterStderr.String(),
			EncoderStderr:     encoderStderrAcc.String(),
			EncoderStdout:     encoderStdoutAcc.String(),
			FramesBeforeCrash: lastFrames,
		}
	}

	if pass == chunk.Passes {
		got, err := r.Prober.CountFrames(encoderParams.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to verify encoded frame count: %w", err)
		}
		expected := chunk.Frames()
		if got != expected && !chunk.IgnoreFrameMismatch {
			return &CrashError{
				ExitStatus:        0,
				FramesBeforeCrash: lastFrames,
				EncoderStdout:     fmt.Sprintf("FRAME MISMATCH: chunk %s: got %d/expected %d", chunk.Name, got, expected),
			}
		}
	}

	return nil
}
