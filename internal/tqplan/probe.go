package tqplan

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/five82/scenecode/internal/encoder"
	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
)

// probeEncode runs chunk's source/filter stages into a one-pass encode at
// crf, capped at sampleFrames, and returns the path to the probe output.
// The encoder exits once it has read sampleFrames, so the upstream source
// and filter stages are left running with nowhere to write; their exit
// status is ignored, matching how the real dispatch pipeline treats them.
func (pl *Planner) probeEncode(ctx context.Context, chunk model.Chunk, dims pipeline.Dims, base encoder.Params, crf float64, sampleFrames, round int) (string, error) {
	probeDir := filepath.Join(chunk.TempDir, "tqprobe")
	if err := os.MkdirAll(probeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create probe directory: %w", err)
	}
	outputPath := filepath.Join(probeDir, fmt.Sprintf("%s_r%d_crf%d%s", chunk.Name, round, int(crf+0.5), chunk.OutputExt))

	params := base
	params.Width, params.Height = dims.Width, dims.Height
	params.FPSNum, params.FPSDen = uint32(chunk.FPSNum), uint32(chunk.FPSDen)
	params.Frames = sampleFrames
	params.Is10Bit = dims.Is10Bit
	params.Threads = dims.Threads
	params.OutputPath = outputPath
	params = pl.Adapter.WithCQ(params, int(crf+0.5))

	encoderCmd := pl.Adapter.OnePass(params)

	sourceCmd := exec.CommandContext(ctx, chunk.SourceCmd[0], chunk.SourceCmd[1:]...)
	sourceStdout, err := sourceCmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open probe source stdout pipe: %w", err)
	}

	var filterCmd *exec.Cmd
	var encoderStdin io.ReadCloser = sourceStdout
	if len(chunk.FilterCmd) > 0 {
		filterCmd = exec.CommandContext(ctx, chunk.FilterCmd[0], chunk.FilterCmd[1:]...)
		filterCmd.Stdin = sourceStdout
		filterStdout, ferr := filterCmd.StdoutPipe()
		if ferr != nil {
			return "", fmt.Errorf("failed to open probe filter stdout pipe: %w", ferr)
		}
		encoderStdin = filterStdout
	}
	encoderCmd.Stdin = encoderStdin

	if err := sourceCmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start probe source stage: %w", err)
	}
	if filterCmd != nil {
		if err := filterCmd.Start(); err != nil {
			return "", fmt.Errorf("failed to start probe filter stage: %w", err)
		}
	}
	if err := encoderCmd.Run(); err != nil {
		return "", fmt.Errorf("probe encode failed: %w", err)
	}

	_ = sourceCmd.Wait()
	if filterCmd != nil {
		_ = filterCmd.Wait()
	}

	return outputPath, nil
}

// removeFile deletes a probe file and ignores errors; a leftover temp file
// from a dead probe is harmless clutter, not a failure worth surfacing.
func removeFile(path string) {
	_ = os.Remove(path)
}

// fileSize returns path's size in bytes, or 0 if it can't be statted.
func fileSize(path string) uint64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return uint64(info.Size())
}
