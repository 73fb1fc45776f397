package concat

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// batchSize caps how many inputs ffmpeg's concat demuxer is asked to join
// in one invocation; very large lists have been observed to trip demuxer
// probing limits, so runs past this size are merged in batches first.
const batchSize = 500

// Ffmpeg joins chunks with ffmpeg's concat demuxer, stream-copying into a
// single container at the configured output frame rate.
type Ffmpeg struct{}

func (Ffmpeg) Concat(ctx context.Context, p Params) (string, error) {
	paths, err := orderedChunkPaths(p)
	if err != nil {
		return "", err
	}
	if p.FPSDen == 0 {
		return "", fmt.Errorf("concat: FPS denominator is 0")
	}

	if len(paths) > batchSize {
		paths, err = mergeInBatches(ctx, p.TempDir, paths)
		if err != nil {
			return "", fmt.Errorf("concat: batched pre-merge failed: %w", err)
		}
	}

	concatListPath := filepath.Join(p.TempDir, "concat.txt")
	if err := writeConcatFile(concatListPath, paths); err != nil {
		return "", err
	}
	defer os.Remove(concatListPath)

	fps := float64(p.FPSNum) / float64(p.FPSDen)
	out := videoOutputPath(p.TempDir)
	args := []string{
		"-hide_banner", "-y",
		"-f", "concat", "-safe", "0", "-i", concatListPath,
		"-c", "copy",
		"-r", fmt.Sprintf("%.6f", fps),
		"-fflags", "+genpts+igndts+discardcorrupt+bitexact",
		"-avoid_negative_ts", "make_zero",
		"-reset_timestamps", "1",
		out,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("concat: ffmpeg concat failed: %w\noutput: %s", err, output)
	}
	return out, nil
}

// writeConcatFile writes an ffmpeg concat-demuxer list file naming paths
// by absolute path, since the demuxer resolves relative entries against
// its own working directory rather than the caller's.
func writeConcatFile(listPath string, paths []string) (err error) {
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("concat: failed to create concat list: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("concat: failed to close concat list: %w", cerr)
		}
	}()

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("concat: failed to resolve %s: %w", p, err)
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			return fmt.Errorf("concat: failed to write concat list: %w", err)
		}
	}
	return nil
}

// mergeInBatches joins paths in groups of batchSize, returning the list
// of batch output files to be joined by one final concat pass.
func mergeInBatches(ctx context.Context, tempDir string, paths []string) ([]string, error) {
	batchDir := filepath.Join(tempDir, "concat_batches")
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create batch dir: %w", err)
	}

	var batchOutputs []string
	for start := 0; start < len(paths); start += batchSize {
		end := min(start+batchSize, len(paths))

		listPath := filepath.Join(batchDir, fmt.Sprintf("batch_%04d.txt", start/batchSize))
		if err := writeConcatFile(listPath, paths[start:end]); err != nil {
			return nil, err
		}

		out := filepath.Join(batchDir, fmt.Sprintf("batch_%04d.mkv", start/batchSize))
		args := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out}
		cmd := exec.CommandContext(ctx, "ffmpeg", args...)
		output, err := cmd.CombinedOutput()
		_ = os.Remove(listPath)
		if err != nil {
			return nil, fmt.Errorf("batch %d merge failed: %w\noutput: %s", start/batchSize, err, output)
		}
		batchOutputs = append(batchOutputs, out)
	}
	return batchOutputs, nil
}
