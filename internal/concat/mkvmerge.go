package concat

import (
	"context"
	"fmt"
	"os/exec"
)

// MkvMerge joins chunks by shelling out to the external mkvmerge binary,
// which can append sources with '+' without re-muxing through ffmpeg and
// can force a constant output frame rate to correct rounding drift that
// accumulates across many short chunks.
type MkvMerge struct{}

func (MkvMerge) Concat(ctx context.Context, p Params) (string, error) {
	paths, err := orderedChunkPaths(p)
	if err != nil {
		return "", err
	}
	if p.FPSDen == 0 {
		return "", fmt.Errorf("concat: FPS denominator is 0")
	}

	out := videoOutputPath(p.TempDir)
	args := []string{"-o", out}

	if !p.IgnoreFrameMismatch {
		fps := float64(p.FPSNum) / float64(p.FPSDen)
		args = append(args, "--default-duration", fmt.Sprintf("0:%.6ffps", fps))
	}

	for i, path := range paths {
		if i > 0 {
			args = append(args, "+")
		}
		args = append(args, path)
	}

	cmd := exec.CommandContext(ctx, "mkvmerge", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			// mkvmerge uses exit code 1 for warnings, not failure.
			return out, nil
		}
		return "", fmt.Errorf("concat: mkvmerge failed: %w\noutput: %s", err, output)
	}
	return out, nil
}
