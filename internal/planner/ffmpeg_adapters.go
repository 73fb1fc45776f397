package planner

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	coreerrors "github.com/five82/scenecode/internal/errors"
)

// FFprobeKeyframes lists a video's container keyframe positions as frame
// indices, by asking ffprobe for every packet's flags and numbering the
// packets in the order ffprobe lists them.
type FFprobeKeyframes struct{}

// Keyframes returns the frame numbers of every keyframe (packets with the
// "K" flag) in path's first video stream.
func (FFprobeKeyframes) Keyframes(path string) ([]int, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=flags",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, coreerrors.WrapExecError("ffprobe", err, stderrOf(err))
	}

	var keyframes []int
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i, line := range lines {
		if strings.Contains(line, "K") {
			keyframes = append(keyframes, i)
		}
	}
	return keyframes, nil
}

func stderrOf(err error) string {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return string(exitErr.Stderr)
	}
	return ""
}

// FFmpegSegmenter splits a source file into per-scene files using ffmpeg's
// segment muxer at the given frame boundaries, stream-copying (no
// re-encode) so the split is lossless. splitFrames must be keyframe-aligned.
type FFmpegSegmenter struct{}

// Segment writes one file per (scene boundary + 1) into tempDir/split and
// returns their paths in order.
func (FFmpegSegmenter) Segment(inputPath, tempDir string, splitFrames []int) ([]string, error) {
	outDir := splitDir(tempDir)
	pattern := filepath.Join(outDir, "%05d.mkv")

	framePoints := make([]string, len(splitFrames))
	for i, f := range splitFrames {
		framePoints[i] = strconv.Itoa(f)
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-map", "0",
		"-c", "copy",
		"-f", "segment",
	}
	if len(framePoints) > 0 {
		args = append(args, "-segment_frames", strings.Join(framePoints, ","))
	}
	args = append(args, pattern)

	cmd := exec.Command("ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, coreerrors.WrapExecError("ffmpeg", err, string(out))
	}

	matches, err := filepath.Glob(filepath.Join(outDir, "*.mkv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list segmented files: %w", err)
	}
	return matches, nil
}
