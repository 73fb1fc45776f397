// Package scenedetect drives an external scene-cut analyzer across a clip,
// honoring zone boundaries so that no detected scene crosses a zone edge.
package scenedetect

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	coreerrors "github.com/five82/scenecode/internal/errors"
)

const analyzerBinaryName = "scenecode-scd"

// Analyzer wraps the external scene-cut analyzer binary. It extends the
// teacher's single-shot, whole-file scd contract with a start offset and an
// optional frame limit so the zone walk in Detect can bound each call to one
// zone or one inter-zone stretch at a time, and asks for machine-readable
// JSON on stdout instead of a flat scene file.
type Analyzer struct {
	BinaryName string

	// fetch overrides detectSegment in tests; nil means use the real binary.
	fetch func(ctx context.Context, inputPath string, startFrame int, frameLimit *int, minSceneLen int) (segmentResult, error)
}

// NewAnalyzer returns an Analyzer using the default binary name.
func NewAnalyzer() *Analyzer {
	return &Analyzer{BinaryName: analyzerBinaryName}
}

// IsAvailable reports whether the analyzer binary can be found in PATH.
func (a *Analyzer) IsAvailable() bool {
	_, err := exec.LookPath(a.binaryName())
	return err == nil
}

func (a *Analyzer) binaryName() string {
	if a.BinaryName != "" {
		return a.BinaryName
	}
	return analyzerBinaryName
}

// segmentResult is the JSON object the analyzer writes to stdout.
type segmentResult struct {
	// CutIndices are frame offsets, relative to the segment's start frame,
	// at which a scene cut was detected. Index 0 is always included.
	CutIndices []int `json:"cut_indices"`
	// FrameCount is the number of frames the analyzer actually read.
	FrameCount int `json:"frame_count"`
}

// detectSegment runs the analyzer over [startFrame, startFrame+frameLimit)
// of inputPath, or to the end of the clip if frameLimit is nil.
func (a *Analyzer) detectSegment(ctx context.Context, inputPath string, startFrame int, frameLimit *int, minSceneLen int) (segmentResult, error) {
	if a.fetch != nil {
		return a.fetch(ctx, inputPath, startFrame, frameLimit, minSceneLen)
	}
	binPath, err := exec.LookPath(a.binaryName())
	if err != nil {
		return segmentResult{}, fmt.Errorf("%s not found in PATH: %w", a.binaryName(), err)
	}

	args := []string{
		"--input", inputPath,
		"--start-frame", strconv.Itoa(startFrame),
		"--min-scene-len", strconv.Itoa(minSceneLen),
		"--json",
	}
	if frameLimit != nil {
		args = append(args, "--frame-limit", strconv.Itoa(*frameLimit))
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	out, err := cmd.Output()
	if err != nil {
		return segmentResult{}, coreerrors.WrapExecError(a.binaryName(), err, stderrOf(err))
	}

	var result segmentResult
	if err := json.Unmarshal(out, &result); err != nil {
		return segmentResult{}, coreerrors.NewJSONParseError("failed to parse analyzer output", err)
	}
	return result, nil
}

func stderrOf(err error) string {
	if ee, ok := err.(*exec.ExitError); ok {
		return string(ee.Stderr)
	}
	return ""
}
