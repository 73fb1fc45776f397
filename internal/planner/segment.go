package planner

import (
	"fmt"

	"github.com/five82/scenecode/internal/config"
	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/ffmpeg"
	"github.com/five82/scenecode/internal/model"
)

// planSegment physically splits the source into one file per scene via the
// container-level segmenter, then decodes each split file directly: no
// select filter is needed since the file is already trimmed to its scene.
func (p *Planner) planSegment(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string, filters *ffmpeg.VideoFilterChain) ([]model.Chunk, error) {
	if p.Segment == nil {
		return nil, coreerrors.NewPlanningFailedError("segment chunk method requires a Segmenter", nil)
	}

	splitFrames := make([]int, 0, len(scenes)-1)
	for _, s := range scenes[1:] {
		splitFrames = append(splitFrames, s.StartFrame)
	}

	files, err := p.Segment.Segment(input.Path, tempDir, splitFrames)
	if err != nil {
		return nil, coreerrors.NewPlanningFailedError("failed to segment input", err)
	}
	if len(files) != len(scenes) {
		return nil, coreerrors.NewPlanningFailedError(
			fmt.Sprintf("segmenter produced %d files for %d scenes", len(files), len(scenes)), nil)
	}

	chunks := make([]model.Chunk, len(scenes))
	for i, scene := range scenes {
		chunks[i] = p.buildSegmentChunk(i, files[i], scene, clip, tempDir, filters)
	}
	return chunks, nil
}

func (p *Planner) buildSegmentChunk(index int, filePath string, scene model.Scene, clip model.ClipInfo, tempDir string, filters *ffmpeg.VideoFilterChain) model.Chunk {
	encoderName, passes, videoParams, noiseW, noiseH, _ := resolveOverrides(scene)

	sourceCmd := []string{
		"ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", filePath,
	}
	if !filters.IsEmpty() {
		sourceCmd = append(sourceCmd, "-vf", filters.Build())
	}
	sourceCmd = append(sourceCmd,
		"-pix_fmt", pixelFormat(clip),
		"-strict", "-1",
		"-f", "yuv4mpegpipe", "-",
	)

	return model.Chunk{
		Index:       index,
		Name:        chunkName(index),
		TempDir:     tempDir,
		Input:       model.Input{Kind: model.InputVideo, Path: filePath},
		SourceCmd:   sourceCmd,
		OutputExt:   outputExt,
		StartFrame:  scene.StartFrame,
		EndFrame:    scene.EndFrame,
		FPSNum:      int(clip.FPSNum),
		FPSDen:      int(clip.FPSDen),
		VideoParams: videoParams,
		Passes:      passes,
		Encoder:     encoderName,
		NoiseWidth:  noiseW,
		NoiseHeight: noiseH,
	}
}

// planHybrid prefers Segment, splitting only at scene boundaries that land
// exactly on a container keyframe (splitting elsewhere would cut a GOP mid
// stream and corrupt the segment). If the keyframe prober is unavailable,
// or any interior scene boundary isn't keyframe-aligned, it falls back to
// Select for the whole input rather than risk a corrupt split.
func (p *Planner) planHybrid(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string, filters *ffmpeg.VideoFilterChain) ([]model.Chunk, error) {
	if p.Keyframes == nil || p.Segment == nil {
		p.warn("hybrid chunking unavailable (no keyframe prober or segmenter), falling back to select")
		return p.planSelect(cfg, input, clip, scenes, tempDir, filters)
	}

	keyframes, err := p.Keyframes.Keyframes(input.Path)
	if err != nil {
		p.warn(fmt.Sprintf("keyframe probe failed (%v), falling back to select", err))
		return p.planSelect(cfg, input, clip, scenes, tempDir, filters)
	}

	keyframeSet := make(map[int]bool, len(keyframes))
	for _, kf := range keyframes {
		keyframeSet[kf] = true
	}
	for _, s := range scenes[1:] {
		if !keyframeSet[s.StartFrame] {
			p.warn("scene boundaries are not keyframe-aligned, falling back to select")
			return p.planSelect(cfg, input, clip, scenes, tempDir, filters)
		}
	}

	return p.planSegment(cfg, input, clip, scenes, tempDir, filters)
}
