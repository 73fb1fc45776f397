package planner

import (
	"fmt"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/ffmpeg"
	"github.com/five82/scenecode/internal/model"
)

// planSelect slices the decoded frame stream directly at scene cuts via
// ffmpeg's select filter, one ffmpeg invocation per scene. No physical
// splitting occurs; every chunk re-decodes the whole file up to its range.
func (p *Planner) planSelect(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string, filters *ffmpeg.VideoFilterChain) ([]model.Chunk, error) {
	chunks := make([]model.Chunk, len(scenes))
	for i, scene := range scenes {
		chunks[i] = p.buildSelectChunk(i, input.Path, scene, clip, tempDir, filters)
	}
	return chunks, nil
}

func (p *Planner) buildSelectChunk(index int, inputPath string, scene model.Scene, clip model.ClipInfo, tempDir string, filters *ffmpeg.VideoFilterChain) model.Chunk {
	encoderName, passes, videoParams, noiseW, noiseH, _ := resolveOverrides(scene)

	chain := ffmpeg.NewVideoFilterChain()
	chain.AddFilter(fmt.Sprintf(`select=between(n\,%d\,%d)`, scene.StartFrame, scene.EndFrame-1))
	if !filters.IsEmpty() {
		chain.AddFilter(filters.Build())
	}

	sourceCmd := []string{
		"ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-vf", chain.Build(),
		"-pix_fmt", pixelFormat(clip),
		"-strict", "-1",
		"-f", "yuv4mpegpipe", "-",
	}

	return model.Chunk{
		Index:       index,
		Name:        chunkName(index),
		TempDir:     tempDir,
		Input:       model.Input{Kind: model.InputVideo, Path: inputPath},
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
