package planner

import (
	"strconv"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/ffmpeg"
	"github.com/five82/scenecode/internal/model"
)

// planScript generates one frame-source script invocation (vspipe) per
// scene. Crop/denoise filters can't be expressed inside the script call,
// so when any are configured they run as a distinct filter-stage process
// downstream of vspipe's y4m output. That stage also runs, filter-less if
// need be, whenever vspipe's output can't be trusted to already match the
// encoder's configured bit depth (see requiresFilterStage).
func (p *Planner) planScript(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string, filters *ffmpeg.VideoFilterChain) ([]model.Chunk, error) {
	chunks := make([]model.Chunk, len(scenes))
	for i, scene := range scenes {
		chunks[i] = p.buildScriptChunk(i, input, scene, clip, tempDir, filters)
	}
	return chunks, nil
}

func (p *Planner) buildScriptChunk(index int, input model.Input, scene model.Scene, clip model.ClipInfo, tempDir string, filters *ffmpeg.VideoFilterChain) model.Chunk {
	encoderName, passes, videoParams, noiseW, noiseH, _ := resolveOverrides(scene)

	frameEnd := scene.EndFrame - 1
	sourceCmd := append([]string{
		"vspipe", input.Path, "-c", "y4m", "-",
		"-s", strconv.Itoa(scene.StartFrame),
		"-e", strconv.Itoa(frameEnd),
	}, input.ScriptArgs...)

	var filterCmd []string
	if requiresFilterStage(filters, clip) {
		args := []string{
			"ffmpeg", "-y", "-hide_banner", "-loglevel", "error",
			"-i", "-",
		}
		if !filters.IsEmpty() {
			args = append(args, "-vf", filters.Build())
		}
		args = append(args,
			"-pix_fmt", pixelFormat(clip),
			"-strict", "-1",
			"-f", "yuv4mpegpipe", "-",
		)
		filterCmd = args
	}

	return model.Chunk{
		Index:       index,
		Name:        chunkName(index),
		TempDir:     tempDir,
		Input:       input,
		SourceCmd:   sourceCmd,
		FilterCmd:   filterCmd,
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

// requiresFilterStage reports whether vspipe's raw "-c y4m" output needs a
// downstream ffmpeg stage before reaching the encoder. Unlike Select/Segment,
// which always decode through ffmpeg with an explicit -pix_fmt, vspipe here
// is never told a target format, so its y4m stream only matches what the
// encoder expects by chance once bit depth exceeds 8: a script that doesn't
// itself convert would hand SvtAv1EncApp an 8-bit stream tagged against a
// 10/12-bit --input-depth. Filters force the stage regardless, since they
// can't run inside the script call.
func requiresFilterStage(filters *ffmpeg.VideoFilterChain, clip model.ClipInfo) bool {
	return !filters.IsEmpty() || clip.BitDepth > 8
}
