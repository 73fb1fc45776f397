// Package planner turns a detected scene list into an ordered chunk
// queue, one of four strategies per config.ChunkMethod.
package planner

import (
	"fmt"
	"path/filepath"

	"github.com/five82/scenecode/internal/config"
	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/ffmpeg"
	"github.com/five82/scenecode/internal/model"
)

// outputExt is fixed: the only wired Adapter is SVT-AV1, which writes IVF.
const outputExt = ".ivf"
const defaultEncoderName = "svt-av1"

// KeyframeProber reports the container keyframe positions of a video file,
// needed by the Segment and Hybrid strategies to split without re-encoding
// frame boundaries across a cut.
type KeyframeProber interface {
	Keyframes(path string) ([]int, error)
}

// Segmenter physically splits a source file into per-scene files at the
// given frame boundaries (which must be a subset of its keyframes for
// Segment/Hybrid to avoid corrupting GOPs), returning the produced paths
// in scene order.
type Segmenter interface {
	Segment(inputPath, tempDir string, splitFrames []int) ([]string, error)
}

// Planner composes a chunk queue from scenes using the configured strategy.
type Planner struct {
	Keyframes KeyframeProber
	Segment   Segmenter
	warn      func(string)
}

// New returns a Planner. warn, if non-nil, receives a message whenever the
// Hybrid strategy falls back to Select.
func New(keyframes KeyframeProber, segmenter Segmenter, warn func(string)) *Planner {
	if warn == nil {
		warn = func(string) {}
	}
	return &Planner{Keyframes: keyframes, Segment: segmenter, warn: warn}
}

// Plan builds the chunk queue for one input from its scene list, in the
// order config.ChunkOrdering requests.
func (p *Planner) Plan(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string) ([]model.Chunk, error) {
	if len(scenes) == 0 {
		return nil, coreerrors.NewPlanningFailedError("no scenes to plan", nil)
	}

	filters := filterChain(cfg, clip)

	var chunks []model.Chunk
	var err error
	switch cfg.ChunkMethod {
	case config.ChunkMethodScript:
		chunks, err = p.planScript(cfg, input, clip, scenes, tempDir, filters)
	case config.ChunkMethodSelect:
		chunks, err = p.planSelect(cfg, input, clip, scenes, tempDir, filters)
	case config.ChunkMethodSegment:
		chunks, err = p.planSegment(cfg, input, clip, scenes, tempDir, filters)
	case config.ChunkMethodHybrid:
		chunks, err = p.planHybrid(cfg, input, clip, scenes, tempDir, filters)
	default:
		return nil, coreerrors.NewPlanningFailedError(fmt.Sprintf("unknown chunk method %d", cfg.ChunkMethod), nil)
	}
	if err != nil {
		return nil, err
	}

	order(chunks, cfg.ChunkOrdering, cfg.OrderSeed, input.Path)
	return chunks, nil
}

// filterChain composes the crop/denoise filter string shared by every
// strategy that needs it (Select/Segment/Hybrid bake it into the decode
// command; Script applies it as a distinct post-vspipe filter stage).
func filterChain(cfg *config.Config, clip model.ClipInfo) *ffmpeg.VideoFilterChain {
	chain := ffmpeg.NewVideoFilterChain()
	if cfg.CropFilter != "" {
		chain.AddCrop(cfg.CropFilter)
	}
	if cfg.VideoDenoiseFilter != "" {
		chain.AddFilter(cfg.VideoDenoiseFilter)
	}
	return chain
}

func pixelFormat(clip model.ClipInfo) string {
	if clip.BitDepth > 8 {
		return "yuv420p10le"
	}
	return "yuv420p"
}

// resolveOverrides picks the encoder name, pass count, extra video params,
// and photon-noise dimensions for a scene, honoring its zone override.
func resolveOverrides(scene model.Scene) (encoderName string, passes int, videoParams []string, noiseW, noiseH *uint32, minSceneLen int) {
	encoderName = defaultEncoderName
	passes = 1
	if ovr := scene.ZoneOverrides; ovr != nil {
		if ovr.Encoder != "" {
			encoderName = ovr.Encoder
		}
		if ovr.Passes != 0 {
			passes = ovr.Passes
		}
		videoParams = ovr.VideoParams
		noiseW, noiseH = ovr.PhotonNoiseW, ovr.PhotonNoiseH
		minSceneLen = ovr.MinSceneLen
	}
	return
}

func chunkName(index int) string {
	return model.ChunkName(index)
}

func splitDir(tempDir string) string {
	return filepath.Join(tempDir, "split")
}
