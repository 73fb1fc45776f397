// Package orchestrator drives one input through the full chunked
// pipeline: scene detection, chunk planning, the bounded worker pool, and
// final concatenation, persisting enough state after each stage that an
// interrupted run can resume from where it left off.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/scenecode/internal/broker"
	"github.com/five82/scenecode/internal/chunkqueue"
	"github.com/five82/scenecode/internal/concat"
	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/crop"
	"github.com/five82/scenecode/internal/doneset"
	"github.com/five82/scenecode/internal/encoder"
	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/ffprobe"
	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
	"github.com/five82/scenecode/internal/planner"
	"github.com/five82/scenecode/internal/reporter"
	"github.com/five82/scenecode/internal/scenedetect"
	"github.com/five82/scenecode/internal/scenestore"
	"github.com/five82/scenecode/internal/tqplan"
	"github.com/five82/scenecode/internal/validation"
)

// Result is the outcome of running one input through the full pipeline.
type Result struct {
	Filename         string
	Duration         time.Duration
	InputSize        uint64
	OutputSize       uint64
	EncodingSpeed    float32
	ValidationPassed bool
	ValidationSteps  []validation.ValidationStep
}

// SceneDetector is the subset of *scenedetect.Analyzer the orchestrator
// depends on, narrowed so tests can substitute a fake.
type SceneDetector interface {
	Detect(ctx context.Context, inputPath string, totalFrames int, minSceneLen int, zones []model.ZoneOptions) ([]model.Scene, error)
}

// ChunkPlanner is the subset of *planner.Planner the orchestrator depends on.
type ChunkPlanner interface {
	Plan(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string) ([]model.Chunk, error)
}

// Orchestrator wires the chunked pipeline's components together for one
// input at a time. Every external dependency is a field rather than a
// hardcoded call so tests can substitute fakes for the real
// subprocess-backed defaults New returns.
type Orchestrator struct {
	Detector SceneDetector
	Planner  ChunkPlanner
	Runner   broker.ChunkRunner
	Reporter reporter.Reporter

	// TQPlan runs the target-quality CRF search over freshly planned
	// chunks before they're persisted. nil disables the search outright;
	// the real default still no-ops when cfg.TargetQuality is unset.
	TQPlan func(ctx context.Context, cfg *config.Config, chunks []model.Chunk, dims pipeline.Dims, base encoder.Params) ([]model.Chunk, error)

	// CropDetect samples inputPath for black-bar letterboxing. nil skips
	// detection outright, leaving cfg.CropFilter empty, which keeps
	// orchestrator_test.go's fakes (built without it set) from shelling
	// out to ffmpeg.
	CropDetect func(inputPath string, props *ffprobe.VideoProperties, disabled bool) crop.Result

	ClipInfo     func(inputPath string) (model.ClipInfo, error)
	VideoProps   func(inputPath string) (*ffprobe.VideoProperties, error)
	AudioStreams func(inputPath string) ([]ffprobe.AudioStreamInfo, error)
	Concatenator func(method config.ConcatMethod) concat.Concatenator
	ExtractAudio func(ctx context.Context, inputPath, tempDir string, streams []ffprobe.AudioStreamInfo) error
	MuxFinal     func(ctx context.Context, inputPath, videoPath, tempDir, outputPath string, streams []ffprobe.AudioStreamInfo) error
	Validate     func(inputPath, outputPath string, opts validation.Options) (*validation.Result, error)
}

// New returns an Orchestrator wired to the real external tools: the scene
// analyzer binary, ffprobe, ffmpeg/mkvmerge, and SvtAv1EncApp.
func New(rep reporter.Reporter) *Orchestrator {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	warn := func(msg string) { rep.Warning(msg) }
	return &Orchestrator{
		Detector:     scenedetect.NewAnalyzer(),
		Planner:      planner.New(planner.FFprobeKeyframes{}, planner.FFmpegSegmenter{}, warn),
		Runner:       pipeline.NewRunner(encoder.SVTAV1{}),
		Reporter:     rep,
		TQPlan: func(ctx context.Context, cfg *config.Config, chunks []model.Chunk, dims pipeline.Dims, base encoder.Params) ([]model.Chunk, error) {
			return tqplan.Run(ctx, encoder.SVTAV1{}, rep, cfg, chunks, dims, base)
		},
		CropDetect:   crop.Detect,
		ClipInfo:     ffprobe.GetClipInfo,
		VideoProps:   ffprobe.GetVideoProperties,
		AudioStreams: ffprobe.GetAudioStreamInfo,
		Concatenator: defaultConcatenator,
		ExtractAudio: concat.ExtractAudio,
		MuxFinal:     concat.MuxFinal,
		Validate:     validation.ValidateOutputVideo,
	}
}

func defaultConcatenator(method config.ConcatMethod) concat.Concatenator {
	switch method {
	case config.ConcatMethodFfmpeg:
		return concat.Ffmpeg{}
	case config.ConcatMethodMkvMerge:
		return concat.MkvMerge{}
	default:
		return concat.Ivf{}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// workPaths are the fixed locations under a run's temp directory.
type workPaths struct {
	root, split, encode, scenes, chunks, done string
}

func newWorkPaths(tempDir string) workPaths {
	return workPaths{
		root:   tempDir,
		split:  filepath.Join(tempDir, "split"),
		encode: filepath.Join(tempDir, "encode"),
		scenes: filepath.Join(tempDir, "scenes.json"),
		chunks: filepath.Join(tempDir, "chunks.json"),
		done:   filepath.Join(tempDir, "done.json"),
	}
}

// Run drives inputPath through detection, planning, encoding, and
// concatenation, writing the combined result to outputPath.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config, inputPath, outputPath string) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, coreerrors.NewConfigInvalidError("invalid configuration", err)
	}

	start := time.Now()
	filename := filepath.Base(inputPath)

	inputStat, err := os.Stat(inputPath)
	if err != nil {
		return nil, coreerrors.NewIOError("failed to stat input file", err)
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	paths := newWorkPaths(filepath.Join(cfg.GetTempDir(), stem))

	resuming := cfg.Resume && fileExists(paths.chunks) && fileExists(paths.done)
	if !resuming {
		if err := os.RemoveAll(paths.root); err != nil {
			return nil, coreerrors.NewIOError("failed to clear stale work directory", err)
		}
	}
	for _, dir := range []string{paths.root, paths.split, paths.encode} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, coreerrors.NewIOError("failed to create work directory", err)
		}
	}

	clip, err := o.ClipInfo(inputPath)
	if err != nil {
		return nil, coreerrors.NewVideoInfoError(fmt.Sprintf("failed to probe %s: %v", inputPath, err))
	}
	videoProps, err := o.VideoProps(inputPath)
	if err != nil {
		return nil, coreerrors.NewVideoInfoError(fmt.Sprintf("failed to probe video properties of %s: %v", inputPath, err))
	}

	o.Reporter.Initialization(reporter.InitializationSummary{
		InputFile:    inputPath,
		OutputFile:   outputPath,
		Duration:     fmt.Sprintf("%.1fs", videoProps.DurationSecs),
		Resolution:   fmt.Sprintf("%dx%d", clip.Width, clip.Height),
		DynamicRange: dynamicRangeLabel(clip.Transfer),
	})

	input := model.Input{Kind: model.InputVideo, Path: inputPath}

	var cropResult crop.Result
	if o.CropDetect != nil {
		cropResult = o.CropDetect(inputPath, videoProps, cfg.CropMode == "none")
	}
	cfg.CropFilter = cropResult.CropFilter
	o.Reporter.CropResult(reporter.CropSummary{
		Message:  cropResult.Message,
		Crop:     cropResult.CropFilter,
		Required: cropResult.Required,
		Disabled: cfg.CropMode == "none",
	})

	outWidth, outHeight := crop.OutputDimensions(clip.Width, clip.Height, cfg.CropFilter)
	dims := pipeline.Dims{
		Width: outWidth, Height: outHeight,
		FPSNum: clip.FPSNum, FPSDen: clip.FPSDen,
		Is10Bit: clip.BitDepth > 8,
		Threads: uint32(cfg.ThreadsPerWorker),
	}
	base := encoder.Params{
		CRF:                   float32(cfg.QualityForWidth(clip.Width)),
		Preset:                cfg.SVTAV1Preset,
		Tune:                  cfg.SVTAV1Tune,
		ACBias:                cfg.SVTAV1ACBias,
		EnableVarianceBoost:   cfg.SVTAV1EnableVarianceBoost,
		VarianceBoostStrength: cfg.SVTAV1VarianceBoostStrength,
		VarianceOctile:        cfg.SVTAV1VarianceOctile,
	}

	var chunks []model.Chunk
	if resuming {
		scenes, err := scenestore.Load(paths.scenes)
		if err != nil {
			return nil, err
		}
		if err := model.ValidateTiling(scenes, clip.NumFrames); err != nil {
			return nil, coreerrors.NewResumeInconsistentError(
				fmt.Sprintf("persisted scenes.json no longer tiles the probed clip: %v", err))
		}
		chunks, err = chunkqueue.Load(paths.chunks, paths.root)
		if err != nil {
			return nil, err
		}
	} else {
		scenes, err := o.Detector.Detect(ctx, inputPath, clip.NumFrames, cfg.MinSceneLen, cfg.Zones)
		if err != nil {
			return nil, err
		}
		if err := scenestore.Save(paths.scenes, scenes); err != nil {
			return nil, err
		}

		chunks, err = o.Planner.Plan(cfg, input, clip, scenes, paths.root)
		if err != nil {
			return nil, err
		}

		if o.TQPlan != nil {
			chunks, err = o.TQPlan(ctx, cfg, chunks, dims, base)
			if err != nil {
				return nil, fmt.Errorf("target-quality search failed: %w", err)
			}
		}

		if err := chunkqueue.Save(paths.chunks, chunks); err != nil {
			return nil, err
		}
	}

	done, err := doneset.Load(paths.done, paths.encode, func(name string) string {
		return chunkOutputExt(chunks, name)
	})
	if err != nil {
		return nil, err
	}

	audioStreams, err := o.AudioStreams(inputPath)
	if err != nil {
		return nil, coreerrors.NewVideoInfoError(fmt.Sprintf("failed to probe audio streams of %s: %v", inputPath, err))
	}

	group, gctx := errgroup.WithContext(ctx)

	if len(audioStreams) > 0 && !done.AudioDone() {
		group.Go(func() error {
			if err := o.ExtractAudio(gctx, inputPath, paths.root, audioStreams); err != nil {
				return err
			}
			done.MarkAudioDone()
			return done.Persist()
		})
	}

	b := broker.New(o.Runner, done, cfg.Workers, cfg.MaxTries, cfg.ThreadsPerWorker, dims, base)
	b.OnProgress = func(p broker.Progress) {
		o.Reporter.EncodingProgress(reporter.ProgressSnapshot{
			CurrentFrame:   uint64(p.FramesComplete),
			TotalFrames:    uint64(p.FramesTotal),
			ChunksComplete: p.ChunksComplete,
			ChunksTotal:    p.ChunksTotal,
		})
	}
	b.OnRetry = func(e broker.RetryEvent) {
		o.Reporter.Warning(fmt.Sprintf("chunk %s attempt %d failed: %v", e.ChunkName, e.Attempt, e.Err))
	}
	b.OnFatal = func(e broker.FatalChunkEvent) {
		o.Reporter.Error(reporter.ReporterError{
			Title:   "chunk encode failed",
			Message: fmt.Sprintf("chunk %s exhausted its retries: %v", e.ChunkName, e.Err),
		})
	}

	o.Reporter.EncodingStarted(uint64(clip.NumFrames))
	group.Go(func() error {
		return b.Run(gctx, chunks)
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}

	videoPath, err := o.Concatenator(cfg.ConcatMethod).Concat(ctx, concat.Params{
		Chunks: chunks,
		TempDir: paths.root,
		FPSNum: clip.FPSNum, FPSDen: clip.FPSDen,
	})
	if err != nil {
		return nil, err
	}

	if err := o.MuxFinal(ctx, inputPath, videoPath, paths.root, outputPath, audioStreams); err != nil {
		return nil, err
	}

	outputStat, err := os.Stat(outputPath)
	if err != nil {
		return nil, coreerrors.NewIOError("failed to stat output file", err)
	}

	result := &Result{
		Filename:   filename,
		Duration:   time.Since(start),
		InputSize:  uint64(inputStat.Size()),
		OutputSize: uint64(outputStat.Size()),
	}
	if secs := result.Duration.Seconds(); secs > 0 && videoProps.DurationSecs > 0 {
		result.EncodingSpeed = float32(videoProps.DurationSecs / secs)
	}

	isHDR := clip.Transfer == model.TransferHDR
	valResult, err := o.Validate(inputPath, outputPath, validation.Options{
		ExpectedDimensions: &[2]uint32{clip.Width, clip.Height},
		ExpectedDuration:   &videoProps.DurationSecs,
		ExpectedHDR:        &isHDR,
	})
	if err != nil {
		o.Reporter.Warning(fmt.Sprintf("post-encode validation failed to run: %v", err))
	} else {
		steps := valResult.GetValidationSteps()
		result.ValidationPassed = valResult.IsValid()
		result.ValidationSteps = steps
		reportSteps := make([]reporter.ValidationStep, len(steps))
		for i, s := range steps {
			reportSteps[i] = reporter.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details}
		}
		o.Reporter.ValidationComplete(reporter.ValidationSummary{Passed: result.ValidationPassed, Steps: reportSteps})
	}

	o.Reporter.EncodingComplete(reporter.EncodingOutcome{
		InputFile:    inputPath,
		OutputFile:   outputPath,
		OriginalSize: result.InputSize,
		EncodedSize:  result.OutputSize,
		TotalTime:    result.Duration,
		AverageSpeed: result.EncodingSpeed,
		OutputPath:   outputPath,
	})

	if !cfg.KeepTemp {
		if err := os.RemoveAll(paths.root); err != nil {
			o.Reporter.Warning(fmt.Sprintf("failed to clean up work directory %s: %v", paths.root, err))
		}
	}

	return result, nil
}

func dynamicRangeLabel(t model.Transfer) string {
	if t == model.TransferHDR {
		return "HDR"
	}
	return "SDR"
}

// chunkOutputExt looks up the output extension planned for chunk name, used
// by doneset.Load to locate each completed chunk's output file. Every chunk
// in one run shares the same extension today (SVT-AV1's IVF), but the
// lookup is kept per-name so a future mixed-encoder run stays correct.
func chunkOutputExt(chunks []model.Chunk, name string) string {
	for _, c := range chunks {
		if c.Name == name {
			return c.OutputExt
		}
	}
	return ".ivf"
}
