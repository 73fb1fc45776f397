// Package drapto provides a Go library for AV1 video encoding with SVT-AV1.
//
// Drapto is an opinionated FFmpeg wrapper that handles the complexity of
// AV1 encoding with sensible defaults, automatic crop detection, HDR metadata
// preservation, and post-encode validation.
//
// Basic usage:
//
//	encoder, err := drapto.New(
//	    drapto.WithPreset(drapto.PresetGrain),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := encoder.Encode(ctx, "input.mkv", "output/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Encoded: %s, reduction: %.1f%%\n",
//	    result.OutputFile, result.SizeReductionPercent)
package drapto

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/discovery"
	"github.com/five82/scenecode/internal/orchestrator"
	"github.com/five82/scenecode/internal/reporter"
	"github.com/five82/scenecode/internal/util"
)

// Re-export preset types
type Preset = config.Preset

const (
	PresetGrain     = config.PresetGrain
	PresetClean     = config.PresetClean
	PresetQuick     = config.PresetQuick
	PresetResumable = config.PresetResumable
)

// ParsePreset converts a preset string to a Preset value.
// Valid values are "grain", "clean", "quick", and "resumable" (case-insensitive).
func ParsePreset(s string) (Preset, error) {
	return config.ParsePreset(s)
}

// ParseCRF parses a --crf flag value into per-resolution CRF settings.
// A single value ("27") applies to SD, HD, and UHD alike; a comma-separated
// triple ("25,27,29") sets SD, HD, and UHD independently. Each value must be
// in SVT-AV1's CRF range, 0-63.
func ParseCRF(s string) (sd, hd, uhd uint8, err error) {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	switch len(parts) {
	case 1:
		v, perr := parseCRFValue(parts[0])
		if perr != nil {
			return 0, 0, 0, perr
		}
		return v, v, v, nil
	case 3:
		sdv, perr := parseCRFValue(parts[0])
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("invalid SD CRF: %w", perr)
		}
		hdv, perr := parseCRFValue(parts[1])
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("invalid HD CRF: %w", perr)
		}
		uhdv, perr := parseCRFValue(parts[2])
		if perr != nil {
			return 0, 0, 0, fmt.Errorf("invalid UHD CRF: %w", perr)
		}
		return sdv, hdv, uhdv, nil
	default:
		return 0, 0, 0, fmt.Errorf("quality must be a single value or three comma-separated values (sd,hd,uhd), got %q", s)
	}
}

func parseCRFValue(s string) (uint8, error) {
	if s == "" {
		return 0, fmt.Errorf("empty CRF value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if n < 0 || n > 63 {
		return 0, fmt.Errorf("CRF must be 0-63, got %d", n)
	}
	return uint8(n), nil
}

// Encoder is the main entry point for video encoding.
type Encoder struct {
	config *config.Config
}

// Result contains the result of a single file encode.
type Result struct {
	OutputFile           string
	OriginalSize         uint64
	EncodedSize          uint64
	SizeReductionPercent float64
	ValidationPassed     bool
	EncodingSpeed        float32
}

// BatchResult contains the result of a batch encode.
type BatchResult struct {
	Results               []Result
	SuccessfulCount       int
	TotalFiles            int
	TotalSizeReduction    float64
	ValidationPassedCount int
}

// Option configures the encoder.
type Option func(*config.Config)

// New creates a new Encoder with the given options.
func New(opts ...Option) (*Encoder, error) {
	cfg := config.NewConfig(".", ".", ".")

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Encoder{config: cfg}, nil
}

// WithPreset applies a Drapto preset.
func WithPreset(p Preset) Option {
	return func(c *config.Config) {
		c.ApplyPreset(p)
	}
}

// WithQualitySD sets the CRF quality for SD videos (<1920 width).
func WithQualitySD(crf uint8) Option {
	return func(c *config.Config) {
		c.QualitySD = crf
	}
}

// WithQualityHD sets the CRF quality for HD videos (>=1920 width).
func WithQualityHD(crf uint8) Option {
	return func(c *config.Config) {
		c.QualityHD = crf
	}
}

// WithQualityUHD sets the CRF quality for UHD videos (>=3840 width).
func WithQualityUHD(crf uint8) Option {
	return func(c *config.Config) {
		c.QualityUHD = crf
	}
}

// WithSVTAV1Preset sets the SVT-AV1 encoder preset (0-13, lower is slower/better).
func WithSVTAV1Preset(preset uint8) Option {
	return func(c *config.Config) {
		c.SVTAV1Preset = preset
	}
}

// WithDisableAutocrop disables automatic black bar detection.
func WithDisableAutocrop() Option {
	return func(c *config.Config) {
		c.CropMode = "none"
	}
}

// WithResponsive enables responsive encoding (reserves CPU threads).
func WithResponsive() Option {
	return func(c *config.Config) {
		c.ResponsiveEncoding = true
	}
}

// WithFilmGrain enables SVT-AV1 film grain synthesis with the given strength.
// Strength should be 0-50, where higher values add more synthetic grain.
func WithFilmGrain(strength uint8) Option {
	return func(c *config.Config) {
		c.SVTAV1FilmGrain = &strength
	}
}

// WithFilmGrainDenoise sets whether to denoise when using film grain synthesis.
// When true (default), the source is denoised before adding synthetic grain.
func WithFilmGrainDenoise(enable bool) Option {
	return func(c *config.Config) {
		c.SVTAV1FilmGrainDenoise = &enable
	}
}

// EncodeWithReporter encodes a single video file using a custom Reporter.
// This provides direct access to all encoding events, unlike Encode which
// uses the EventHandler abstraction.
func (e *Encoder) EncodeWithReporter(ctx context.Context, input, outputDir string, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return e.encodeOne(ctx, input, outputDir, rep)
}

// Encode encodes a single video file.
func (e *Encoder) Encode(ctx context.Context, input, outputDir string, handler EventHandler) (*Result, error) {
	var rep reporter.Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}
	return e.encodeOne(ctx, input, outputDir, rep)
}

func (e *Encoder) encodeOne(ctx context.Context, input, outputDir string, rep reporter.Reporter) (*Result, error) {
	cfg := *e.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	outputFile := util.ResolveOutputPath(input, outputDir, "")
	r, err := orchestrator.New(rep).Run(ctx, &cfg, input, outputFile)
	if err != nil {
		return nil, err
	}

	return &Result{
		OutputFile:           outputFile,
		OriginalSize:         r.InputSize,
		EncodedSize:          r.OutputSize,
		SizeReductionPercent: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
		ValidationPassed:     r.ValidationPassed,
		EncodingSpeed:        r.EncodingSpeed,
	}, nil
}

// EncodeBatch encodes multiple video files, continuing past a failed file
// rather than aborting the whole batch.
func (e *Encoder) EncodeBatch(ctx context.Context, inputs []string, outputDir string, handler EventHandler) (*BatchResult, error) {
	cfg := *e.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var rep reporter.Reporter = reporter.NullReporter{}
	if handler != nil {
		rep = newEventReporter(handler)
	}

	rep.BatchStarted(reporter.BatchStartInfo{TotalFiles: len(inputs), FileList: inputs, OutputDir: outputDir})

	batch := &BatchResult{
		TotalFiles: len(inputs),
	}

	var totalInputSize, totalOutputSize uint64
	for i, input := range inputs {
		rep.FileProgress(reporter.FileProgressContext{CurrentFile: i + 1, TotalFiles: len(inputs)})

		outputFile := util.ResolveOutputPath(input, outputDir, "")
		r, err := orchestrator.New(rep).Run(ctx, &cfg, input, outputFile)
		if err != nil {
			rep.Error(reporter.ReporterError{Title: "encode failed", Message: err.Error(), Context: input})
			continue
		}

		batch.Results = append(batch.Results, Result{
			OutputFile:           outputFile,
			OriginalSize:         r.InputSize,
			EncodedSize:          r.OutputSize,
			SizeReductionPercent: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
			ValidationPassed:     r.ValidationPassed,
			EncodingSpeed:        r.EncodingSpeed,
		})
		batch.SuccessfulCount++
		totalInputSize += r.InputSize
		totalOutputSize += r.OutputSize
		if r.ValidationPassed {
			batch.ValidationPassedCount++
		}
	}

	batch.TotalSizeReduction = util.CalculateSizeReduction(totalInputSize, totalOutputSize)

	rep.BatchComplete(reporter.BatchSummary{
		SuccessfulCount:       batch.SuccessfulCount,
		TotalFiles:            batch.TotalFiles,
		TotalOriginalSize:     totalInputSize,
		TotalEncodedSize:      totalOutputSize,
		ValidationPassedCount: batch.ValidationPassedCount,
		ValidationFailedCount: batch.SuccessfulCount - batch.ValidationPassedCount,
	})

	return batch, nil
}

// FindVideos finds video files in a directory.
func FindVideos(dir string) ([]string, error) {
	return discovery.FindVideoFiles(dir)
}

// eventReporter adapts EventHandler to the Reporter interface.
type eventReporter struct {
	handler EventHandler
}

func newEventReporter(handler EventHandler) *eventReporter {
	return &eventReporter{handler: handler}
}

func (r *eventReporter) Hardware(reporter.HardwareSummary)             {}
func (r *eventReporter) Initialization(reporter.InitializationSummary) {}
func (r *eventReporter) StageProgress(reporter.StageProgress)          {}
func (r *eventReporter) CropResult(reporter.CropSummary)               {}
func (r *eventReporter) EncodingConfig(reporter.EncodingConfigSummary) {}
func (r *eventReporter) EncodingStarted(uint64)                        {}

func (r *eventReporter) EncodingProgress(p reporter.ProgressSnapshot) {
	_ = r.handler(EncodingProgressEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeEncodingProgress, Time: NewTimestamp()},
		Percent:    p.Percent,
		Speed:      p.Speed,
		FPS:        p.FPS,
		ETASeconds: int64(p.ETA.Seconds()),
	})
}

func (r *eventReporter) ValidationComplete(s reporter.ValidationSummary) {
	steps := make([]ValidationStep, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = ValidationStep{
			Step:    step.Name,
			Passed:  step.Passed,
			Details: step.Details,
		}
	}
	_ = r.handler(ValidationCompleteEvent{
		BaseEvent:        BaseEvent{EventType: EventTypeValidationComplete, Time: NewTimestamp()},
		ValidationPassed: s.Passed,
		ValidationSteps:  steps,
	})
}

func (r *eventReporter) EncodingComplete(s reporter.EncodingOutcome) {
	_ = r.handler(EncodingCompleteEvent{
		BaseEvent:            BaseEvent{EventType: EventTypeEncodingComplete, Time: NewTimestamp()},
		OutputFile:           s.OutputFile,
		OriginalSize:         s.OriginalSize,
		EncodedSize:          s.EncodedSize,
		SizeReductionPercent: util.CalculateSizeReduction(s.OriginalSize, s.EncodedSize),
	})
}

func (r *eventReporter) Warning(message string) {
	_ = r.handler(WarningEvent{
		BaseEvent: BaseEvent{EventType: EventTypeWarning, Time: NewTimestamp()},
		Message:   message,
	})
}

func (r *eventReporter) Error(e reporter.ReporterError) {
	_ = r.handler(ErrorEvent{
		BaseEvent:  BaseEvent{EventType: EventTypeError, Time: NewTimestamp()},
		Title:      e.Title,
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	})
}

func (r *eventReporter) OperationComplete(string)                  {}
func (r *eventReporter) BatchStarted(reporter.BatchStartInfo)      {}
func (r *eventReporter) FileProgress(reporter.FileProgressContext) {}
func (r *eventReporter) Verbose(string)                            {}

func (r *eventReporter) BatchComplete(s reporter.BatchSummary) {
	_ = r.handler(BatchCompleteEvent{
		BaseEvent:                 BaseEvent{EventType: EventTypeBatchComplete, Time: NewTimestamp()},
		SuccessfulCount:           s.SuccessfulCount,
		TotalFiles:                s.TotalFiles,
		TotalSizeReductionPercent: util.CalculateSizeReduction(s.TotalOriginalSize, s.TotalEncodedSize),
	})
}
