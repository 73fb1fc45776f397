// Package config provides configuration types and defaults for scenecode.
package config

import (
	"fmt"
	"strings"

	"github.com/five82/scenecode/internal/model"
)

// Default constants
const (
	// DefaultQualitySD is the default CRF quality setting for SD content (<1920 width).
	DefaultQualitySD uint8 = 25

	// DefaultQualityHD is the default CRF quality setting for HD content (>=1920, <3840 width).
	DefaultQualityHD uint8 = 27

	// DefaultQualityUHD is the default CRF quality setting for UHD content (>=3840 width).
	DefaultQualityUHD uint8 = 29

	// HDWidthThreshold is the minimum width for HD resolution.
	HDWidthThreshold uint32 = 1920

	// UHDWidthThreshold is the minimum width for UHD resolution.
	UHDWidthThreshold uint32 = 3840

	// DefaultSVTAV1Preset is the SVT-AV1 preset (0-13, lower is slower/better).
	DefaultSVTAV1Preset uint8 = 6

	// DefaultSVTAV1Tune is the SVT-AV1 tune parameter.
	DefaultSVTAV1Tune uint8 = 0

	// DefaultSVTAV1ACBias is the SVT-AV1 ac-bias parameter.
	DefaultSVTAV1ACBias float32 = 0.1

	// DefaultSVTAV1EnableVarianceBoost is whether variance boost is enabled.
	DefaultSVTAV1EnableVarianceBoost bool = false

	// DefaultSVTAV1VarianceBoostStrength is the variance boost strength.
	DefaultSVTAV1VarianceBoostStrength uint8 = 0

	// DefaultSVTAV1VarianceOctile is the variance octile parameter.
	DefaultSVTAV1VarianceOctile uint8 = 0

	// DefaultCropMode is the crop mode for the main encode.
	DefaultCropMode string = "auto"

	// DefaultEncodeCooldownSecs is the cooldown period between encodes.
	DefaultEncodeCooldownSecs uint64 = 3

	// ProgressLogIntervalPercent is the progress logging interval.
	ProgressLogIntervalPercent uint8 = 5

	// DefaultChunkDuration is the default chunk duration in seconds for non-4K content.
	DefaultChunkDuration float64 = 10.0

	// DefaultChunkDuration4K is the default chunk duration in seconds for 4K content.
	DefaultChunkDuration4K float64 = 20.0

	// DefaultThreadsPerWorker is the default number of threads per encoder worker.
	DefaultThreadsPerWorker int = 2

	// DefaultMaxTries is the default number of attempts before a chunk is fatal.
	DefaultMaxTries int = 3

	// DefaultSceneThreshold is the default scene-cut detection threshold.
	DefaultSceneThreshold float64 = 0.4

	// DefaultMinSceneLen is the default minimum scene length, in frames.
	DefaultMinSceneLen int = 24
)

// Preset groups related defaults under one name, the way a video
// encoder's "profile" flags group many low-level knobs.
type Preset uint8

const (
	// PresetGrain favors preserved film grain over bitrate efficiency.
	PresetGrain Preset = iota
	// PresetClean favors a denoised, bitrate-efficient encode.
	PresetClean
	// PresetQuick trades quality for encode speed.
	PresetQuick
	// PresetResumable keeps the default quality and speed settings, turns
	// Resume on, and sets ChunkDuration to 5 seconds. Chunk boundaries come
	// from scene cuts, so ChunkDuration does not change chunk sizes.
	PresetResumable
)

// ParsePreset parses a preset name, case-insensitively.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(s) {
	case "grain":
		return PresetGrain, nil
	case "clean":
		return PresetClean, nil
	case "quick":
		return PresetQuick, nil
	case "resumable":
		return PresetResumable, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPreset, s)
	}
}

// String returns the preset's canonical name.
func (p Preset) String() string {
	switch p {
	case PresetGrain:
		return "grain"
	case PresetClean:
		return "clean"
	case PresetQuick:
		return "quick"
	case PresetResumable:
		return "resumable"
	default:
		return "unknown"
	}
}

// ChunkMethod selects how a file is split into independently-encodable chunks.
type ChunkMethod uint8

const (
	// ChunkMethodSegment physically splits the source at every scene start.
	ChunkMethodSegment ChunkMethod = iota
	// ChunkMethodSelect slices the decoded frame stream directly at scene cuts.
	ChunkMethodSelect
	// ChunkMethodScript generates one frame-source script invocation per scene.
	ChunkMethodScript
	// ChunkMethodHybrid prefers Segment, falling back to Select when no
	// keyframe prober is available.
	ChunkMethodHybrid
)

// ParseChunkMethod parses a chunk method name.
func ParseChunkMethod(s string) (ChunkMethod, error) {
	switch s {
	case "segment":
		return ChunkMethodSegment, nil
	case "select":
		return ChunkMethodSelect, nil
	case "script":
		return ChunkMethodScript, nil
	case "hybrid":
		return ChunkMethodHybrid, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidChunkMethod, s)
	}
}

// ChunkOrdering selects the dispatch order the planner assigns to chunks.
type ChunkOrdering uint8

const (
	// OrderLongestFirst dispatches the longest chunks first.
	OrderLongestFirst ChunkOrdering = iota
	// OrderShortestFirst dispatches the shortest chunks first.
	OrderShortestFirst
	// OrderSequential preserves scene order.
	OrderSequential
	// OrderRandom shuffles chunks with a seeded deterministic shuffle.
	OrderRandom
)

// ParseChunkOrdering parses a chunk ordering name.
func ParseChunkOrdering(s string) (ChunkOrdering, error) {
	switch s {
	case "longest-first":
		return OrderLongestFirst, nil
	case "shortest-first":
		return OrderShortestFirst, nil
	case "sequential":
		return OrderSequential, nil
	case "random":
		return OrderRandom, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidChunkOrdering, s)
	}
}

// ConcatMethod selects how finished chunks are joined into one container.
type ConcatMethod uint8

const (
	// ConcatMethodIvf does a binary concatenation of SVT-AV1 IVF chunk
	// streams, valid only when every chunk shares the same codec headers.
	ConcatMethodIvf ConcatMethod = iota
	// ConcatMethodFfmpeg uses ffmpeg's concat demuxer against the chunk
	// list, re-muxing into the output container.
	ConcatMethodFfmpeg
	// ConcatMethodMkvMerge shells out to mkvmerge, which can optionally
	// force a constant output frame rate to correct rounding drift.
	ConcatMethodMkvMerge
)

// ParseConcatMethod parses a concat method name.
func ParseConcatMethod(s string) (ConcatMethod, error) {
	switch s {
	case "ivf":
		return ConcatMethodIvf, nil
	case "ffmpeg":
		return ConcatMethodFfmpeg, nil
	case "mkvmerge":
		return ConcatMethodMkvMerge, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidConcatMethod, s)
	}
}

// AutoParallelConfig returns the default workers (24) and buffer (4)
// settings. The values are fixed; they do not depend on resolution or memory.
func AutoParallelConfig() (workers, buffer int) {
	workers = 24
	buffer = 4
	return workers, buffer
}

// Config holds all configuration for the chunked re-encoding pipeline.
type Config struct {
	// Input/output paths
	InputDir  string
	OutputDir string
	LogDir    string
	TempDir   string // Optional, defaults to OutputDir
	KeepTemp  bool   // Skip cleanup of the per-file work directory

	// SVT-AV1 parameters
	SVTAV1Preset                uint8
	SVTAV1Tune                  uint8
	SVTAV1ACBias                float32
	SVTAV1EnableVarianceBoost   bool
	SVTAV1VarianceBoostStrength uint8
	SVTAV1VarianceOctile        uint8

	// Optional filters and film grain
	VideoDenoiseFilter     string
	SVTAV1FilmGrain        *uint8
	SVTAV1FilmGrainDenoise *bool

	// Quality settings (CRF value 0-63) by resolution
	QualitySD  uint8
	QualityHD  uint8
	QualityUHD uint8

	// Grouped-defaults preset, recorded once applied so it can be reported.
	AppliedPreset *Preset

	// Processing options
	CropMode           string
	ResponsiveEncoding bool
	EncodeCooldownSecs uint64

	// CropFilter is the detected crop filter string (e.g. "crop=1920:800:0:140"),
	// computed once per input before planning and consumed by the planner's
	// filter chain. Empty means no crop, whether because detection found none
	// or CropMode disabled it.
	CropFilter string

	// Parallel encoding options
	Workers          int
	ChunkBuffer      int
	ThreadsPerWorker int
	MaxTries         int
	Resume           bool

	// Chunking
	ChunkDuration float64
	ChunkMethod   ChunkMethod
	ChunkOrdering ChunkOrdering
	OrderSeed     int64 // 0 means "derive from input path"
	ConcatMethod  ConcatMethod

	// Scene detection
	SceneThreshold float64
	MinSceneLen    int
	Zones          []model.ZoneOptions

	// Target-quality (SSIMULACRA2) CRF search
	TargetQuality     string
	QPRange           string
	MetricMode        string
	MetricWorkers     int
	SampleDuration    float64
	SampleMinChunk    float64
	DisableTQSampling bool

	// Debug options
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	workers, buffer := AutoParallelConfig()

	return &Config{
		InputDir:                    inputDir,
		OutputDir:                   outputDir,
		LogDir:                      logDir,
		SVTAV1Preset:                DefaultSVTAV1Preset,
		SVTAV1Tune:                  DefaultSVTAV1Tune,
		SVTAV1ACBias:                DefaultSVTAV1ACBias,
		SVTAV1EnableVarianceBoost:   DefaultSVTAV1EnableVarianceBoost,
		SVTAV1VarianceBoostStrength: DefaultSVTAV1VarianceBoostStrength,
		SVTAV1VarianceOctile:        DefaultSVTAV1VarianceOctile,
		QualitySD:                   DefaultQualitySD,
		QualityHD:                   DefaultQualityHD,
		QualityUHD:                  DefaultQualityUHD,
		CropMode:                    DefaultCropMode,
		ResponsiveEncoding:          false,
		EncodeCooldownSecs:          DefaultEncodeCooldownSecs,
		Workers:                     workers,
		ChunkBuffer:                 buffer,
		ThreadsPerWorker:            DefaultThreadsPerWorker,
		MaxTries:                    DefaultMaxTries,
		Resume:                      true,
		ChunkDuration:               DefaultChunkDuration,
		ChunkMethod:                 ChunkMethodHybrid,
		ChunkOrdering:               OrderLongestFirst,
		ConcatMethod:                ConcatMethodIvf,
		SceneThreshold:              DefaultSceneThreshold,
		MinSceneLen:                 DefaultMinSceneLen,
		MetricWorkers:               1,
	}
}

// PresetValues holds the grouped defaults a Preset sets.
type PresetValues struct {
	QualitySD    uint8
	QualityHD    uint8
	QualityUHD   uint8
	SVTAV1Preset uint8
	ChunkDuration float64
}

// GetPresetValues returns the grouped defaults for p.
func GetPresetValues(p Preset) PresetValues {
	switch p {
	case PresetGrain:
		return PresetValues{QualitySD: 23, QualityHD: 25, QualityUHD: 27, SVTAV1Preset: 4, ChunkDuration: DefaultChunkDuration}
	case PresetClean:
		return PresetValues{QualitySD: 26, QualityHD: 28, QualityUHD: 30, SVTAV1Preset: 6, ChunkDuration: DefaultChunkDuration}
	case PresetQuick:
		return PresetValues{QualitySD: 30, QualityHD: 32, QualityUHD: 34, SVTAV1Preset: 10, ChunkDuration: DefaultChunkDuration}
	case PresetResumable:
		return PresetValues{QualitySD: DefaultQualitySD, QualityHD: DefaultQualityHD, QualityUHD: DefaultQualityUHD, SVTAV1Preset: DefaultSVTAV1Preset, ChunkDuration: 5.0}
	default:
		return PresetValues{QualitySD: DefaultQualitySD, QualityHD: DefaultQualityHD, QualityUHD: DefaultQualityUHD, SVTAV1Preset: DefaultSVTAV1Preset, ChunkDuration: DefaultChunkDuration}
	}
}

// ApplyPreset mutates c with the grouped defaults named by p, recording
// which preset was applied. Explicit fields set afterwards by CLI flags
// still take precedence over the preset.
func (c *Config) ApplyPreset(p Preset) {
	values := GetPresetValues(p)
	c.QualitySD = values.QualitySD
	c.QualityHD = values.QualityHD
	c.QualityUHD = values.QualityUHD
	c.SVTAV1Preset = values.SVTAV1Preset
	c.ChunkDuration = values.ChunkDuration

	switch p {
	case PresetGrain:
		grain := uint8(8)
		denoise := true
		c.SVTAV1FilmGrain = &grain
		c.SVTAV1FilmGrainDenoise = &denoise
	case PresetClean:
		c.VideoDenoiseFilter = "hqdn3d=1.5:1.5:3:3"
		c.SVTAV1FilmGrain = nil
		c.SVTAV1FilmGrainDenoise = nil
	case PresetResumable:
		c.Resume = true
		c.MaxTries = DefaultMaxTries
	}
	applied := p
	c.AppliedPreset = &applied
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SVTAV1Preset > 13 {
		return fmt.Errorf("%w: svt_av1_preset must be 0-13, got %d", ErrConfigInvalid, c.SVTAV1Preset)
	}

	if c.QualitySD > 63 {
		return fmt.Errorf("%w: quality-sd must be 0-63, got %d", ErrConfigInvalid, c.QualitySD)
	}
	if c.QualityHD > 63 {
		return fmt.Errorf("%w: quality-hd must be 0-63, got %d", ErrConfigInvalid, c.QualityHD)
	}
	if c.QualityUHD > 63 {
		return fmt.Errorf("%w: quality-uhd must be 0-63, got %d", ErrConfigInvalid, c.QualityUHD)
	}

	if c.SVTAV1FilmGrain == nil && c.SVTAV1FilmGrainDenoise != nil {
		return fmt.Errorf("%w: svt_av1_film_grain_denoise set without svt_av1_film_grain", ErrConfigInvalid)
	}

	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfigInvalid, c.Workers)
	}

	if c.ChunkBuffer < 0 {
		return fmt.Errorf("%w: chunk_buffer must be non-negative, got %d", ErrConfigInvalid, c.ChunkBuffer)
	}

	if c.ChunkDuration < 1 || c.ChunkDuration > 120 {
		return fmt.Errorf("%w: chunk_duration must be between 1 and 120 seconds, got %g", ErrConfigInvalid, c.ChunkDuration)
	}

	if c.MaxTries < 1 {
		return fmt.Errorf("%w: max_tries must be at least 1, got %d", ErrConfigInvalid, c.MaxTries)
	}

	if c.SceneThreshold <= 0 || c.SceneThreshold > 1 {
		return fmt.Errorf("%w: scene_threshold must be in (0, 1], got %g", ErrConfigInvalid, c.SceneThreshold)
	}

	if c.MinSceneLen < 1 {
		return fmt.Errorf("%w: min_scene_len must be at least 1, got %d", ErrConfigInvalid, c.MinSceneLen)
	}

	for i, z := range c.Zones {
		if z.StartFrame >= z.EndFrame {
			return fmt.Errorf("%w: zone %d has non-positive length", ErrConfigInvalid, i)
		}
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir if not set.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}

// QualityForWidth returns the appropriate CRF value based on video width.
func (c *Config) QualityForWidth(width uint32) uint8 {
	if width >= UHDWidthThreshold {
		return c.QualityUHD
	}
	if width >= HDWidthThreshold {
		return c.QualityHD
	}
	return c.QualitySD
}

// ZoneAt returns the zone overriding frame f, or nil if none applies.
func (c *Config) ZoneAt(f int) *model.ZoneOptions {
	for i := range c.Zones {
		if c.Zones[i].Contains(f) {
			return &c.Zones[i]
		}
	}
	return nil
}
