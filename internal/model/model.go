// Package model defines the core data types shared across the chunked
// encoding pipeline: inputs, scenes, zones, chunks, and done-records.
package model

import "fmt"

// Input is the source of frames for a job: either a video file or a
// frame-generation script (e.g. a VapourSynth script) plus its arguments.
type Input struct {
	// Kind distinguishes Video from Script.
	Kind InputKind
	// Path is the video file or script file path.
	Path string
	// ScriptArgs is the ordered argv passed to the script runtime (Script only).
	ScriptArgs []string
	// ScriptText is the script's source text, cached so re-reads are avoidable.
	ScriptText string
}

// InputKind distinguishes the two Input variants.
type InputKind int

const (
	// InputVideo is a plain video file decoded directly.
	InputVideo InputKind = iota
	// InputScript is a frame-generation script executed by an external runtime.
	InputScript
)

// Transfer classifies dynamic range.
type Transfer int

const (
	// TransferSDR is standard dynamic range.
	TransferSDR Transfer = iota
	// TransferHDR is high dynamic range (PQ or HLG).
	TransferHDR
)

// ClipInfo describes the derived properties of an Input needed for planning.
type ClipInfo struct {
	Width       uint32
	Height      uint32
	FPSNum      uint32
	FPSDen      uint32
	NumFrames   int
	BitDepth    uint8 // 8, 10, 12...
	Transfer    Transfer
}

// FPS returns the clip's frame rate as a float64.
func (c ClipInfo) FPS() float64 {
	if c.FPSDen == 0 {
		return 0
	}
	return float64(c.FPSNum) / float64(c.FPSDen)
}

// ZoneOptions carries per-range encoding overrides. A nil *ZoneOptions means
// "use global settings".
type ZoneOptions struct {
	StartFrame       int
	EndFrame         int
	Encoder          string
	Passes           int
	VideoParams      []string
	MinSceneLen      int
	PhotonNoise      *uint8
	PhotonNoiseW     *uint32
	PhotonNoiseH     *uint32
	ChromaNoise      bool
}

// Contains reports whether frame f falls inside the zone's range.
func (z *ZoneOptions) Contains(f int) bool {
	if z == nil {
		return false
	}
	return f >= z.StartFrame && f < z.EndFrame
}

// Scene is a semantically contiguous, detector-identified frame range.
type Scene struct {
	StartFrame    int
	EndFrame      int // exclusive
	ZoneOverrides *ZoneOptions
}

// Frames returns the number of frames the scene spans.
func (s Scene) Frames() int {
	return s.EndFrame - s.StartFrame
}

// Validate checks the scene's own invariant (callers check tiling across
// the whole scene list).
func (s Scene) Validate() error {
	if s.StartFrame >= s.EndFrame {
		return fmt.Errorf("scene has non-positive length: start=%d end=%d", s.StartFrame, s.EndFrame)
	}
	return nil
}

// ValidateTiling checks that scenes tile [0, totalFrames) contiguously,
// in order, without gaps or overlaps.
func ValidateTiling(scenes []Scene, totalFrames int) error {
	if len(scenes) == 0 {
		return fmt.Errorf("scene list is empty")
	}
	if scenes[0].StartFrame != 0 {
		return fmt.Errorf("scenes do not start at frame 0: first start=%d", scenes[0].StartFrame)
	}
	for i, s := range scenes {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scene %d: %w", i, err)
		}
		if i > 0 && s.StartFrame != scenes[i-1].EndFrame {
			return fmt.Errorf("scene %d does not tile scene %d: gap or overlap (%d != %d)",
				i, i-1, s.StartFrame, scenes[i-1].EndFrame)
		}
	}
	if last := scenes[len(scenes)-1]; last.EndFrame != totalFrames {
		return fmt.Errorf("scenes do not cover total_frames: last end=%d total=%d", last.EndFrame, totalFrames)
	}
	return nil
}

// Chunk is one independently-encodable frame range, immutable after planning.
type Chunk struct {
	Index               int
	Name                string // "00001"-style, unique within TempDir
	TempDir             string
	Input               Input
	SourceCmd           []string // fully composed argv, no shell
	FilterCmd           []string // optional filter-stage argv; empty means source feeds the encoder directly
	OutputExt           string
	StartFrame          int
	EndFrame            int // exclusive
	FPSNum              int
	FPSDen              int
	VideoParams         []string
	Passes              int // 1 or 2
	Encoder             string
	NoiseWidth          *uint32
	NoiseHeight         *uint32
	TQCQ                *int // target-quality-selected quantizer, if any
	IgnoreFrameMismatch bool
}

// Frames returns the number of frames the chunk spans.
func (c Chunk) Frames() int {
	return c.EndFrame - c.StartFrame
}

// Validate checks the chunk's own invariants.
func (c Chunk) Validate() error {
	if c.Frames() < 1 {
		return fmt.Errorf("chunk %s has fewer than 1 frame", c.Name)
	}
	if c.Passes != 1 && c.Passes != 2 {
		return fmt.Errorf("chunk %s has invalid pass count %d", c.Name, c.Passes)
	}
	return nil
}

// ChunkName derives the canonical zero-padded chunk name from its index.
func ChunkName(index int) string {
	return fmt.Sprintf("%05d", index)
}
