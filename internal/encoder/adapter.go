// Package encoder adapts chunk encode parameters into concrete encoder
// subprocess invocations. Argv composition is delegated here so the
// pipeline runner stays encoder-agnostic.
package encoder

import "os/exec"

// Params carries the per-chunk settings an Adapter needs to compose argv.
type Params struct {
	Width, Height uint32
	FPSNum, FPSDen uint32
	Frames        int
	CRF           float32
	Preset        uint8
	Tune          uint8
	ACBias        float32
	EnableVarianceBoost   bool
	VarianceBoostStrength uint8
	VarianceOctile        uint8
	Is10Bit       bool
	Threads       uint32 // 0 means unset
	OutputPath    string
	StatsPath     string // first-pass stats file, two-pass only
}

// Adapter composes the encoder subprocess for each pass arity the pipeline
// runner needs, plus the progress-line parser for that encoder's stderr
// format. Implementations read raw/y4m frames from stdin.
type Adapter interface {
	// BinaryName is the executable looked up on PATH.
	BinaryName() string
	// OnePass composes the command for a single-pass encode.
	OnePass(p Params) *exec.Cmd
	// FirstOfTwo composes the command for pass 1 of a two-pass encode.
	FirstOfTwo(p Params) *exec.Cmd
	// SecondOfTwo composes the command for pass 2 of a two-pass encode.
	SecondOfTwo(p Params) *exec.Cmd
	// WithCQ overrides CRF/quantizer on an already-composed Params, for use
	// when target-quality search has chosen a per-chunk value.
	WithCQ(p Params, cq int) Params
	// ParseEncodedFrames extracts the current monotonic frame counter from
	// one carriage-return-delimited stderr record, for the given pass.
	// ok is false when the record carries no progress information.
	ParseEncodedFrames(record string, pass int) (frames int, ok bool)
}
