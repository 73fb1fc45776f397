package encoder

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/five82/scenecode/internal/ffmpeg"
)

// SVTAV1 composes SvtAv1EncApp invocations. Input is raw video read from
// stdin (y4m when the filter stage ran, otherwise a matching raw format);
// output is an IVF bitstream.
type SVTAV1 struct{}

// BinaryName returns the executable name.
func (SVTAV1) BinaryName() string { return "SvtAv1EncApp" }

func (s SVTAV1) baseArgs(p Params) []string {
	builder := ffmpeg.NewSvtAv1ParamsBuilder().
		WithTune(p.Tune).
		WithACBias(p.ACBias).
		WithEnableVarianceBoost(p.EnableVarianceBoost)
	if p.EnableVarianceBoost {
		builder = builder.
			WithVarianceBoostStrength(p.VarianceBoostStrength).
			WithVarianceOctile(p.VarianceOctile)
	}

	args := []string{
		"-i", "stdin",
		"--preset", fmt.Sprintf("%d", p.Preset),
		"--crf", fmt.Sprintf("%g", p.CRF),
		"--width", fmt.Sprintf("%d", p.Width),
		"--height", fmt.Sprintf("%d", p.Height),
		"--fps-num", fmt.Sprintf("%d", p.FPSNum),
		"--fps-denom", fmt.Sprintf("%d", p.FPSDen),
		"-n", fmt.Sprintf("%d", p.Frames),
		"--svtav1-params", builder.Build(),
	}
	if p.Is10Bit {
		args = append(args, "--input-depth", "10")
	} else {
		args = append(args, "--input-depth", "8")
	}
	if p.Threads > 0 {
		args = append(args, "--lp", fmt.Sprintf("%d", p.Threads))
	}
	return args
}

// OnePass composes a single-pass encode.
func (s SVTAV1) OnePass(p Params) *exec.Cmd {
	args := append(s.baseArgs(p), "-b", p.OutputPath)
	return exec.Command(s.BinaryName(), args...)
}

// FirstOfTwo composes pass 1 of a two-pass encode: stats out, bitstream discarded.
func (s SVTAV1) FirstOfTwo(p Params) *exec.Cmd {
	args := append(s.baseArgs(p), "--pass", "1", "--stats", p.StatsPath, "-b", "/dev/null")
	return exec.Command(s.BinaryName(), args...)
}

// SecondOfTwo composes pass 2 of a two-pass encode: stats in, bitstream out.
func (s SVTAV1) SecondOfTwo(p Params) *exec.Cmd {
	args := append(s.baseArgs(p), "--pass", "2", "--stats", p.StatsPath, "-b", p.OutputPath)
	return exec.Command(s.BinaryName(), args...)
}

// WithCQ overrides the CRF-equivalent quantizer on p.
func (s SVTAV1) WithCQ(p Params, cq int) Params {
	p.CRF = float32(cq)
	return p
}

var svtFrameRegex = regexp.MustCompile(`Encoding frame\s+(\d+)`)

// ParseEncodedFrames extracts the current frame count from one
// carriage-return-delimited SvtAv1EncApp stderr record.
func (s SVTAV1) ParseEncodedFrames(record string, _ int) (int, bool) {
	m := svtFrameRegex.FindStringSubmatch(record)
	if m == nil {
		return 0, false
	}
	frames, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return frames, true
}
