package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/five82/scenecode/internal/encoder"
	"github.com/five82/scenecode/internal/model"
)

// fakeAdapter drives /bin/sh so runner tests exercise the real pipe-wiring
// and process-lifecycle code without a real encoder binary.
type fakeAdapter struct {
	crashExit int // 0 means succeed
}

func (f *fakeAdapter) BinaryName() string { return "sh" }

func (f *fakeAdapter) OnePass(p encoder.Params) *exec.Cmd {
	script := "cat > " + shQuote(p.OutputPath)
	if f.crashExit != 0 {
		script = "cat > /dev/null; echo crashed 1>&2; exit " + itoa(f.crashExit)
	}
	return exec.Command("sh", "-c", script)
}

func (f *fakeAdapter) FirstOfTwo(p encoder.Params) *exec.Cmd  { return f.OnePass(p) }
func (f *fakeAdapter) SecondOfTwo(p encoder.Params) *exec.Cmd { return f.OnePass(p) }

func (f *fakeAdapter) WithCQ(p encoder.Params, cq int) encoder.Params {
	p.CRF = float32(cq)
	return p
}

func (f *fakeAdapter) ParseEncodedFrames(record string, _ int) (int, bool) {
	return len(record), true
}

func shQuote(s string) string { return "'" + s + "'" }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

type fakeProber struct {
	frames int
	err    error
}

func (p fakeProber) CountFrames(string) (int, error) { return p.frames, p.err }

func baseChunk(tempDir string) model.Chunk {
	return model.Chunk{
		Index:      0,
		Name:       "00000",
		TempDir:    tempDir,
		SourceCmd:  []string{"sh", "-c", "printf hello"},
		OutputExt:  ".ivf",
		StartFrame: 0,
		EndFrame:   10,
		FPSNum:     24000,
		FPSDen:     1001,
		Passes:     1,
	}
}

func TestRunSucceedsAndVerifiesFrameCount(t *testing.T) {
	dir := t.TempDir()

	adapter := &fakeAdapter{}
	runner := &Runner{Adapter: adapter, Prober: fakeProber{frames: 10}}

	chunk := baseChunk(dir)

	err := runner.Run(context.Background(), chunk, 1, Dims{Width: 1920, Height: 1080, Threads: 2},
		encoder.Params{}, nil)
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "encode", "00000.ivf")); statErr != nil {
		t.Errorf("expected output file: %v", statErr)
	}
}

func TestRunDetectsFrameMismatch(t *testing.T) {
	dir := t.TempDir()

	adapter := &fakeAdapter{}
	runner := &Runner{Adapter: adapter, Prober: fakeProber{frames: 3}}

	chunk := baseChunk(dir) // expects 10 frames, prober reports 3

	err := runner.Run(context.Background(), chunk, 1, Dims{}, encoder.Params{}, nil)
	if err == nil {
		t.Fatal("Run() = nil, want frame mismatch error")
	}
	crashErr, ok := err.(*CrashError)
	if !ok {
		t.Fatalf("err = %T, want *CrashError", err)
	}
	if crashErr.ExitStatus != 0 {
		t.Errorf("ExitStatus = %d, want 0 (process itself succeeded)", crashErr.ExitStatus)
	}
}

func TestRunIgnoresFrameMismatchWhenFlagged(t *testing.T) {
	dir := t.TempDir()

	adapter := &fakeAdapter{}
	runner := &Runner{Adapter: adapter, Prober: fakeProber{frames: 3}}

	chunk := baseChunk(dir)
	chunk.IgnoreFrameMismatch = true

	err := runner.Run(context.Background(), chunk, 1, Dims{}, encoder.Params{}, nil)
	if err != nil {
		t.Fatalf("Run() = %v, want nil when mismatch is ignored", err)
	}
}

func TestRunReportsCrashErrorWithStderr(t *testing.T) {
	dir := t.TempDir()

	adapter := &fakeAdapter{crashExit: 1}
	runner := &Runner{Adapter: adapter, Prober: fakeProber{frames: 10}}

	chunk := baseChunk(dir)

	err := runner.Run(context.Background(), chunk, 1, Dims{}, encoder.Params{}, nil)
	if err == nil {
		t.Fatal("Run() = nil, want crash error")
	}
	crashErr, ok := err.(*CrashError)
	if !ok {
		t.Fatalf("err = %T, want *CrashError", err)
	}
	if crashErr.ExitStatus != 1 {
		t.Errorf("ExitStatus = %d, want 1", crashErr.ExitStatus)
	}
	if crashErr.EncoderStderr == "" {
		t.Error("EncoderStderr is empty, want captured crash output")
	}
}

func TestRunWithFilterStage(t *testing.T) {
	dir := t.TempDir()

	adapter := &fakeAdapter{}
	runner := &Runner{Adapter: adapter, Prober: fakeProber{frames: 10}}

	chunk := baseChunk(dir)
	chunk.FilterCmd = []string{"cat"}

	err := runner.Run(context.Background(), chunk, 1, Dims{}, encoder.Params{}, nil)
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "encode", "00000.ivf")); statErr != nil {
		t.Errorf("expected output file at path: %v", statErr)
	}
}
