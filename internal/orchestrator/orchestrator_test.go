package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/scenecode/internal/broker"
	"github.com/five82/scenecode/internal/chunkqueue"
	"github.com/five82/scenecode/internal/concat"
	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/encoder"
	"github.com/five82/scenecode/internal/ffprobe"
	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
	"github.com/five82/scenecode/internal/reporter"
	"github.com/five82/scenecode/internal/scenestore"
	"github.com/five82/scenecode/internal/validation"
)

const testFrameCount = 100

func testClipInfo(inputPath string) (model.ClipInfo, error) {
	return model.ClipInfo{Width: 1920, Height: 1080, FPSNum: 24000, FPSDen: 1001, NumFrames: testFrameCount, BitDepth: 8}, nil
}

func testVideoProps(inputPath string) (*ffprobe.VideoProperties, error) {
	return &ffprobe.VideoProperties{Width: 1920, Height: 1080, DurationSecs: 4.0}, nil
}

func testAudioStreams(inputPath string) ([]ffprobe.AudioStreamInfo, error) {
	return nil, nil
}

type fakeDetector struct {
	scenes []model.Scene
	calls  int
}

func (f *fakeDetector) Detect(_ context.Context, _ string, _ int, _ int, _ []model.ZoneOptions) ([]model.Scene, error) {
	f.calls++
	return f.scenes, nil
}

type fakePlanner struct {
	calls int
}

func (f *fakePlanner) Plan(cfg *config.Config, input model.Input, clip model.ClipInfo, scenes []model.Scene, tempDir string) ([]model.Chunk, error) {
	f.calls++
	chunks := make([]model.Chunk, len(scenes))
	for i, s := range scenes {
		chunks[i] = model.Chunk{
			Index: i, Name: model.ChunkName(i), TempDir: tempDir,
			OutputExt: ".ivf", StartFrame: s.StartFrame, EndFrame: s.EndFrame, Passes: 1,
		}
	}
	return chunks, nil
}

type fakeRunner struct {
	failChunk string
}

func (f *fakeRunner) Run(_ context.Context, chunk model.Chunk, _ int, _ pipeline.Dims, _ encoder.Params, _ func(int)) error {
	if chunk.Name == f.failChunk {
		return errors.New("encoder crashed")
	}
	return os.WriteFile(pipeline.OutputPath(chunk), []byte("frame"), 0644)
}

func noopConcatenator(config.ConcatMethod) concat.Concatenator { return fakeConcatenator{} }

type fakeConcatenator struct{}

func (fakeConcatenator) Concat(_ context.Context, p concat.Params) (string, error) {
	out := filepath.Join(p.TempDir, "video.mkv")
	if err := os.WriteFile(out, []byte("video"), 0644); err != nil {
		return "", err
	}
	return out, nil
}

func noopExtractAudio(_ context.Context, _, _ string, _ []ffprobe.AudioStreamInfo) error { return nil }

func testMuxFinal(_ context.Context, _, videoPath, _, outputPath string, _ []ffprobe.AudioStreamInfo) error {
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}

func testValidate(_, _ string, _ validation.Options) (*validation.Result, error) {
	return &validation.Result{
		IsAV1: true, Is10Bit: true, IsCropCorrect: true, IsDurationCorrect: true,
		IsHDRCorrect: true, IsAudioOpus: true, IsAudioTrackCountCorrect: true, IsSyncPreserved: true,
	}, nil
}

func testConfig(t *testing.T, tempDir string) *config.Config {
	t.Helper()
	cfg := config.NewConfig(tempDir, tempDir, tempDir)
	cfg.TempDir = tempDir
	cfg.Workers = 2
	cfg.MaxTries = 2
	return cfg
}

func newTestOrchestrator(detector SceneDetector, planner ChunkPlanner, runner broker.ChunkRunner) *Orchestrator {
	return &Orchestrator{
		Detector:     detector,
		Planner:      planner,
		Runner:       runner,
		Reporter:     reporter.NullReporter{},
		ClipInfo:     testClipInfo,
		VideoProps:   testVideoProps,
		AudioStreams: testAudioStreams,
		Concatenator: noopConcatenator,
		ExtractAudio: noopExtractAudio,
		MuxFinal:     testMuxFinal,
		Validate:     testValidate,
	}
}

func writeTestInput(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "input.mkv")
	if err := os.WriteFile(path, []byte("source"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFreshDetectsPlansEncodesAndConcats(t *testing.T) {
	dir := t.TempDir()
	input := writeTestInput(t, dir)
	output := filepath.Join(dir, "output.mkv")

	detector := &fakeDetector{scenes: []model.Scene{{StartFrame: 0, EndFrame: 50}, {StartFrame: 50, EndFrame: 100}}}
	planner := &fakePlanner{}
	o := newTestOrchestrator(detector, planner, &fakeRunner{})

	cfg := testConfig(t, dir)
	cfg.KeepTemp = true // keep the work directory so the persisted state can be inspected
	result, err := o.Run(context.Background(), cfg, input, output)
	if err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if detector.calls != 1 {
		t.Errorf("Detector called %d times, want 1", detector.calls)
	}
	if planner.calls != 1 {
		t.Errorf("Planner called %d times, want 1", planner.calls)
	}
	if !result.ValidationPassed {
		t.Error("ValidationPassed = false, want true")
	}
	if _, err := os.Stat(output); err != nil {
		t.Errorf("output file not written: %v", err)
	}

	stem := "input"
	tempDir := filepath.Join(cfg.GetTempDir(), stem)
	if !scenestore.Exists(filepath.Join(tempDir, "scenes.json")) {
		t.Error("scenes.json was not persisted")
	}
	if _, err := os.Stat(filepath.Join(tempDir, "chunks.json")); err != nil {
		t.Error("chunks.json was not persisted")
	}
}

func TestRunResumeSkipsDetectAndPlan(t *testing.T) {
	dir := t.TempDir()
	input := writeTestInput(t, dir)
	output := filepath.Join(dir, "output.mkv")
	cfg := testConfig(t, dir)

	stem := "input"
	tempDir := filepath.Join(cfg.GetTempDir(), stem)
	if err := os.MkdirAll(filepath.Join(tempDir, "encode"), 0755); err != nil {
		t.Fatal(err)
	}

	scenes := []model.Scene{{StartFrame: 0, EndFrame: 100}}
	if err := scenestore.Save(filepath.Join(tempDir, "scenes.json"), scenes); err != nil {
		t.Fatal(err)
	}
	chunks := []model.Chunk{{Index: 0, Name: model.ChunkName(0), TempDir: tempDir, OutputExt: ".ivf", StartFrame: 0, EndFrame: 100, Passes: 1}}
	if err := chunkqueue.Save(filepath.Join(tempDir, "chunks.json"), chunks); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, "done.json"), []byte(`{"frames":0,"audio_done":false,"done":{}}`), 0644); err != nil {
		t.Fatal(err)
	}

	detector := &fakeDetector{}
	planner := &fakePlanner{}
	o := newTestOrchestrator(detector, planner, &fakeRunner{})

	if _, err := o.Run(context.Background(), cfg, input, output); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if detector.calls != 0 {
		t.Errorf("Detector called %d times on resume, want 0", detector.calls)
	}
	if planner.calls != 0 {
		t.Errorf("Planner called %d times on resume, want 0", planner.calls)
	}
}

func TestRunFatalChunkAbortsBeforeConcat(t *testing.T) {
	dir := t.TempDir()
	input := writeTestInput(t, dir)
	output := filepath.Join(dir, "output.mkv")

	detector := &fakeDetector{scenes: []model.Scene{{StartFrame: 0, EndFrame: 50}, {StartFrame: 50, EndFrame: 100}}}
	planner := &fakePlanner{}
	o := newTestOrchestrator(detector, planner, &fakeRunner{failChunk: model.ChunkName(1)})

	cfg := testConfig(t, dir)
	cfg.MaxTries = 1
	if _, err := o.Run(context.Background(), cfg, input, output); err == nil {
		t.Fatal("Run() = nil, want error from fatal chunk")
	}
	if _, err := os.Stat(output); err == nil {
		t.Error("output file was written despite a fatal chunk failure")
	}
}
