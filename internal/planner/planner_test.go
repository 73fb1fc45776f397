package planner

import (
	"strings"
	"testing"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/model"
)

func sampleScenes() []model.Scene {
	return []model.Scene{
		{StartFrame: 0, EndFrame: 50},
		{StartFrame: 50, EndFrame: 300},
		{StartFrame: 300, EndFrame: 320},
	}
}

func sampleClip() model.ClipInfo {
	return model.ClipInfo{Width: 1920, Height: 1080, FPSNum: 24000, FPSDen: 1001, NumFrames: 320, BitDepth: 8}
}

func TestPlanSelectProducesOneChunkPerScene(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodSelect
	cfg.ChunkOrdering = config.OrderSequential

	p := New(nil, nil, nil)
	chunks, err := p.Plan(cfg, model.Input{Kind: model.InputVideo, Path: "/movies/in.mkv"}, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	for i, c := range chunks {
		if c.Name != chunkName(i) {
			t.Errorf("chunk %d name = %q", i, c.Name)
		}
		joined := strings.Join(c.SourceCmd, " ")
		if !strings.Contains(joined, "select=between") {
			t.Errorf("chunk %d source_cmd missing select filter: %v", i, c.SourceCmd)
		}
		if len(c.FilterCmd) != 0 {
			t.Errorf("chunk %d has a filter stage, want none for select strategy", i)
		}
	}
}

func TestPlanScriptAddsFilterStageWhenDenoiseConfigured(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodScript
	cfg.ChunkOrdering = config.OrderSequential
	cfg.VideoDenoiseFilter = "hqdn3d=1.5:1.5:3:3"

	p := New(nil, nil, nil)
	input := model.Input{Kind: model.InputScript, Path: "/movies/in.vpy", ScriptArgs: []string{"-a", "val"}}
	chunks, err := p.Plan(cfg, input, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	for _, c := range chunks {
		if c.SourceCmd[0] != "vspipe" {
			t.Errorf("source_cmd[0] = %q, want vspipe", c.SourceCmd[0])
		}
		if len(c.FilterCmd) == 0 {
			t.Error("expected a filter stage when VideoDenoiseFilter is set")
		}
		if !strings.Contains(strings.Join(c.FilterCmd, " "), "hqdn3d") {
			t.Errorf("filter_cmd missing denoise filter: %v", c.FilterCmd)
		}
	}
}

func TestPlanScriptSkipsFilterStageWhenNoFiltersConfigured(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodScript
	cfg.ChunkOrdering = config.OrderSequential

	p := New(nil, nil, nil)
	input := model.Input{Kind: model.InputScript, Path: "/movies/in.vpy"}
	chunks, err := p.Plan(cfg, input, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	for _, c := range chunks {
		if len(c.FilterCmd) != 0 {
			t.Errorf("expected no filter stage, got %v", c.FilterCmd)
		}
	}
}

func TestPlanScriptAddsFilterStageForHighBitDepthEvenWithoutFilters(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodScript
	cfg.ChunkOrdering = config.OrderSequential

	clip := sampleClip()
	clip.BitDepth = 10

	p := New(nil, nil, nil)
	input := model.Input{Kind: model.InputScript, Path: "/movies/in.vpy"}
	chunks, err := p.Plan(cfg, input, clip, sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	for _, c := range chunks {
		if len(c.FilterCmd) == 0 {
			t.Fatal("expected a conversion stage for a 10-bit clip even with no filters configured")
		}
		joined := strings.Join(c.FilterCmd, " ")
		if strings.Contains(joined, "-vf") {
			t.Errorf("filter_cmd should have no -vf when no filters are configured: %v", c.FilterCmd)
		}
		if !strings.Contains(joined, "yuv420p10le") {
			t.Errorf("filter_cmd missing 10-bit pix_fmt conversion: %v", c.FilterCmd)
		}
	}
}

type fakeKeyframes struct {
	frames []int
	err    error
}

func (f fakeKeyframes) Keyframes(string) ([]int, error) { return f.frames, f.err }

type fakeSegmenter struct {
	files []string
	err   error
}

func (f fakeSegmenter) Segment(string, string, []int) ([]string, error) { return f.files, f.err }

func TestPlanHybridFallsBackToSelectWhenNotKeyframeAligned(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodHybrid
	cfg.ChunkOrdering = config.OrderSequential

	var warnings []string
	p := New(fakeKeyframes{frames: []int{0, 300}}, fakeSegmenter{}, func(msg string) { warnings = append(warnings, msg) })

	chunks, err := p.Plan(cfg, model.Input{Kind: model.InputVideo, Path: "/movies/in.mkv"}, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a fallback warning")
	}
	for _, c := range chunks {
		if !strings.Contains(strings.Join(c.SourceCmd, " "), "select=between") {
			t.Errorf("expected select-strategy chunk after fallback, got %v", c.SourceCmd)
		}
	}
}

func TestPlanHybridUsesSegmentWhenKeyframeAligned(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodHybrid
	cfg.ChunkOrdering = config.OrderSequential

	segmenter := fakeSegmenter{files: []string{"/tmp/work/split/00000.mkv", "/tmp/work/split/00001.mkv", "/tmp/work/split/00002.mkv"}}
	p := New(fakeKeyframes{frames: []int{0, 50, 300}}, segmenter, nil)

	chunks, err := p.Plan(cfg, model.Input{Kind: model.InputVideo, Path: "/movies/in.mkv"}, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	for i, c := range chunks {
		if c.Input.Path != segmenter.files[i] {
			t.Errorf("chunk %d input path = %q, want %q", i, c.Input.Path, segmenter.files[i])
		}
	}
}

func TestOrderLongestFirst(t *testing.T) {
	cfg := config.NewConfig("in", "out", "log")
	cfg.ChunkMethod = config.ChunkMethodSelect
	cfg.ChunkOrdering = config.OrderLongestFirst

	p := New(nil, nil, nil)
	chunks, err := p.Plan(cfg, model.Input{Kind: model.InputVideo, Path: "/movies/in.mkv"}, sampleClip(), sampleScenes(), "/tmp/work")
	if err != nil {
		t.Fatalf("Plan() = %v", err)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Frames() > chunks[i-1].Frames() {
			t.Fatalf("chunks not sorted longest-first: %d frames after %d", chunks[i].Frames(), chunks[i-1].Frames())
		}
	}
}

func TestOrderRandomIsDeterministicForSameSeed(t *testing.T) {
	scenesA := sampleScenes()
	chunksA := make([]model.Chunk, len(scenesA))
	for i, s := range scenesA {
		chunksA[i] = model.Chunk{Index: i, Name: chunkName(i), StartFrame: s.StartFrame, EndFrame: s.EndFrame}
	}
	chunksB := make([]model.Chunk, len(chunksA))
	copy(chunksB, chunksA)

	order(chunksA, config.OrderRandom, 42, "/movies/in.mkv")
	order(chunksB, config.OrderRandom, 42, "/movies/in.mkv")

	for i := range chunksA {
		if chunksA[i].Name != chunksB[i].Name {
			t.Fatalf("same seed produced different orders at index %d: %s vs %s", i, chunksA[i].Name, chunksB[i].Name)
		}
	}
}
