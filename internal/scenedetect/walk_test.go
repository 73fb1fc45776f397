package scenedetect

import (
	"context"
	"testing"

	"github.com/five82/scenecode/internal/model"
)

func fakeAnalyzer(segments map[int]segmentResult) *Analyzer {
	return &Analyzer{
		fetch: func(_ context.Context, _ string, startFrame int, frameLimit *int, _ int) (segmentResult, error) {
			r, ok := segments[startFrame]
			if !ok {
				t := 0
				if frameLimit != nil {
					t = *frameLimit
				}
				return segmentResult{CutIndices: []int{0, t}, FrameCount: t}, nil
			}
			return r, nil
		},
	}
}

func TestDetectNoZones(t *testing.T) {
	a := fakeAnalyzer(map[int]segmentResult{
		0: {CutIndices: []int{0, 30, 70, 100}, FrameCount: 100},
	})

	scenes, err := a.Detect(context.Background(), "in.mkv", 100, 24, nil)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("expected 3 scenes, got %d", len(scenes))
	}
	if scenes[0].StartFrame != 0 || scenes[0].EndFrame != 30 {
		t.Errorf("scene 0 = %+v", scenes[0])
	}
	if scenes[2].StartFrame != 70 || scenes[2].EndFrame != 100 {
		t.Errorf("scene 2 = %+v", scenes[2])
	}
	if err := model.ValidateTiling(scenes, 100); err != nil {
		t.Errorf("ValidateTiling: %v", err)
	}
}

func TestDetectWithZone(t *testing.T) {
	zone := model.ZoneOptions{StartFrame: 40, EndFrame: 60, MinSceneLen: 10}

	a := fakeAnalyzer(map[int]segmentResult{
		0:  {CutIndices: []int{0, 40}, FrameCount: 40},
		40: {CutIndices: []int{0, 20}, FrameCount: 20},
		60: {CutIndices: []int{0, 40}, FrameCount: 40},
	})

	scenes, err := a.Detect(context.Background(), "in.mkv", 100, 24, []model.ZoneOptions{zone})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if err := model.ValidateTiling(scenes, 100); err != nil {
		t.Fatalf("ValidateTiling: %v", err)
	}

	var foundZoneScene bool
	for _, s := range scenes {
		if s.StartFrame == 40 && s.EndFrame == 60 {
			foundZoneScene = true
			if s.ZoneOverrides == nil || s.ZoneOverrides.MinSceneLen != 10 {
				t.Errorf("zone scene missing overrides: %+v", s)
			}
		}
	}
	if !foundZoneScene {
		t.Errorf("expected a scene exactly covering the zone, got %+v", scenes)
	}
}

func TestDetectFrameCountMismatch(t *testing.T) {
	a := &Analyzer{fetch: func(_ context.Context, _ string, _ int, frameLimit *int, _ int) (segmentResult, error) {
		return segmentResult{CutIndices: []int{0, 5}, FrameCount: 5}, nil
	}}

	zone := model.ZoneOptions{StartFrame: 0, EndFrame: 50}
	_, err := a.Detect(context.Background(), "in.mkv", 100, 24, []model.ZoneOptions{zone})
	if err == nil {
		t.Fatal("expected a frame count mismatch error")
	}
}
