package scenedetect

import (
	"context"
	"sort"

	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/model"
)

// Detect walks the clip [0, totalFrames), calling the analyzer once per
// zone and once per inter-zone stretch, so that a detected scene never
// crosses a zone boundary. With no zones configured this degenerates to a
// single whole-clip analyzer invocation.
//
// The walk mirrors a cursor over a sorted zone list: cur points at the zone
// (if any) covering the current position, nextIdx points at the next zone
// still ahead. Each iteration bounds the analyzer call to the current zone's
// extent, or to the gap before the next zone, or to the rest of the clip
// when no zone remains.
func (a *Analyzer) Detect(ctx context.Context, inputPath string, totalFrames int, minSceneLen int, zones []model.ZoneOptions) ([]model.Scene, error) {
	sorted := make([]model.ZoneOptions, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartFrame < sorted[j].StartFrame })

	var curZone *model.ZoneOptions
	var nextIdx *int
	if len(sorted) > 0 && sorted[0].StartFrame == 0 {
		z := sorted[0]
		curZone = &z
		if len(sorted) > 1 {
			idx := 1
			nextIdx = &idx
		}
	} else if len(sorted) > 0 {
		idx := 0
		nextIdx = &idx
	}

	var scenes []model.Scene
	framesRead := 0

	for {
		segMinSceneLen := minSceneLen
		if curZone != nil && curZone.MinSceneLen > 0 {
			segMinSceneLen = curZone.MinSceneLen
		}

		var frameLimit *int
		switch {
		case curZone != nil:
			limit := curZone.EndFrame - curZone.StartFrame
			frameLimit = &limit
		case nextIdx != nil:
			limit := sorted[*nextIdx].StartFrame - framesRead
			frameLimit = &limit
		}

		result, err := a.detectSegment(ctx, inputPath, framesRead, frameLimit, segMinSceneLen)
		if err != nil {
			return nil, err
		}
		if frameLimit != nil && result.FrameCount != *frameLimit {
			return nil, coreerrors.NewDetectorFrameCountMismatchError(*frameLimit, result.FrameCount)
		}

		var overrides *model.ZoneOptions
		if curZone != nil {
			z := *curZone
			overrides = &z
		}

		for i := 0; i+1 < len(result.CutIndices); i++ {
			scenes = append(scenes, model.Scene{
				StartFrame:    result.CutIndices[i] + framesRead,
				EndFrame:      result.CutIndices[i+1] + framesRead,
				ZoneOverrides: overrides,
			})
		}

		segmentEnd := totalFrames
		if frameLimit != nil {
			segmentEnd = framesRead + *frameLimit
		}
		lastEnd := 0
		if len(scenes) > 0 {
			lastEnd = scenes[len(scenes)-1].EndFrame
		}
		if lastEnd < segmentEnd {
			scenes = append(scenes, model.Scene{
				StartFrame:    lastEnd,
				EndFrame:      segmentEnd,
				ZoneOverrides: overrides,
			})
		}

		if frameLimit != nil {
			framesRead += *frameLimit
		}

		if nextIdx != nil {
			boundary := curZone == nil || curZone.EndFrame == sorted[*nextIdx].StartFrame
			if boundary {
				z := sorted[*nextIdx]
				curZone = &z
				if *nextIdx+1 == len(sorted) {
					nextIdx = nil
				} else {
					idx := *nextIdx + 1
					nextIdx = &idx
				}
			} else {
				curZone = nil
			}
			continue
		}

		if curZone == nil || curZone.EndFrame == totalFrames {
			break
		}
		curZone = nil
	}

	if err := model.ValidateTiling(scenes, totalFrames); err != nil {
		return nil, coreerrors.NewAnalysisError(err.Error())
	}
	return scenes, nil
}
