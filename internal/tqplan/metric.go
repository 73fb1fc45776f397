package tqplan

import (
	"fmt"
	"unsafe"

	"github.com/five82/scenecode/internal/vship"
)

// scoreFrames computes a per-frame SSIMULACRA2 score for each of n frames
// in srcBuf against the matching frame in disBuf. Both buffers hold
// planar yuv420p10le at the given geometry, laid out frame by frame with
// no padding between planes or frames (ffmpeg's default rawvideo muxing).
func scoreFrames(proc *vship.Processor, srcBuf, disBuf []byte, width, height uint32, n int) ([]float64, error) {
	const pixelSize = 2
	ySize := int(width) * int(height) * pixelSize
	uvSize := ySize / 4
	frameSize := ySize + 2*uvSize

	if len(srcBuf) < frameSize*n || len(disBuf) < frameSize*n {
		return nil, fmt.Errorf("buffer too small for %d frames at %dx%d", n, width, height)
	}

	strides := [3]int64{
		int64(width) * pixelSize,
		int64(width) / 2 * pixelSize,
		int64(width) / 2 * pixelSize,
	}

	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		off := i * frameSize

		srcPlanes := [3]unsafe.Pointer{
			unsafe.Pointer(&srcBuf[off]),
			unsafe.Pointer(&srcBuf[off+ySize]),
			unsafe.Pointer(&srcBuf[off+ySize+uvSize]),
		}
		disPlanes := [3]unsafe.Pointer{
			unsafe.Pointer(&disBuf[off]),
			unsafe.Pointer(&disBuf[off+ySize]),
			unsafe.Pointer(&disBuf[off+ySize+uvSize]),
		}

		s, err := proc.ComputeSSIMULACRA2(srcPlanes, disPlanes, strides, strides)
		if err != nil {
			return nil, fmt.Errorf("failed to compute SSIMULACRA2 for frame %d: %w", i, err)
		}
		scores[i] = s
	}

	return scores, nil
}
