package pipeline

import "github.com/five82/scenecode/internal/ffprobe"

// FrameCountProber verifies an encoded chunk's actual frame count, the
// post-encode check PipelineRunner runs after the final pass succeeds.
type FrameCountProber interface {
	CountFrames(path string) (int, error)
}

// FFprobeCounter counts frames via ffprobe, the same tool used for
// upfront ClipInfo derivation.
type FFprobeCounter struct{}

// CountFrames returns the number of video frames ffprobe reports for path.
func (FFprobeCounter) CountFrames(path string) (int, error) {
	info, err := ffprobe.GetMediaInfo(path)
	if err != nil {
		return 0, err
	}
	return int(info.TotalFrames), nil
}
