package ffprobe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/five82/scenecode/internal/model"
)

// GetClipInfo probes the dimensions, frame rate, frame count, bit depth,
// and dynamic range of inputPath's first video stream, the shape the
// scene detector and chunk planner need to plan a clip.
func GetClipInfo(inputPath string) (model.ClipInfo, error) {
	probe, err := runFFprobe(inputPath)
	if err != nil {
		return model.ClipInfo{}, err
	}

	var videoStream *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			videoStream = &probe.Streams[i]
			break
		}
	}
	if videoStream == nil {
		return model.ClipInfo{}, fmt.Errorf("no video stream found in %s", inputPath)
	}
	if videoStream.Width <= 0 || videoStream.Height <= 0 {
		return model.ClipInfo{}, fmt.Errorf("invalid dimensions in %s: %dx%d", inputPath, videoStream.Width, videoStream.Height)
	}

	fpsNum, fpsDen := parseRational(videoStream.RFrameRate)
	if fpsDen == 0 {
		return model.ClipInfo{}, fmt.Errorf("could not parse frame rate %q in %s", videoStream.RFrameRate, inputPath)
	}

	var durationSecs float64
	if probe.Format.Duration != "" {
		durationSecs, _ = strconv.ParseFloat(probe.Format.Duration, 64)
	}

	numFrames := 0
	if videoStream.NbFrames != "" {
		if n, err := strconv.ParseUint(videoStream.NbFrames, 10, 64); err == nil {
			numFrames = int(n)
		}
	}
	if numFrames == 0 && durationSecs > 0 {
		numFrames = int(durationSecs * float64(fpsNum) / float64(fpsDen))
	}
	if numFrames == 0 {
		return model.ClipInfo{}, fmt.Errorf("could not determine frame count for %s", inputPath)
	}

	bitDepth := uint8(8)
	if videoStream.BitsPerRawSample != "" {
		if bd, err := strconv.ParseUint(videoStream.BitsPerRawSample, 10, 8); err == nil {
			bitDepth = uint8(bd)
		}
	}

	transfer := model.TransferSDR
	if detectHDR(videoStream.ColorPrimaries, videoStream.ColorTransfer, videoStream.ColorSpace) {
		transfer = model.TransferHDR
	}

	return model.ClipInfo{
		Width:     uint32(videoStream.Width),
		Height:    uint32(videoStream.Height),
		FPSNum:    fpsNum,
		FPSDen:    fpsDen,
		NumFrames: numFrames,
		BitDepth:  bitDepth,
		Transfer:  transfer,
	}, nil
}

// parseRational parses an ffprobe "num/den" rate string. It returns
// (0, 0) for an unparseable or zero-denominator string.
func parseRational(s string) (uint32, uint32) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	num, err1 := strconv.ParseUint(parts[0], 10, 32)
	den, err2 := strconv.ParseUint(parts[1], 10, 32)
	if err1 != nil || err2 != nil || den == 0 {
		return 0, 0
	}
	return uint32(num), uint32(den)
}
