package concat

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/five82/scenecode/internal/ffmpeg"
	"github.com/five82/scenecode/internal/ffprobe"
)

func audioOutputPath(tempDir string) string {
	return filepath.Join(tempDir, "audio.mka")
}

// ExtractAudio transcodes every audio stream in inputPath to Opus,
// writing them into one Matroska audio-only container under tempDir so
// MuxFinal can attach it to the concatenated video later. A no-op when
// the source has no audio.
func ExtractAudio(ctx context.Context, inputPath, tempDir string, streams []ffprobe.AudioStreamInfo) error {
	if len(streams) == 0 {
		return nil
	}

	args := []string{
		"-hide_banner", "-y",
		"-i", inputPath,
		"-vn",
		"-map_metadata", "0",
	}
	for i, stream := range streams {
		bitrate := ffmpeg.CalculateAudioBitrate(stream.Channels)
		args = append(args,
			"-map", fmt.Sprintf("0:a:%d", stream.Index),
			fmt.Sprintf("-c:a:%d", i), "libopus",
			fmt.Sprintf("-b:a:%d", i), fmt.Sprintf("%dk", bitrate),
			fmt.Sprintf("-filter:a:%d", i), "aformat=channel_layouts=7.1|5.1|stereo|mono",
		)
	}
	args = append(args, audioOutputPath(tempDir))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("concat: audio extraction failed: %w\noutput: %s", err, output)
	}
	return nil
}

// MuxFinal combines the concatenated video, any extracted audio, and the
// subtitles/chapters/metadata of the original source into outputPath.
func MuxFinal(ctx context.Context, inputPath, videoPath, tempDir, outputPath string, streams []ffprobe.AudioStreamInfo) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("concat: concatenated video not found: %w", err)
	}

	args := []string{"-hide_banner", "-y", "-i", videoPath}

	hasAudio := false
	audioPath := audioOutputPath(tempDir)
	if _, err := os.Stat(audioPath); err == nil && len(streams) > 0 {
		args = append(args, "-i", audioPath)
		hasAudio = true
	}

	args = append(args, "-i", inputPath)

	subtitleInputIdx := 1
	args = append(args, "-map", "0:v:0")
	if hasAudio {
		args = append(args, "-map", "1:a?")
		subtitleInputIdx = 2
	}
	args = append(args,
		"-map", fmt.Sprintf("%d:s?", subtitleInputIdx),
		"-c", "copy",
		"-map_metadata", fmt.Sprintf("%d", subtitleInputIdx),
		"-map_chapters", fmt.Sprintf("%d", subtitleInputIdx),
		"-movflags", "+faststart",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("concat: final mux failed: %w\noutput: %s", err, output)
	}
	return nil
}
