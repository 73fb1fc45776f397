package tqplan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
)

// frameSize10 returns the byte size of one yuv420p10le planar frame at the
// given geometry: two bytes per sample, chroma planes quarter-resolution.
func frameSize10(width, height uint32) int {
	ySize := int(width) * int(height) * 2
	uvSize := ySize / 4
	return ySize + 2*uvSize
}

// decodeFileToRaw decodes the first n frames of an encoded probe file to
// planar yuv420p10le, truncating or zero-padding to exactly n frames'
// worth of bytes isn't attempted; a short read is returned as an error
// since a probe that didn't produce n frames means the sample was bad.
func decodeFileToRaw(ctx context.Context, path string, n int, width, height uint32) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-an", "-sn",
		"-frames:v", strconv.Itoa(n),
		"-pix_fmt", "yuv420p10le",
		"-f", "rawvideo",
		"-",
	}
	return runFFmpegRawDecode(ctx, nil, args, n, width, height)
}

// decodePipelineToRaw decodes the first n frames a chunk's own
// source/filter stages would hand the encoder, so the reference samples
// see exactly the same crop/filter chain as the probe encodes do.
func decodePipelineToRaw(ctx context.Context, sourceCmd, filterCmd []string, n int, width, height uint32) ([]byte, error) {
	if len(sourceCmd) == 0 {
		return nil, fmt.Errorf("empty source command")
	}

	source := exec.CommandContext(ctx, sourceCmd[0], sourceCmd[1:]...)
	sourceStdout, err := source.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open source stdout pipe: %w", err)
	}

	var upstream io.Reader = sourceStdout
	var filter *exec.Cmd
	if len(filterCmd) > 0 {
		filter = exec.CommandContext(ctx, filterCmd[0], filterCmd[1:]...)
		filter.Stdin = sourceStdout
		filterStdout, ferr := filter.StdoutPipe()
		if ferr != nil {
			return nil, fmt.Errorf("failed to open filter stdout pipe: %w", ferr)
		}
		upstream = filterStdout
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-an", "-sn",
		"-frames:v", strconv.Itoa(n),
		"-pix_fmt", "yuv420p10le",
		"-f", "rawvideo",
		"-",
	}

	if err := source.Start(); err != nil {
		return nil, fmt.Errorf("failed to start source stage: %w", err)
	}
	if filter != nil {
		if err := filter.Start(); err != nil {
			return nil, fmt.Errorf("failed to start filter stage: %w", err)
		}
	}

	buf, decodeErr := runFFmpegRawDecode(ctx, upstream, args, n, width, height)

	_ = source.Wait()
	if filter != nil {
		_ = filter.Wait()
	}

	return buf, decodeErr
}

// runFFmpegRawDecode runs ffmpeg with args, feeding stdin from in (nil for
// a file-based -i), and reads exactly n frames' worth of rawvideo from
// stdout.
func runFFmpegRawDecode(ctx context.Context, in io.Reader, args []string, n int, width, height uint32) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if in != nil {
		cmd.Stdin = in
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg decode: %w", err)
	}

	want := frameSize10(width, height) * n
	buf := make([]byte, want)
	read, readErr := io.ReadFull(stdout, buf)

	waitErr := cmd.Wait()
	if waitErr != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w: %s", waitErr, stderr.String())
	}
	if readErr != nil && readErr != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read raw frames: %w", readErr)
	}
	if read < want {
		return nil, fmt.Errorf("short decode: got %d bytes, want %d (%d frames at %dx%d)", read, want, n, width, height)
	}

	return buf, nil
}
