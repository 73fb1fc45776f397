package concat

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ivfFileHeaderSize is the fixed 32-byte IVF file header: "DKIF", version,
// header size, fourcc, width, height, timebase denominator/numerator,
// frame count, and 4 unused bytes.
const ivfFileHeaderSize = 32

// ivfFrameHeaderSize is the 12-byte per-frame header: 4-byte payload size
// followed by an 8-byte presentation timestamp.
const ivfFrameHeaderSize = 12

// Ivf joins chunks by concatenating their raw IVF frame records directly,
// skipping every chunk's own file header after the first and renumbering
// presentation timestamps so they stay monotonic across the join. Valid
// only when every chunk was produced by the same codec at the same
// resolution, which holds for chunks from one planned job.
type Ivf struct{}

func (Ivf) Concat(ctx context.Context, p Params) (string, error) {
	paths, err := orderedChunkPaths(p)
	if err != nil {
		return "", err
	}

	out := ivfOutputPath(p.TempDir)
	outFile, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("concat: failed to create %s: %w", out, err)
	}
	defer outFile.Close()

	header := make([]byte, ivfFileHeaderSize)
	var totalFrames uint32
	var pts uint64

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		in, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("concat: failed to open %s: %w", path, err)
		}

		if _, err := io.ReadFull(in, header); err != nil {
			in.Close()
			return "", fmt.Errorf("concat: failed to read IVF header from %s: %w", path, err)
		}
		if i == 0 {
			if string(header[0:4]) != "DKIF" {
				in.Close()
				return "", fmt.Errorf("concat: %s is not an IVF file", path)
			}
			if _, err := outFile.Write(header); err != nil {
				in.Close()
				return "", fmt.Errorf("concat: failed to write IVF header: %w", err)
			}
		}

		frameHeader := make([]byte, ivfFrameHeaderSize)
		for {
			if _, err := io.ReadFull(in, frameHeader); err != nil {
				if err == io.EOF || err == io.ErrUnexpectedEOF {
					break
				}
				in.Close()
				return "", fmt.Errorf("concat: failed to read frame header in %s: %w", path, err)
			}
			frameSize := binary.LittleEndian.Uint32(frameHeader[0:4])
			binary.LittleEndian.PutUint64(frameHeader[4:12], pts)

			if _, err := outFile.Write(frameHeader); err != nil {
				in.Close()
				return "", fmt.Errorf("concat: failed to write frame header: %w", err)
			}
			if _, err := io.CopyN(outFile, in, int64(frameSize)); err != nil {
				in.Close()
				return "", fmt.Errorf("concat: failed to copy frame payload in %s: %w", path, err)
			}

			pts++
			totalFrames++
		}
		in.Close()
	}

	if _, err := outFile.Seek(24, io.SeekStart); err != nil {
		return "", fmt.Errorf("concat: failed to seek to frame-count field: %w", err)
	}
	countBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBytes, totalFrames)
	if _, err := outFile.Write(countBytes); err != nil {
		return "", fmt.Errorf("concat: failed to patch frame count: %w", err)
	}

	return out, nil
}
