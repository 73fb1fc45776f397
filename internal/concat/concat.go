// Package concat joins a job's finished chunk outputs into one video
// stream and muxes that stream together with any extracted audio to
// produce the final output file.
package concat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
)

// Params carries everything a Concatenator needs to join one job's chunks.
type Params struct {
	Chunks              []model.Chunk
	TempDir             string
	FPSNum, FPSDen      uint32
	IgnoreFrameMismatch bool
}

// Concatenator joins a planned, fully-encoded chunk queue into a single
// video stream. Implementations never reorder chunks; callers are
// responsible for passing them in index order.
type Concatenator interface {
	// Concat returns the path to the joined video-only stream, written
	// under tempDir.
	Concat(ctx context.Context, p Params) (videoPath string, err error)
}

// orderedChunkPaths returns each chunk's encoded output path, sorted by
// chunk index regardless of the order p.Chunks happens to be in (the
// broker dispatches chunks out of index order per the configured
// ChunkOrdering, but concatenation always follows scene order).
func orderedChunkPaths(p Params) ([]string, error) {
	if len(p.Chunks) == 0 {
		return nil, fmt.Errorf("concat: no chunks to join")
	}
	chunks := make([]model.Chunk, len(p.Chunks))
	copy(chunks, p.Chunks)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	paths := make([]string, len(chunks))
	for i, c := range chunks {
		path := pipeline.OutputPath(c)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("concat: chunk %s output missing: %w", c.Name, err)
		}
		paths[i] = path
	}
	return paths, nil
}

func videoOutputPath(tempDir string) string {
	return filepath.Join(tempDir, "video.mkv")
}

func ivfOutputPath(tempDir string) string {
	return filepath.Join(tempDir, "video.ivf")
}
