package concat

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
)

func writeTestIVF(t *testing.T, path string, frameCount int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	header := make([]byte, ivfFileHeaderSize)
	copy(header[0:4], "DKIF")
	binary.LittleEndian.PutUint16(header[4:6], 0)
	binary.LittleEndian.PutUint16(header[6:8], 32)
	copy(header[8:12], "AV01")
	binary.LittleEndian.PutUint16(header[12:14], 1920)
	binary.LittleEndian.PutUint16(header[14:16], 1080)
	binary.LittleEndian.PutUint32(header[16:20], 24000)
	binary.LittleEndian.PutUint32(header[20:24], 1001)
	binary.LittleEndian.PutUint32(header[24:28], uint32(frameCount))
	if _, err := f.Write(header); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < frameCount; i++ {
		frameHeader := make([]byte, ivfFrameHeaderSize)
		binary.LittleEndian.PutUint32(frameHeader[0:4], 4)
		binary.LittleEndian.PutUint64(frameHeader[4:12], uint64(i))
		if _, err := f.Write(frameHeader); err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte{0xde, 0xad, 0xbe, 0xef}); err != nil {
			t.Fatal(err)
		}
	}
}

func testChunks(dir string, frameCounts []int) []model.Chunk {
	chunks := make([]model.Chunk, len(frameCounts))
	for i := range frameCounts {
		chunks[i] = model.Chunk{
			Index: i, Name: model.ChunkName(i), TempDir: dir, OutputExt: ".ivf",
		}
	}
	return chunks
}

func TestIvfConcatJoinsFramesAndRenumbersTimestamps(t *testing.T) {
	dir := t.TempDir()
	chunks := testChunks(dir, []int{3, 2})
	for i, c := range chunks {
		writeTestIVF(t, pipeline.OutputPath(c), []int{3, 2}[i])
	}

	out, err := (Ivf{}).Concat(context.Background(), Params{Chunks: chunks, TempDir: dir})
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[0:4]) != "DKIF" {
		t.Fatalf("output missing DKIF magic")
	}
	gotFrames := binary.LittleEndian.Uint32(data[24:28])
	if gotFrames != 5 {
		t.Errorf("frame count = %d, want 5", gotFrames)
	}

	// Walk frame records and confirm PTS is monotonic 0..4.
	pos := ivfFileHeaderSize
	for want := 0; want < 5; want++ {
		size := binary.LittleEndian.Uint32(data[pos : pos+4])
		pts := binary.LittleEndian.Uint64(data[pos+4 : pos+12])
		if pts != uint64(want) {
			t.Errorf("frame %d: pts = %d, want %d", want, pts, want)
		}
		pos += ivfFrameHeaderSize + int(size)
	}
}

func TestOrderedChunkPathsSortsByIndexNotSliceOrder(t *testing.T) {
	dir := t.TempDir()
	chunks := testChunks(dir, []int{1, 1})
	// Reverse slice order to confirm sort-by-index, not slice position.
	reversed := []model.Chunk{chunks[1], chunks[0]}
	for _, c := range chunks {
		writeTestIVF(t, pipeline.OutputPath(c), 1)
	}

	paths, err := orderedChunkPaths(Params{Chunks: reversed, TempDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if paths[0] != pipeline.OutputPath(chunks[0]) || paths[1] != pipeline.OutputPath(chunks[1]) {
		t.Errorf("paths not sorted by index: %v", paths)
	}
}

func TestOrderedChunkPathsErrorsOnMissingOutput(t *testing.T) {
	dir := t.TempDir()
	chunks := testChunks(dir, []int{1})
	if _, err := orderedChunkPaths(Params{Chunks: chunks, TempDir: dir}); err == nil {
		t.Error("expected error for missing chunk output")
	}
}
