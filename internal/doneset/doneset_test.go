package doneset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInsertContainsSumFrames(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "done.json"))

	if ds.Contains("00000") {
		t.Fatal("expected empty DoneSet to not contain 00000")
	}

	ds.Insert("00000", 40, 1024)
	ds.Insert("00001", 60, 2048)

	if !ds.Contains("00000") || !ds.Contains("00001") {
		t.Fatal("expected both chunks to be recorded")
	}
	if ds.Len() != 2 {
		t.Fatalf("expected Len()=2, got %d", ds.Len())
	}
	if ds.SumFrames() != 100 {
		t.Fatalf("expected SumFrames()=100, got %d", ds.SumFrames())
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	ds := New(filepath.Join(t.TempDir(), "done.json"))
	ds.Insert("00000", 40, 1024)
	ds.Insert("00000", 999, 999) // duplicate insert must not double-count

	if ds.SumFrames() != 40 {
		t.Fatalf("expected SumFrames()=40 after duplicate insert, got %d", ds.SumFrames())
	}
}

func TestPersistAndLoad(t *testing.T) {
	dir := t.TempDir()
	donePath := filepath.Join(dir, "done.json")
	encodeDir := filepath.Join(dir, "encode")
	if err := os.MkdirAll(encodeDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(encodeDir, "00000.ivf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ds := New(donePath)
	ds.Insert("00000", 40, 1024)
	ds.MarkAudioDone()
	if err := ds.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := Load(donePath, encodeDir, func(string) string { return ".ivf" })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reloaded.Contains("00000") {
		t.Fatal("expected reloaded DoneSet to contain 00000")
	}
	if !reloaded.AudioDone() {
		t.Fatal("expected reloaded DoneSet to have audio_done=true")
	}
	if reloaded.SumFrames() != 40 {
		t.Fatalf("expected SumFrames()=40, got %d", reloaded.SumFrames())
	}
}

func TestLoadEvictsStaleEntries(t *testing.T) {
	dir := t.TempDir()
	donePath := filepath.Join(dir, "done.json")
	encodeDir := filepath.Join(dir, "encode")
	if err := os.MkdirAll(encodeDir, 0755); err != nil {
		t.Fatal(err)
	}

	ds := New(donePath)
	ds.Insert("00000", 40, 1024) // no corresponding encode/00000.ivf on disk
	if err := ds.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := Load(donePath, encodeDir, func(string) string { return ".ivf" })
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Contains("00000") {
		t.Fatal("expected stale entry with missing output to be evicted")
	}
	if reloaded.SumFrames() != 0 {
		t.Fatalf("expected SumFrames()=0 after eviction, got %d", reloaded.SumFrames())
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	ds, err := Load(filepath.Join(dir, "done.json"), filepath.Join(dir, "encode"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 0 {
		t.Fatalf("expected empty DoneSet, got Len()=%d", ds.Len())
	}
}
