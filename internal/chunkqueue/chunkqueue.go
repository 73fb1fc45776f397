// Package chunkqueue persists and reloads the planned chunk list so a
// resumed run sees exactly the same chunks a fresh run would have planned.
package chunkqueue

import (
	"encoding/json"
	"os"

	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/model"
)

// record is the on-disk shape of one chunks.json entry. It mirrors
// model.Chunk but is kept as its own type so the wire format is stable
// even if Chunk grows fields that shouldn't round-trip (e.g. runtime-only
// state added later).
type record struct {
	Index               int      `json:"index"`
	Name                string   `json:"name"`
	TempDir             string   `json:"temp_dir"`
	InputKind           int      `json:"input_kind"`
	InputPath           string   `json:"input_path"`
	InputScriptArgs     []string `json:"input_script_args,omitempty"`
	SourceCmd           []string `json:"source_cmd"`
	FilterCmd           []string `json:"filter_cmd,omitempty"`
	OutputExt           string   `json:"output_ext"`
	StartFrame          int      `json:"start_frame"`
	EndFrame            int      `json:"end_frame"`
	FPSNum              int      `json:"fps_num"`
	FPSDen              int      `json:"fps_den"`
	VideoParams         []string `json:"video_params"`
	Passes              int      `json:"passes"`
	Encoder             string   `json:"encoder"`
	NoiseWidth          *uint32  `json:"noise_width,omitempty"`
	NoiseHeight         *uint32  `json:"noise_height,omitempty"`
	TQCQ                *int     `json:"tq_cq,omitempty"`
	IgnoreFrameMismatch bool     `json:"ignore_frame_mismatch"`
}

func toRecord(c model.Chunk) record {
	return record{
		Index:               c.Index,
		Name:                c.Name,
		TempDir:             c.TempDir,
		InputKind:           int(c.Input.Kind),
		InputPath:           c.Input.Path,
		InputScriptArgs:     c.Input.ScriptArgs,
		SourceCmd:           c.SourceCmd,
		FilterCmd:           c.FilterCmd,
		OutputExt:           c.OutputExt,
		StartFrame:          c.StartFrame,
		EndFrame:            c.EndFrame,
		FPSNum:              c.FPSNum,
		FPSDen:              c.FPSDen,
		VideoParams:         c.VideoParams,
		Passes:              c.Passes,
		Encoder:             c.Encoder,
		NoiseWidth:          c.NoiseWidth,
		NoiseHeight:         c.NoiseHeight,
		TQCQ:                c.TQCQ,
		IgnoreFrameMismatch: c.IgnoreFrameMismatch,
	}
}

func fromRecord(r record) model.Chunk {
	return model.Chunk{
		Index:   r.Index,
		Name:    r.Name,
		TempDir: r.TempDir,
		Input: model.Input{
			Kind:       model.InputKind(r.InputKind),
			Path:       r.InputPath,
			ScriptArgs: r.InputScriptArgs,
		},
		SourceCmd:           r.SourceCmd,
		FilterCmd:           r.FilterCmd,
		OutputExt:           r.OutputExt,
		StartFrame:          r.StartFrame,
		EndFrame:            r.EndFrame,
		FPSNum:              r.FPSNum,
		FPSDen:              r.FPSDen,
		VideoParams:         r.VideoParams,
		Passes:              r.Passes,
		Encoder:             r.Encoder,
		NoiseWidth:          r.NoiseWidth,
		NoiseHeight:         r.NoiseHeight,
		TQCQ:                r.TQCQ,
		IgnoreFrameMismatch: r.IgnoreFrameMismatch,
	}
}

// Save serializes chunks to path, atomically (write-to-temp + rename).
// Two Save calls over the same planner output produce byte-identical
// files, since record field order and JSON encoding are both fixed.
func Save(path string, chunks []model.Chunk) error {
	records := make([]record, len(chunks))
	for i, c := range chunks {
		records[i] = toRecord(c)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return coreerrors.NewJSONParseError("failed to marshal chunks.json", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return coreerrors.NewIOError("failed to write chunks.json temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return coreerrors.NewIOError("failed to rename chunks.json into place", err)
	}
	return nil
}

// Load reads and deserializes chunks from path, validating that every
// chunk's temp_dir matches activeTempDir. A mismatch means the persisted
// queue was planned for a different run (e.g. the work directory moved)
// and resuming against it would silently corrupt output.
func Load(path string, activeTempDir string) ([]model.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.NewIOError("failed to read chunks.json", err)
	}

	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, coreerrors.NewJSONParseError("failed to parse chunks.json", err)
	}

	chunks := make([]model.Chunk, len(records))
	for i, r := range records {
		if r.TempDir != activeTempDir {
			return nil, coreerrors.NewResumeInconsistentError(
				"chunks.json temp_dir " + r.TempDir + " does not match active temp dir " + activeTempDir)
		}
		chunks[i] = fromRecord(r)
	}
	return chunks, nil
}
