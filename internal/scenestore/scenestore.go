// Package scenestore persists and reloads the detector's scene list, the
// same atomic write-to-temp-then-rename shape as chunks.json and
// done.json, so a resumed run replans from exactly what detection found
// rather than re-running the external analyzer.
package scenestore

import (
	"encoding/json"
	"os"

	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/model"
)

type zoneRecord struct {
	StartFrame   int      `json:"start_frame"`
	EndFrame     int      `json:"end_frame"`
	Encoder      string   `json:"encoder,omitempty"`
	Passes       int      `json:"passes,omitempty"`
	VideoParams  []string `json:"video_params,omitempty"`
	MinSceneLen  int      `json:"min_scene_len,omitempty"`
	PhotonNoise  *uint8   `json:"photon_noise,omitempty"`
	PhotonNoiseW *uint32  `json:"photon_noise_w,omitempty"`
	PhotonNoiseH *uint32  `json:"photon_noise_h,omitempty"`
	ChromaNoise  bool     `json:"chroma_noise,omitempty"`
}

type sceneRecord struct {
	StartFrame    int         `json:"start_frame"`
	EndFrame      int         `json:"end_frame"`
	ZoneOverrides *zoneRecord `json:"zone_overrides,omitempty"`
}

func toZoneRecord(z *model.ZoneOptions) *zoneRecord {
	if z == nil {
		return nil
	}
	return &zoneRecord{
		StartFrame: z.StartFrame, EndFrame: z.EndFrame,
		Encoder: z.Encoder, Passes: z.Passes, VideoParams: z.VideoParams,
		MinSceneLen: z.MinSceneLen, PhotonNoise: z.PhotonNoise,
		PhotonNoiseW: z.PhotonNoiseW, PhotonNoiseH: z.PhotonNoiseH,
		ChromaNoise: z.ChromaNoise,
	}
}

func fromZoneRecord(r *zoneRecord) *model.ZoneOptions {
	if r == nil {
		return nil
	}
	return &model.ZoneOptions{
		StartFrame: r.StartFrame, EndFrame: r.EndFrame,
		Encoder: r.Encoder, Passes: r.Passes, VideoParams: r.VideoParams,
		MinSceneLen: r.MinSceneLen, PhotonNoise: r.PhotonNoise,
		PhotonNoiseW: r.PhotonNoiseW, PhotonNoiseH: r.PhotonNoiseH,
		ChromaNoise: r.ChromaNoise,
	}
}

// Save serializes scenes to path atomically.
func Save(path string, scenes []model.Scene) error {
	records := make([]sceneRecord, len(scenes))
	for i, s := range scenes {
		records[i] = sceneRecord{
			StartFrame:    s.StartFrame,
			EndFrame:      s.EndFrame,
			ZoneOverrides: toZoneRecord(s.ZoneOverrides),
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return coreerrors.NewJSONParseError("failed to marshal scenes.json", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return coreerrors.NewIOError("failed to write scenes.json temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return coreerrors.NewIOError("failed to rename scenes.json into place", err)
	}
	return nil
}

// Load reads and deserializes scenes from path.
func Load(path string) ([]model.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.NewIOError("failed to read scenes.json", err)
	}

	var records []sceneRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, coreerrors.NewJSONParseError("failed to parse scenes.json", err)
	}

	scenes := make([]model.Scene, len(records))
	for i, r := range records {
		scenes[i] = model.Scene{
			StartFrame:    r.StartFrame,
			EndFrame:      r.EndFrame,
			ZoneOverrides: fromZoneRecord(r.ZoneOverrides),
		}
	}
	return scenes, nil
}

// Exists reports whether a scenes.json file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
