package config

import (
	"errors"
	"testing"

	"github.com/five82/scenecode/internal/model"
)

func zoneWithRange(start, end int) model.ZoneOptions {
	return model.ZoneOptions{StartFrame: start, EndFrame: end}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")

	if cfg.InputDir != "/input" {
		t.Errorf("expected InputDir=/input, got %s", cfg.InputDir)
	}
	if cfg.OutputDir != "/output" {
		t.Errorf("expected OutputDir=/output, got %s", cfg.OutputDir)
	}
	if cfg.LogDir != "/log" {
		t.Errorf("expected LogDir=/log, got %s", cfg.LogDir)
	}

	if cfg.SVTAV1Preset != DefaultSVTAV1Preset {
		t.Errorf("expected SVTAV1Preset=%d, got %d", DefaultSVTAV1Preset, cfg.SVTAV1Preset)
	}
	if cfg.QualitySD != DefaultQualitySD {
		t.Errorf("expected QualitySD=%d, got %d", DefaultQualitySD, cfg.QualitySD)
	}
	if cfg.MaxTries != DefaultMaxTries {
		t.Errorf("expected MaxTries=%d, got %d", DefaultMaxTries, cfg.MaxTries)
	}
	if cfg.ChunkMethod != ChunkMethodHybrid {
		t.Errorf("expected ChunkMethod=Hybrid, got %v", cfg.ChunkMethod)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(*Config)
		wantErr      bool
		wantSentinel error
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:         "preset 14 is invalid",
			modify:       func(c *Config) { c.SVTAV1Preset = 14 },
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name:    "preset 13 is valid",
			modify:  func(c *Config) { c.SVTAV1Preset = 13 },
			wantErr: false,
		},
		{
			name:         "quality_sd 64 is invalid",
			modify:       func(c *Config) { c.QualitySD = 64 },
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name:         "quality_hd 64 is invalid",
			modify:       func(c *Config) { c.QualityHD = 64 },
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name:         "quality_uhd 64 is invalid",
			modify:       func(c *Config) { c.QualityUHD = 64 },
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name: "film_grain_denoise without film_grain is invalid",
			modify: func(c *Config) {
				b := true
				c.SVTAV1FilmGrainDenoise = &b
			},
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name: "film_grain with denoise is valid",
			modify: func(c *Config) {
				fg := uint8(6)
				b := true
				c.SVTAV1FilmGrain = &fg
				c.SVTAV1FilmGrainDenoise = &b
			},
			wantErr: false,
		},
		{
			name:         "max_tries 0 is invalid",
			modify:       func(c *Config) { c.MaxTries = 0 },
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
		{
			name: "zone with non-positive length is invalid",
			modify: func(c *Config) {
				c.Zones = append(c.Zones, zoneWithRange(100, 100))
			},
			wantErr:      true,
			wantSentinel: ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/input", "/output", "/log")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("Validate() error = %v, want sentinel %v", err, tt.wantSentinel)
			}
		})
	}
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		input        string
		want         Preset
		wantErr      bool
		wantSentinel error
	}{
		{"grain", PresetGrain, false, nil},
		{"clean", PresetClean, false, nil},
		{"quick", PresetQuick, false, nil},
		{"resumable", PresetResumable, false, nil},
		{"invalid", 0, true, ErrInvalidPreset},
		{"", 0, true, ErrInvalidPreset},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePreset(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePreset(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantSentinel != nil && !errors.Is(err, tt.wantSentinel) {
				t.Errorf("ParsePreset(%q) error = %v, want sentinel %v", tt.input, err, tt.wantSentinel)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePreset(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")

	cfg.QualitySD = 1
	cfg.SVTAV1Preset = 13

	cfg.ApplyPreset(PresetGrain)

	if cfg.AppliedPreset == nil || *cfg.AppliedPreset != PresetGrain {
		t.Error("expected AppliedPreset to be set to Grain")
	}

	grainValues := GetPresetValues(PresetGrain)
	if cfg.QualitySD != grainValues.QualitySD {
		t.Errorf("expected QualitySD=%d, got %d", grainValues.QualitySD, cfg.QualitySD)
	}
	if cfg.SVTAV1Preset != grainValues.SVTAV1Preset {
		t.Errorf("expected SVTAV1Preset=%d, got %d", grainValues.SVTAV1Preset, cfg.SVTAV1Preset)
	}
}

func TestGetPresetValues(t *testing.T) {
	quickValues := GetPresetValues(PresetQuick)
	grainValues := GetPresetValues(PresetGrain)

	if quickValues.QualitySD <= grainValues.QualitySD {
		t.Error("expected Quick preset to have higher quality value (lower visual quality) than Grain")
	}
	if quickValues.SVTAV1Preset <= grainValues.SVTAV1Preset {
		t.Error("expected Quick preset to have higher (faster) preset than Grain")
	}
}

func TestQualityForWidth(t *testing.T) {
	cfg := NewConfig("/input", "/output", "/log")
	cfg.QualitySD = 25
	cfg.QualityHD = 27
	cfg.QualityUHD = 29

	tests := []struct {
		width    uint32
		expected uint8
	}{
		{1280, 25}, // SD
		{1919, 25}, // SD (below HD threshold)
		{1920, 27}, // HD
		{2560, 27}, // HD
		{3839, 27}, // HD (below UHD threshold)
		{3840, 29}, // UHD
		{7680, 29}, // UHD (8K)
	}

	for _, tt := range tests {
		got := cfg.QualityForWidth(tt.width)
		if got != tt.expected {
			t.Errorf("QualityForWidth(%d) = %d, want %d", tt.width, got, tt.expected)
		}
	}
}

func TestParseChunkMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    ChunkMethod
		wantErr bool
	}{
		{"segment", ChunkMethodSegment, false},
		{"select", ChunkMethodSelect, false},
		{"script", ChunkMethodScript, false},
		{"hybrid", ChunkMethodHybrid, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChunkMethod(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChunkMethod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseChunkMethod(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseChunkOrdering(t *testing.T) {
	tests := []struct {
		input   string
		want    ChunkOrdering
		wantErr bool
	}{
		{"longest-first", OrderLongestFirst, false},
		{"shortest-first", OrderShortestFirst, false},
		{"sequential", OrderSequential, false},
		{"random", OrderRandom, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChunkOrdering(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseChunkOrdering(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseChunkOrdering(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseConcatMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    ConcatMethod
		wantErr bool
	}{
		{"ivf", ConcatMethodIvf, false},
		{"ffmpeg", ConcatMethodFfmpeg, false},
		{"mkvmerge", ConcatMethodMkvMerge, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseConcatMethod(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseConcatMethod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseConcatMethod(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
