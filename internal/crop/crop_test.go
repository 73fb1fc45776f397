package crop

import (
	"testing"

	"github.com/five82/scenecode/internal/ffprobe"
)

func TestDetect_Disabled(t *testing.T) {
	result := Detect("input.mkv", &ffprobe.VideoProperties{Width: 1920, Height: 1080}, true)
	if result.Required {
		t.Errorf("disabled detection reported Required = true")
	}
	if result.CropFilter != "" {
		t.Errorf("disabled detection returned CropFilter %q, want empty", result.CropFilter)
	}
	if result.Message != "Skipped" {
		t.Errorf("disabled detection message = %q, want %q", result.Message, "Skipped")
	}
}

func TestIsValidFormat(t *testing.T) {
	tests := []struct {
		crop string
		want bool
	}{
		{"1920:800:0:140", true},
		{"1920:800:0", false},
		{"1920:800:x:140", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isValidFormat(tt.crop); got != tt.want {
			t.Errorf("isValidFormat(%q) = %v, want %v", tt.crop, got, tt.want)
		}
	}
}

func TestIsEffective(t *testing.T) {
	if isEffective("1920:1080:0:0", 1920, 1080) {
		t.Errorf("crop matching source dimensions reported effective")
	}
	if !isEffective("1920:800:0:140", 1920, 1080) {
		t.Errorf("crop removing pixels reported ineffective")
	}
}

func TestOutputDimensions(t *testing.T) {
	tests := []struct {
		name       string
		crop       string
		wantWidth  uint32
		wantHeight uint32
	}{
		{"no crop", "", 1920, 1080},
		{"cropped", "crop=1920:800:0:140", 1920, 800},
		{"malformed falls back to source", "crop=nonsense", 1920, 1080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := OutputDimensions(1920, 1080, tt.crop)
			if w != tt.wantWidth || h != tt.wantHeight {
				t.Errorf("OutputDimensions(%q) = %dx%d, want %dx%d", tt.crop, w, h, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}
