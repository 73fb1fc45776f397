// Package crop detects black-bar letterboxing in a source video so the
// planner's filter chain can crop it out before encoding.
package crop

import (
	"bufio"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/five82/scenecode/internal/ffprobe"
)

const (
	// detectionConcurrency caps simultaneous ffmpeg cropdetect samples.
	detectionConcurrency = 8

	// sampleStart and sampleEnd bound the sampled region to 15%-85% of the
	// video, in units of 0.5% (200 = whole duration), to avoid cold-open and
	// credits frames skewing the result.
	sampleStart   = 30
	sampleEnd     = 170
	sampleDivisor = 200.0

	thresholdSDR = 16
	thresholdHDR = 100

	// dominantRatio: a single crop value found in over this fraction of
	// samples is used outright.
	dominantRatio = 0.8

	// clearWinnerRatio/noiseThreshold: a top candidate above clearWinnerRatio
	// is still used if the runner-up is below noiseThreshold, treating the
	// runner-up as sampling noise rather than a genuine second aspect ratio.
	clearWinnerRatio = 0.6
	noiseThreshold   = 0.05

	sampleFrames = 10
	filterRound  = 2
	filterReset  = 1
)

// Candidate is one detected crop geometry and how often it appeared.
type Candidate struct {
	Crop    string
	Count   int
	Percent float64
}

// Result is the outcome of detection against one input.
type Result struct {
	CropFilter     string
	Required       bool
	MultipleRatios bool
	Message        string
	Candidates     []Candidate
	TotalSamples   int
}

var cropRegex = regexp.MustCompile(`crop=(\d+:\d+:\d+:\d+)`)

// Detect samples 141 points from 15%-85% of the input and returns the crop
// filter to apply, if any. disabled short-circuits to a no-op result without
// running ffmpeg, for config.Config.CropMode == "none".
func Detect(inputPath string, props *ffprobe.VideoProperties, disabled bool) Result {
	if disabled {
		return Result{Message: "Skipped"}
	}

	threshold := uint32(thresholdSDR)
	if props.HDRInfo.IsHDR {
		threshold = thresholdHDR
	}

	var samplePoints []float64
	for i := sampleStart; i <= sampleEnd; i++ {
		samplePoints = append(samplePoints, float64(i)/sampleDivisor)
	}
	numSamples := len(samplePoints)

	counts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, detectionConcurrency)

	for _, position := range samplePoints {
		wg.Add(1)
		go func(pos float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			startTime := props.DurationSecs * pos
			if crop := sampleAt(inputPath, startTime, threshold); crop != "" {
				mu.Lock()
				counts[crop]++
				mu.Unlock()
			}
		}(position)
	}
	wg.Wait()

	sampleMsg := fmt.Sprintf("Analyzed %d samples", numSamples)

	if len(counts) == 0 {
		return Result{Message: sampleMsg, TotalSamples: numSamples}
	}

	type entry struct {
		crop  string
		count int
	}
	var sorted []entry
	total := 0
	for crop, count := range counts {
		sorted = append(sorted, entry{crop, count})
		total += count
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })

	candidates := func() []Candidate {
		out := make([]Candidate, 0, len(sorted))
		for _, e := range sorted {
			out = append(out, Candidate{Crop: e.crop, Count: e.count, Percent: float64(e.count) / float64(total) * 100})
		}
		return out
	}

	accept := func(crop string) Result {
		if !isEffective(crop, props.Width, props.Height) {
			return Result{Message: sampleMsg, Candidates: candidates(), TotalSamples: total}
		}
		return Result{
			CropFilter:   "crop=" + crop,
			Required:     true,
			Message:      "Black bars detected",
			Candidates:   candidates(),
			TotalSamples: total,
		}
	}

	if len(counts) == 1 {
		return accept(sorted[0].crop)
	}

	top := sorted[0]
	ratio := float64(top.count) / float64(total)

	if ratio > dominantRatio {
		return accept(top.crop)
	}

	if ratio > clearWinnerRatio && len(sorted) > 1 {
		second := float64(sorted[1].count) / float64(total)
		if second < noiseThreshold {
			result := accept(top.crop)
			if result.Required {
				result.Message = "Black bars detected (clear winner with noise)"
			}
			return result
		}
	}

	return Result{
		MultipleRatios: true,
		Message:        "Multiple aspect ratios detected",
		Candidates:     candidates(),
		TotalSamples:   total,
	}
}

func sampleAt(inputPath string, startTime float64, threshold uint32) string {
	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-i", inputPath,
		"-vframes", fmt.Sprintf("%d", sampleFrames),
		"-vf", fmt.Sprintf("cropdetect=limit=%d:round=%d:reset=%d", threshold, filterRound, filterReset),
		"-f", "null",
		"-",
	)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ""
	}
	if err := cmd.Start(); err != nil {
		return ""
	}

	counts := make(map[string]int)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if matches := cropRegex.FindStringSubmatch(scanner.Text()); len(matches) >= 2 {
			if isValidFormat(matches[1]) {
				counts[matches[1]]++
			}
		}
	}
	_ = cmd.Wait()

	var best string
	bestCount := 0
	for crop, count := range counts {
		if count > bestCount {
			best, bestCount = crop, count
		}
	}
	return best
}

func isValidFormat(crop string) bool {
	parts := strings.Split(crop, ":")
	if len(parts) != 4 {
		return false
	}
	for _, part := range parts {
		if _, err := strconv.ParseUint(part, 10, 32); err != nil {
			return false
		}
	}
	return true
}

// OutputDimensions returns the frame size after applying cropFilter (as
// returned in Result.CropFilter), or width/height unchanged if cropFilter is
// empty or unparseable.
func OutputDimensions(width, height uint32, cropFilter string) (uint32, uint32) {
	if cropFilter == "" {
		return width, height
	}
	parts := strings.Split(strings.TrimPrefix(cropFilter, "crop="), ":")
	if len(parts) < 2 {
		return width, height
	}
	cropWidth, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return width, height
	}
	cropHeight, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return width, height
	}
	return uint32(cropWidth), uint32(cropHeight)
}

func isEffective(crop string, sourceWidth, sourceHeight uint32) bool {
	parts := strings.Split(crop, ":")
	if len(parts) < 2 {
		return true
	}
	width, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return true
	}
	height, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return true
	}
	return uint32(width) != sourceWidth || uint32(height) != sourceHeight
}
