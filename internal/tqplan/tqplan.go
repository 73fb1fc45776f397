// Package tqplan runs a pre-dispatch target-quality CRF search over a
// file's chunks. For each chunk it probe-encodes short samples at
// candidate CRF values, scores them against the source with GPU-accelerated
// SSIMULACRA2, and records the chosen value on the chunk's TQCQ field for
// the broker to pick up at real dispatch time.
package tqplan

import (
	"context"
	"fmt"

	"github.com/five82/scenecode/internal/config"
	"github.com/five82/scenecode/internal/encoder"
	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
	"github.com/five82/scenecode/internal/reporter"
	"github.com/five82/scenecode/internal/tq"
	"github.com/five82/scenecode/internal/vship"
)

// Config is the target-quality search configuration for one run, parsed
// from config.Config's passthrough fields.
type Config struct {
	TQ *tq.Config
	// MetricWorkers is reserved for running the probe/score loop for
	// several chunks concurrently; the vship handler isn't verified safe
	// for concurrent use from one process, so Plan processes chunks
	// sequentially against a single processor today.
	MetricWorkers     int
	SampleDuration    float64
	SampleMinChunk    float64
	DisableTQSampling bool
}

// New parses cfg's target-quality fields. Returns nil, nil when
// cfg.TargetQuality is unset, meaning the search is skipped entirely.
func New(cfg *config.Config) (*Config, error) {
	if cfg.TargetQuality == "" {
		return nil, nil
	}

	tqCfg, err := tq.ParseTargetRange(cfg.TargetQuality)
	if err != nil {
		return nil, fmt.Errorf("invalid target quality: %w", err)
	}

	if cfg.QPRange != "" {
		qpMin, qpMax, err := tq.ParseQPRange(cfg.QPRange)
		if err != nil {
			return nil, fmt.Errorf("invalid QP range: %w", err)
		}
		tqCfg.QPMin = qpMin
		tqCfg.QPMax = qpMax
	}

	if cfg.MetricMode != "" {
		tqCfg.MetricMode = cfg.MetricMode
	}

	return &Config{
		TQ:                tqCfg,
		MetricWorkers:     cfg.MetricWorkers,
		SampleDuration:    cfg.SampleDuration,
		SampleMinChunk:    cfg.SampleMinChunk,
		DisableTQSampling: cfg.DisableTQSampling,
	}, nil
}

// Run is the orchestrator-facing entry point: it parses cfg's
// target-quality fields, and if target quality is enabled, searches every
// chunk and returns a copy with TQCQ populated. When cfg.TargetQuality is
// unset it returns chunks unchanged, so callers can wire this in
// unconditionally.
func Run(ctx context.Context, adapter encoder.Adapter, rep reporter.Reporter, cfg *config.Config, chunks []model.Chunk, dims pipeline.Dims, base encoder.Params) ([]model.Chunk, error) {
	tqCfg, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if tqCfg == nil {
		return chunks, nil
	}
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return NewPlanner(adapter, rep).Plan(ctx, tqCfg, chunks, dims, base)
}

// Planner drives the probe-encode/score loop for one SVT-AV1 adapter.
type Planner struct {
	Adapter encoder.Adapter
	Rep     reporter.Reporter
}

// NewPlanner returns a Planner using SVT-AV1 and the given reporter for
// verbose progress lines. rep may be reporter.NullReporter{}.
func NewPlanner(adapter encoder.Adapter, rep reporter.Reporter) *Planner {
	return &Planner{Adapter: adapter, Rep: rep}
}

// Plan runs the CRF search over every chunk in order, using each
// chunk's own result to seed a prediction for the next (nearby chunks
// tend to need similar CRFs). It returns a copy of chunks with TQCQ set;
// the input slice is left untouched.
func (pl *Planner) Plan(ctx context.Context, cfg *Config, chunks []model.Chunk, dims pipeline.Dims, base encoder.Params) ([]model.Chunk, error) {
	if cfg == nil {
		return chunks, nil
	}

	if err := vship.InitDevice(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPU metrics: %w", err)
	}

	proc, err := vship.NewProcessor(dims.Width, dims.Height, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SSIMULACRA2 processor: %w", err)
	}
	defer func() { _ = proc.Close() }()

	fps := 24.0
	if dims.FPSDen > 0 {
		fps = float64(dims.FPSNum) / float64(dims.FPSDen)
	}

	tracker := tq.NewTracker()
	out := make([]model.Chunk, len(chunks))
	copy(out, chunks)

	for i := range out {
		crf, rounds, err := pl.searchChunk(ctx, cfg, &out[i], dims, base, fps, proc, tracker)
		if err != nil {
			return nil, fmt.Errorf("target-quality search failed for chunk %s: %w", out[i].Name, err)
		}
		out[i].TQCQ = &crf
		tracker.Record(out[i].Index, float64(crf))
		pl.Rep.Verbose(fmt.Sprintf("chunk %s: target-quality CRF=%d after %d round(s)", out[i].Name, crf, rounds))
	}

	return out, nil
}

// searchChunk performs the iterative CRF search for a single chunk and
// returns the chosen integer CRF and the number of probe rounds it took.
func (pl *Planner) searchChunk(
	ctx context.Context,
	cfg *Config,
	chunk *model.Chunk,
	dims pipeline.Dims,
	base encoder.Params,
	fps float64,
	proc *vship.Processor,
	tracker *tq.CRFTracker,
) (int, int, error) {
	sampleFrames := chunk.Frames()
	if !cfg.DisableTQSampling && cfg.SampleDuration > 0 {
		duration := float64(chunk.Frames()) / fps
		if duration >= cfg.SampleMinChunk {
			if n := int(cfg.SampleDuration * fps); n > 0 && n < sampleFrames {
				sampleFrames = n
			}
		}
	}

	predicted := tracker.Predict(chunk.Index, (cfg.TQ.QPMin+cfg.TQ.QPMax)/2)
	state := tq.NewState(cfg.TQ.Target, cfg.TQ.QPMin, cfg.TQ.QPMax, predicted)

	refBuf, err := decodePipelineToRaw(ctx, chunk.SourceCmd, chunk.FilterCmd, sampleFrames, dims.Width, dims.Height)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode reference samples: %w", err)
	}

	for {
		crf := tq.NextCRF(state)

		probePath, err := pl.probeEncode(ctx, *chunk, dims, base, crf, sampleFrames, state.Round)
		if err != nil {
			return 0, 0, fmt.Errorf("probe encode at CRF %g failed: %w", crf, err)
		}
		probeSize := fileSize(probePath)

		probeBuf, err := decodeFileToRaw(ctx, probePath, sampleFrames, dims.Width, dims.Height)
		removeFile(probePath)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to decode probe output: %w", err)
		}

		frameScores, err := scoreFrames(proc, refBuf, probeBuf, dims.Width, dims.Height, sampleFrames)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to score probe: %w", err)
		}
		score := aggregate(frameScores, cfg.TQ.MetricMode)
		state.AddProbe(crf, score, frameScores, probeSize)

		if tq.ShouldComplete(state, score, cfg.TQ) {
			best := state.BestProbe()
			return int(best.CRF + 0.5), state.Round, nil
		}
	}
}
