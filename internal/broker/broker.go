// Package broker runs a planned chunk queue through a bounded pool of
// workers, retrying crashed chunks and persisting completions as they land.
package broker

import (
	"context"
	"os"
	"sync"

	"github.com/five82/scenecode/internal/doneset"
	"github.com/five82/scenecode/internal/encoder"
	coreerrors "github.com/five82/scenecode/internal/errors"
	"github.com/five82/scenecode/internal/model"
	"github.com/five82/scenecode/internal/pipeline"
)

// ChunkRunner is the subset of *pipeline.Runner the broker depends on,
// narrowed so tests can substitute a fake without spawning real processes.
type ChunkRunner interface {
	Run(ctx context.Context, chunk model.Chunk, pass int, dims pipeline.Dims, base encoder.Params, onProgress func(frames int)) error
}

// Progress is a snapshot of overall queue completion.
type Progress struct {
	ChunksComplete, ChunksTotal int
	FramesComplete, FramesTotal int
	BytesComplete               int64
}

// RetryEvent reports one failed-and-retried attempt at a chunk.
type RetryEvent struct {
	ChunkName string
	Attempt   int
	Err       error
}

// FatalChunkEvent reports a chunk that exhausted its retries, the signal
// the orchestrator uses to abort the whole run.
type FatalChunkEvent struct {
	ChunkName string
	Err       error
}

// Broker dispatches a chunk queue across Workers goroutines, FIFO, with
// per-chunk retry up to MaxTries and persistent completion tracking via Done.
type Broker struct {
	Runner           ChunkRunner
	Done             *doneset.DoneSet
	Workers          int
	MaxTries         int
	ThreadsPerWorker int
	Dims             pipeline.Dims
	Base             encoder.Params

	OnProgress func(Progress)
	OnRetry    func(RetryEvent)
	OnFatal    func(FatalChunkEvent)
}

// New returns a Broker ready to run chunks.
func New(runner ChunkRunner, done *doneset.DoneSet, workers, maxTries, threadsPerWorker int, dims pipeline.Dims, base encoder.Params) *Broker {
	return &Broker{
		Runner: runner, Done: done,
		Workers: workers, MaxTries: maxTries, ThreadsPerWorker: threadsPerWorker,
		Dims: dims, Base: base,
	}
}

// Run dispatches chunks not already in Done, in the order given (the
// planner already applied the configured ChunkOrdering). It returns the
// first fatal error, after every in-flight worker has wound down; a fatal
// error means one chunk exhausted MaxTries, which the caller should treat
// as grounds to abort the whole job.
func (b *Broker) Run(ctx context.Context, chunks []model.Chunk) error {
	totalFrames := 0
	for _, c := range chunks {
		totalFrames += c.Frames()
	}

	var progressMu sync.Mutex
	progress := Progress{
		ChunksTotal:    len(chunks),
		FramesTotal:    totalFrames,
		FramesComplete: b.Done.SumFrames(),
	}

	pending := make([]model.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if b.Done.Contains(c.Name) {
			progress.ChunksComplete++
			continue
		}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return nil
	}

	workers := b.Workers
	if workers > len(pending) {
		workers = len(pending)
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workChan := make(chan model.Chunk, len(pending))
	for _, c := range pending {
		workChan <- c
	}
	close(workChan)

	var fatalOnce sync.Once
	var fatalErr error

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			pinWorkerThread(workerID, b.ThreadsPerWorker)

			for chunk := range workChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				frames, size, err := b.runChunkWithRetries(ctx, chunk, workerID)
				if err != nil {
					fatalOnce.Do(func() {
						fatalErr = err
						if b.OnFatal != nil {
							b.OnFatal(FatalChunkEvent{ChunkName: chunk.Name, Err: err})
						}
					})
					cancel()
					return
				}

				b.Done.Insert(chunk.Name, frames, size)
				_ = b.Done.Persist()

				progressMu.Lock()
				progress.ChunksComplete++
				progress.FramesComplete += frames
				progress.BytesComplete += size
				snapshot := progress
				progressMu.Unlock()
				if b.OnProgress != nil {
					b.OnProgress(snapshot)
				}
			}
		}(i)
	}
	wg.Wait()

	return fatalErr
}

// runChunkWithRetries runs every pass of chunk, retrying the whole chunk
// (both passes, for two-pass) up to MaxTries times on any pipeline error.
func (b *Broker) runChunkWithRetries(ctx context.Context, chunk model.Chunk, workerID int) (frames int, size int64, err error) {
	maxTries := b.MaxTries
	if maxTries < 1 {
		maxTries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxTries; attempt++ {
		if runErr := b.runChunkOnce(ctx, chunk); runErr != nil {
			lastErr = runErr
			if b.OnRetry != nil {
				b.OnRetry(RetryEvent{ChunkName: chunk.Name, Attempt: attempt, Err: runErr})
			}
			continue
		}

		info, statErr := os.Stat(pipeline.OutputPath(chunk))
		if statErr != nil {
			lastErr = statErr
			continue
		}
		return chunk.Frames(), info.Size(), nil
	}
	return 0, 0, coreerrors.NewEncoderCrashError(chunk.Name, lastErr)
}

func (b *Broker) runChunkOnce(ctx context.Context, chunk model.Chunk) error {
	for pass := 1; pass <= chunk.Passes; pass++ {
		if err := b.Runner.Run(ctx, chunk, pass, b.Dims, b.Base, nil); err != nil {
			return err
		}
	}
	return nil
}
