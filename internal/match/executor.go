package match

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// ChunkError reports a fuzzy-scoring chunk that failed even after the
// sequential retry. It names the source-name range so the operator can
// locate the offending inputs.
type ChunkError struct {
	FirstSource string
	LastSource  string
	Err         error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("fuzzy scoring failed for sources %q..%q: %v", e.FirstSource, e.LastSource, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// scoreFuzzy fans the pending sources out across the worker pool. Each
// worker scores its own slice against the full target index and nothing
// else; per-source results are independent of the partitioning, so the
// reduce step is a plain concatenation followed by the caller's global
// sort. Changing the worker count changes wall-clock time, never output.
func (m *Matcher) scoreFuzzy(ctx context.Context, pending []pendingSource) ([]Candidate, error) {
	if len(pending) == 0 {
		return nil, nil
	}
	ctx, span := tracer.Start(ctx, "match.scoreFuzzy")
	defer span.End()

	workers := m.workerCount(len(pending))
	span.SetAttributes(
		attribute.Int("pending", len(pending)),
		attribute.Int("workers", workers),
	)

	if workers <= 1 {
		cands, err := m.scoreChunk(pending)
		if err != nil {
			return nil, err
		}
		return cands, nil
	}

	chunks := splitChunks(pending, workers)
	results := make([][]Candidate, len(chunks))
	failures := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []pendingSource) {
			defer wg.Done()
			cands, err := m.scoreChunk(chunk)
			if err != nil {
				failures[i] = err
				return
			}
			results[i] = cands
		}(i, chunk)
	}
	wg.Wait()

	// A failed chunk degrades to a sequential re-run before anything
	// escalates. Only a second failure on the same chunk is fatal.
	for i, chunk := range chunks {
		if failures[i] == nil {
			continue
		}
		cands, err := m.scoreChunk(chunk)
		if err != nil {
			return nil, &ChunkError{
				FirstSource: chunk[0].raw,
				LastSource:  chunk[len(chunk)-1].raw,
				Err:         err,
			}
		}
		results[i] = cands
	}

	var out []Candidate
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// scoreChunk scores one slice of sources sequentially. Panics from scoring
// are converted to errors so a bad input inside a worker degrades per the
// retry policy instead of killing the process.
func (m *Matcher) scoreChunk(chunk []pendingSource) (cands []Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			cands = nil
			err = fmt.Errorf("scoring panic: %v", r)
		}
	}()
	for _, p := range chunk {
		if cand, ok := m.bestFuzzy(p); ok {
			cands = append(cands, cand)
		}
	}
	return cands, nil
}

func (m *Matcher) workerCount(pending int) int {
	workers := m.cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU() - 1
		if m.cfg.MaxWorkers > 0 && workers > m.cfg.MaxWorkers {
			workers = m.cfg.MaxWorkers
		}
	}
	if workers < 1 {
		workers = 1
	}
	if workers > pending {
		workers = pending
	}
	return workers
}

func splitChunks(pending []pendingSource, n int) [][]pendingSource {
	var chunks [][]pendingSource
	size := (len(pending) + n - 1) / n
	for start := 0; start < len(pending); start += size {
		end := start + size
		if end > len(pending) {
			end = len(pending)
		}
		chunks = append(chunks, pending[start:end])
	}
	return chunks
}
