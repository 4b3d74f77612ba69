// Package mock provides a fake [asr.Recognizer] for tests that need
// deterministic, injectable transcription results without a real model.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
)

// Recognizer returns a scripted sequence of results, one per call to
// Recognize. If the script is exhausted, it returns the last result again.
// An optional Delay simulates ASR stall for testing the pipeline's
// tolerance to a stuck recognizer.
type Recognizer struct {
	mu      sync.Mutex
	script  [][]asr.Segment
	errs    []error
	calls   int
	closed  bool
	Delay   time.Duration
	ClosedN int
}

// New creates a Recognizer that returns results[i] on the i-th call,
// repeating the final entry once exhausted.
func New(results ...[]asr.Segment) *Recognizer {
	return &Recognizer{script: results}
}

// WithError schedules err to be returned on call index i instead of a
// scripted result. The error schedule grows as needed, so any
// non-negative i is accepted.
func (r *Recognizer) WithError(i int, err error) *Recognizer {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.errs) <= i {
		r.errs = append(r.errs, nil)
	}
	r.errs[i] = err
	return r
}

// Recognize returns the next scripted result, honoring Delay and ctx
// cancellation.
func (r *Recognizer) Recognize(ctx context.Context, _ []float32) ([]asr.Segment, error) {
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.calls
	r.calls++

	if idx < len(r.errs) && r.errs[idx] != nil {
		return nil, r.errs[idx]
	}

	if len(r.script) == 0 {
		return nil, nil
	}
	if idx >= len(r.script) {
		idx = len(r.script) - 1
	}
	return r.script[idx], nil
}

// Close records that Close was called. Safe to call more than once.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.ClosedN++
	return nil
}

// Calls returns how many times Recognize has been invoked.
func (r *Recognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
