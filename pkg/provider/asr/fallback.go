package asr

import (
	"context"
	"errors"

	"github.com/MrWong99/glyphoxa/internal/resilience"
)

// FallbackRecognizer adapts a [resilience.FallbackGroup] of [Recognizer]
// values into a single Recognizer: the primary is tried first, then each
// registered fallback in order, skipping any whose circuit breaker is open.
// Use this when a stalling or crashing primary recognizer must not stall the
// real-time audio pipeline.
type FallbackRecognizer struct {
	group   *resilience.FallbackGroup[Recognizer]
	closers []func() error
}

// NewFallbackRecognizer creates a [FallbackRecognizer] with primary as the
// first entry under primaryName. Add more with [FallbackRecognizer.AddFallback].
func NewFallbackRecognizer(primary Recognizer, primaryName string, cfg resilience.FallbackConfig) *FallbackRecognizer {
	return &FallbackRecognizer{
		group:   resilience.NewFallbackGroup(primary, primaryName, cfg),
		closers: []func() error{primary.Close},
	}
}

// AddFallback registers an additional recognizer, tried after the primary
// and any previously added fallbacks.
func (f *FallbackRecognizer) AddFallback(name string, fallback Recognizer) {
	f.group.AddFallback(name, fallback)
	f.closers = append(f.closers, fallback.Close)
}

// Recognize tries the primary recognizer, then each fallback in order,
// until one succeeds.
func (f *FallbackRecognizer) Recognize(ctx context.Context, pcm16kMono []float32) ([]Segment, error) {
	return resilience.ExecuteWithResult(f.group, func(r Recognizer) ([]Segment, error) {
		return r.Recognize(ctx, pcm16kMono)
	})
}

// Close releases every underlying recognizer, primary and fallbacks alike.
func (f *FallbackRecognizer) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Recognizer = (*FallbackRecognizer)(nil)
