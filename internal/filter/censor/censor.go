// Package censor implements the Censor component: it scans a chunk's
// recognized words for profanity hits, pads and converts each hit to an
// absolute delay-line frame range, and dispatches the patch.
package censor

import (
	"context"
	"sync/atomic"

	"github.com/MrWong99/glyphoxa/internal/filter/delayline"
	"github.com/MrWong99/glyphoxa/internal/filter/profanity"
	"github.com/MrWong99/glyphoxa/internal/observe"
	"github.com/MrWong99/glyphoxa/pkg/types"
)

const (
	preRollSeconds  = 0.4
	postRollSeconds = 0.1
)

// Matcher is the subset of [profanity.Matcher] the Censor depends on,
// narrowed to an interface so tests can substitute a fake lexicon.
type Matcher interface {
	Contains(normalizedWord string) bool
}

// Patcher is the subset of [delayline.DelayLine] the Censor depends on.
type Patcher interface {
	Patch(startAbs, endAbs uint64, mode delayline.Mode) (leaked uint64, err error)
}

// Gate is the subset of the playback gate the Censor consults to decide
// whether a hit must be skipped per §4.5 step 5.
type Gate interface {
	BufferUnderrun() bool
}

// Stats is a point-in-time snapshot of the counters §7 and §4.5 call for.
type Stats struct {
	Hits         int64
	Patched      int64
	Skipped      int64 // BufferUnderrun at patch time
	LeakedFrames uint64
}

// Censor wires a profanity matcher, a delay-line patcher, and a playback
// gate together to implement §4.5. Its counters are updated from the ASR
// worker goroutine and read from observability/test goroutines, so they are
// atomic rather than guarded by a lock.
type Censor struct {
	matcher    Matcher
	patcher    Patcher
	gate       Gate
	sampleRate float64
	chunkK     uint64
	mode       delayline.Mode
	metrics    *observe.Metrics

	hits         atomic.Int64
	patched      atomic.Int64
	skipped      atomic.Int64
	leakedFrames atomic.Uint64
}

// Config holds construction parameters for a Censor.
type Config struct {
	SampleRate float64
	ChunkK     uint64
	Mode       delayline.Mode

	// Metrics, if non-nil, records censor patch/leak/skip counters.
	Metrics *observe.Metrics
}

// New builds a Censor.
func New(matcher Matcher, patcher Patcher, gate Gate, cfg Config) *Censor {
	return &Censor{
		matcher:    matcher,
		patcher:    patcher,
		gate:       gate,
		sampleRate: cfg.SampleRate,
		chunkK:     cfg.ChunkK,
		mode:       cfg.Mode,
		metrics:    cfg.Metrics,
	}
}

// hit is an internal detection result before padding/conversion.
type hit struct {
	startSec float64
	endSec   float64
}

// ProcessChunk scans words (already cleaned, timed, and possibly
// lyric-aligned) for profanity and patches the delay line for each hit, in
// order, per §4.5. ctx is used only to tag metric recordings.
func (c *Censor) ProcessChunk(ctx context.Context, words []types.WordSegment, captureEndPos uint64) {
	chunkStartAbs := captureEndPos - c.chunkK

	hits := c.detect(words)
	c.hits.Add(int64(len(hits)))

	for _, h := range hits {
		startSec := h.startSec - preRollSeconds
		endSec := h.endSec + postRollSeconds
		if startSec < 0 {
			startSec = 0
		}
		chunkSeconds := float64(c.chunkK) / c.sampleRate
		if endSec > chunkSeconds {
			endSec = chunkSeconds
		}

		sOffset := uint64(startSec * c.sampleRate)
		eOffset := uint64(endSec * c.sampleRate)
		if eOffset > c.chunkK {
			eOffset = c.chunkK
		}
		if eOffset <= sOffset {
			continue
		}

		startAbs := chunkStartAbs + sOffset
		endAbs := chunkStartAbs + eOffset

		if c.gate != nil && c.gate.BufferUnderrun() {
			c.skipped.Add(1)
			if c.metrics != nil {
				c.metrics.RecordSkippedHit(ctx)
			}
			continue
		}

		leaked, err := c.patcher.Patch(startAbs, endAbs, c.mode)
		if err != nil {
			continue
		}
		c.patched.Add(1)
		c.leakedFrames.Add(leaked)
		if c.metrics != nil {
			c.metrics.RecordCensorPatch(ctx, c.mode.String())
			c.metrics.RecordLeakedFrames(ctx, int64(leaked))
		}
	}
}

// Snapshot returns a point-in-time copy of the censor's counters. Safe to
// call concurrently with ProcessChunk.
func (c *Censor) Snapshot() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Patched:      c.patched.Load(),
		Skipped:      c.skipped.Load(),
		LeakedFrames: c.leakedFrames.Load(),
	}
}

// detect implements the §4.5 step 2 sequence scan: exact match first,
// bigram lookahead second, advancing the index accordingly so a matched
// bigram's first word is never also counted as a single-word hit.
func (c *Censor) detect(words []types.WordSegment) []hit {
	var hits []hit
	n := len(words)
	for i := 0; i < n; {
		wNorm := profanity.Normalize(words[i].Text)
		if c.matcher.Contains(wNorm) {
			hits = append(hits, hit{startSec: words[i].StartSec, endSec: words[i].EndSec})
			i++
			continue
		}
		if i+1 < n {
			bigram := profanity.Normalize(words[i].Text + words[i+1].Text)
			if c.matcher.Contains(bigram) {
				hits = append(hits, hit{startSec: words[i].StartSec, endSec: words[i+1].EndSec})
				i += 2
				continue
			}
		}
		i++
	}
	return hits
}
