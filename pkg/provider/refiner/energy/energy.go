// Package energy implements a timestamp refiner that snaps word boundaries
// to local RMS-energy minima, mitigating the uniform per-word timing
// approximation a recognizer otherwise produces.
package energy

import (
	"math"

	"github.com/MrWong99/glyphoxa/pkg/types"
)

// Refiner searches a window of SearchRadiusSec around each word boundary for
// the lowest-energy frame and snaps the boundary there.
type Refiner struct {
	SearchRadiusSec float64
	WindowFrames    int
}

// New returns a Refiner with production defaults: a 60 ms search radius and
// 64-frame RMS windows.
func New() *Refiner {
	return &Refiner{SearchRadiusSec: 0.06, WindowFrames: 64}
}

// Refine snaps each word's Start/End toward the nearest local energy
// minimum within the configured search radius, clamping to the chunk
// bounds and never inverting a word's span.
func (r *Refiner) Refine(chunkPCM []float32, sampleRate int, words []types.WordSegment) []types.WordSegment {
	if len(chunkPCM) == 0 || sampleRate <= 0 {
		return words
	}

	radius := r.SearchRadiusSec
	if radius <= 0 {
		radius = 0.06
	}
	window := r.WindowFrames
	if window <= 0 {
		window = 64
	}

	chunkSec := float64(len(chunkPCM)) / float64(sampleRate)
	out := make([]types.WordSegment, len(words))
	for i, w := range words {
		start := r.snap(chunkPCM, sampleRate, w.StartSec, radius, window)
		end := r.snap(chunkPCM, sampleRate, w.EndSec, radius, window)

		start = math.Max(0, math.Min(start, chunkSec))
		end = math.Max(0, math.Min(end, chunkSec))
		if end < start+0.05 {
			end = start + 0.05
		}

		out[i] = types.WordSegment{
			Text:       w.Text,
			StartSec:   start,
			EndSec:     end,
			Confidence: w.Confidence,
		}
	}
	return out
}

// snap searches [targetSec-radius, targetSec+radius] for the window with the
// lowest RMS energy and returns its center time in seconds.
func (r *Refiner) snap(pcm []float32, sampleRate int, targetSec, radius float64, window int) float64 {
	center := int(targetSec * float64(sampleRate))
	lo := center - int(radius*float64(sampleRate))
	hi := center + int(radius*float64(sampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(pcm) {
		hi = len(pcm)
	}
	if hi <= lo {
		return targetSec
	}

	bestStart := center
	bestRMS := math.Inf(1)
	for s := lo; s+window <= hi; s++ {
		var sumSq float64
		for _, v := range pcm[s : s+window] {
			sumSq += float64(v) * float64(v)
		}
		rms := math.Sqrt(sumSq / float64(window))
		if rms < bestRMS {
			bestRMS = rms
			bestStart = s
		}
	}

	return (float64(bestStart) + float64(window)/2) / float64(sampleRate)
}
