// Package spectral implements a lightweight vocal-isolation prefilter using
// a first-order high-pass pre-emphasis stage followed by short-window
// energy gating. It approximates the effect of isolating speech from
// low-frequency background music without pulling in a full source-separation
// model — no such dependency exists anywhere in this codebase's lineage.
package spectral

import "math"

// Filter applies pre-emphasis and energy gating to attenuate non-vocal
// content. Coeff controls the high-pass pre-emphasis strength (typical:
// 0.95); GateWindow is the number of samples per energy-gating window.
type Filter struct {
	Coeff      float64
	GateWindow int
}

// New returns a Filter with production defaults.
func New() *Filter {
	return &Filter{Coeff: 0.95, GateWindow: 256}
}

// Apply runs the pre-emphasis + gating pass over pcm and returns a new
// slice of the same length.
func (f *Filter) Apply(pcm []float32) []float32 {
	coeff := f.Coeff
	if coeff <= 0 {
		coeff = 0.95
	}
	window := f.GateWindow
	if window <= 0 {
		window = 256
	}

	out := make([]float32, len(pcm))
	var prev float32
	for i, s := range pcm {
		emph := s - float32(coeff)*prev
		prev = s
		out[i] = emph
	}

	for start := 0; start < len(out); start += window {
		end := min(start+window, len(out))
		var sumSq float64
		for _, s := range out[start:end] {
			sumSq += float64(s) * float64(s)
		}
		rms := math.Sqrt(sumSq / float64(end-start))
		gain := gateGain(rms)
		for i := start; i < end; i++ {
			out[i] = float32(float64(out[i]) * gain)
		}
	}

	return out
}

// gateGain maps window RMS energy to a suppression gain in [0.2, 1.0]:
// quiet windows (likely background-only) are attenuated, loud windows
// (likely vocal) pass through unchanged.
func gateGain(rms float64) float64 {
	const (
		floor = 0.01
		full  = 0.08
	)
	switch {
	case rms <= floor:
		return 0.2
	case rms >= full:
		return 1.0
	default:
		return 0.2 + 0.8*(rms-floor)/(full-floor)
	}
}
