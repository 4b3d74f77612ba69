// Package vocalfilter defines the optional vocal-isolation prefilter
// consulted by the ASR worker before resampling. Its algorithm is left to
// the implementation; only the contract is specified here.
package vocalfilter

// Filter attenuates non-vocal content (background music, ambient noise) in
// a chunk of mono float32 PCM at the engine's native sample rate, prior to
// resampling for the recognizer. Implementations must return a slice of the
// same length as the input.
type Filter interface {
	Apply(pcm []float32) []float32
}
