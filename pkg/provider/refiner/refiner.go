// Package refiner defines the optional word-timestamp refinement pass.
// Its algorithm is left to the implementation; only the contract the ASR
// worker relies on is specified here.
package refiner

import "github.com/MrWong99/glyphoxa/pkg/types"

// Refiner nudges each word's [Start, End] boundaries toward local energy
// extrema within the analyzed chunk. chunkPCM is the full chunk at the
// engine's native sample rate (not the resampled 16 kHz buffer), so the
// refiner can work at full time resolution.
type Refiner interface {
	Refine(chunkPCM []float32, sampleRate int, words []types.WordSegment) []types.WordSegment
}
