// Package asr defines the speech-recognizer contract consumed by the ASR
// worker. A Recognizer is a monaural 16 kHz acoustic model that produces
// segmented word tokens with timings; its internal algorithm is out of
// scope — only the contract below is specified.
//
// Implementations must be deterministic given identical input and
// temperature 0, and must be safe for concurrent use only if the concrete
// type documents it — the engine invokes a single Recognizer from a single
// background worker goroutine at a time.
package asr

import "context"

// Token is a single recognized token within a [Segment]. Special tokens
// (IsEOT) are filtered out by the worker before cleaning.
type Token struct {
	// Text is the raw, uncleaned token text.
	Text string

	// ID is the recognizer's vocabulary id for this token.
	ID int

	// IsEOT marks the end-of-transcript sentinel token.
	IsEOT bool
}

// Segment is a recognizer-emitted span of audio with its token sequence.
// StartCentisec and EndCentisec are in centisecond (0.01 s) units, per the
// recognizer contract.
type Segment struct {
	StartCentisec int
	EndCentisec   int
	Tokens        []Token
}

// StartSec returns the segment start time in seconds.
func (s Segment) StartSec() float64 { return float64(s.StartCentisec) / 100 }

// EndSec returns the segment end time in seconds.
func (s Segment) EndSec() float64 { return float64(s.EndCentisec) / 100 }

// Recognizer transcribes a mono 16 kHz PCM buffer into a sequence of
// [Segment] values. Implementations should run with greedy sampling, a
// single fixed language, temperature 0, max token length 1, translation
// disabled, and timestamps enabled — the parameters the ASR worker relies on
// for deterministic, low-latency single-word timing.
type Recognizer interface {
	Recognize(ctx context.Context, pcm16kMono []float32) ([]Segment, error)

	// Close releases any resources (model handles, contexts) held by the
	// recognizer. Safe to call more than once.
	Close() error
}
