// Package whispercpp adapts the whisper.cpp Go bindings to the [asr.Recognizer]
// contract: greedy sampling, single language, temperature 0, max token
// length 1, translation disabled, timestamps enabled.
package whispercpp

import (
	"context"
	"fmt"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
)

// eotTokenID is whisper.cpp's end-of-transcript sentinel. Tokens with an id
// at or above this value are filtered out before cleaning, per the
// recognizer contract.
const eotTokenID = 50257

// Option configures a [Recognizer] during construction.
type Option func(*Recognizer)

// WithLanguage overrides the recognition language. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(r *Recognizer) { r.language = lang }
}

// Recognizer wraps a loaded whisper.cpp model. A single Recognizer must only
// be driven by one goroutine at a time — whisper.cpp contexts are not
// reentrant — which matches the ASR worker's single-threaded consumption.
type Recognizer struct {
	language string

	mu  sync.Mutex
	ctx whisperlib.Context
}

// New loads a whisper.cpp model from modelPath and returns a ready-to-use
// [Recognizer].
func New(modelPath string, opts ...Option) (*Recognizer, error) {
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whispercpp: load model %q: %w", modelPath, err)
	}

	wctx, err := model.NewContext()
	if err != nil {
		return nil, fmt.Errorf("whispercpp: create context: %w", err)
	}

	r := &Recognizer{
		language: "en",
		ctx:      wctx,
	}
	for _, o := range opts {
		o(r)
	}

	if err := r.ctx.SetLanguage(r.language); err != nil {
		return nil, fmt.Errorf("whispercpp: set language %q: %w", r.language, err)
	}
	r.ctx.SetTranslate(false)
	r.ctx.SetTokenThreshold(0)
	r.ctx.SetTemperature(0)
	r.ctx.SetMaxTokensPerSegment(1)

	return r, nil
}

// Recognize transcribes pcm16kMono with greedy sampling, temperature 0,
// max token length 1, translation disabled, timestamps enabled.
func (r *Recognizer) Recognize(ctx context.Context, pcm16kMono []float32) ([]asr.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ctx.Process(pcm16kMono, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whispercpp: process: %w", err)
	}

	var segments []asr.Segment
	for {
		select {
		case <-ctx.Done():
			return segments, ctx.Err()
		default:
		}

		seg, err := r.ctx.NextSegment()
		if err != nil {
			break // io.EOF signals no more segments
		}

		tokens := make([]asr.Token, 0, len(seg.Tokens))
		for _, tok := range seg.Tokens {
			tokens = append(tokens, asr.Token{
				Text:  tok.Text,
				ID:    tok.Id,
				IsEOT: tok.Id >= eotTokenID,
			})
		}

		segments = append(segments, asr.Segment{
			StartCentisec: int(seg.Start.Milliseconds() / 10),
			EndCentisec:   int(seg.End.Milliseconds() / 10),
			Tokens:        tokens,
		})
	}

	return segments, nil
}

// Close releases the whisper.cpp context and underlying model.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctx.Close()
}
