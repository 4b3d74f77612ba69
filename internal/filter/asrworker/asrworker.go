// Package asrworker implements the ASR Worker: the background goroutine
// that drains completed chunks from the CaptureBuffer, resamples and
// optionally prefilters them, invokes the recognizer, synthesizes per-word
// timings, and hands the result to the Censor.
package asrworker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/glyphoxa/internal/filter/align"
	"github.com/MrWong99/glyphoxa/internal/filter/capture"
	"github.com/MrWong99/glyphoxa/internal/observe"
	"github.com/MrWong99/glyphoxa/pkg/audio"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
	"github.com/MrWong99/glyphoxa/pkg/types"
)

const (
	asrSampleRate      = 16000
	minWordDuration    = 0.05
	centisecondsPerSec = 100.0
	vadFrameMs         = 30
)

// Censor is the subset of [censor.Censor] the worker depends on.
type Censor interface {
	ProcessChunk(ctx context.Context, words []types.WordSegment, captureEndPos uint64)
}

// Worker drains chunks from a [capture.Buffer] and feeds the censor.
// Vocal isolation, timestamp refinement, and lyrics alignment are all
// optional; a nil field for any of them simply skips that step.
type Worker struct {
	buffer      *capture.Buffer
	recognizer  asr.Recognizer
	vocalFilter vocalfilter.Filter
	refiner     refiner.Refiner
	lyrics      lyrics.Source
	censor      Censor

	vadSession vad.SessionHandle

	nativeSampleRate int
	chunkSeconds     float64
	metrics          *observe.Metrics

	// LyricKey identifies the track to request from the lyrics source, if
	// any. Left empty, a static source still resolves its fixed lyric.
	LyricKey string
}

// Config holds construction parameters for a Worker.
type Config struct {
	NativeSampleRate int
	ChunkSeconds     float64
	VocalFilter      vocalfilter.Filter // optional
	Refiner          refiner.Refiner    // optional
	Lyrics           lyrics.Source      // optional
	VAD              vad.Engine         // optional

	// Metrics, if non-nil, records ASR invocation latency and errors.
	Metrics *observe.Metrics
}

// New builds a Worker over buffer, delivering results to censor via recognizer.
// If cfg.VAD is set, a session is started immediately to gate recognizer
// invocations on chunks that contain no detected speech.
func New(buffer *capture.Buffer, recognizer asr.Recognizer, censor Censor, cfg Config) *Worker {
	w := &Worker{
		buffer:           buffer,
		recognizer:       recognizer,
		vocalFilter:      cfg.VocalFilter,
		refiner:          cfg.Refiner,
		lyrics:           cfg.Lyrics,
		censor:           censor,
		nativeSampleRate: cfg.NativeSampleRate,
		chunkSeconds:     cfg.ChunkSeconds,
		metrics:          cfg.Metrics,
	}
	if cfg.VAD != nil {
		sess, err := cfg.VAD.NewSession(vad.Config{
			SampleRate:       cfg.NativeSampleRate,
			FrameSizeMs:      vadFrameMs,
			SpeechThreshold:  0.5,
			SilenceThreshold: 0.35,
		})
		if err != nil {
			slog.Warn("asr worker: vad session unavailable, recognizing every chunk", "error", err)
		} else {
			w.vadSession = sess
		}
	}
	return w
}

// Run blocks draining chunks until the buffer is closed or ctx is
// cancelled. It is the worker's only long-lived execution context.
func (w *Worker) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, w.buffer.Close)
	defer stop()
	for {
		chunk, ok := w.buffer.Wait()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.processChunk(ctx, chunk)
	}
}

func (w *Worker) processChunk(ctx context.Context, chunk capture.Chunk) {
	ctx, span := observe.StartSpan(ctx, "asrworker.processChunk")
	defer span.End()

	pcm := chunk.Samples
	if w.vocalFilter != nil {
		pcm = w.vocalFilter.Apply(pcm)
	}

	if w.vadSession != nil && !w.hasSpeech(pcm) {
		return
	}

	resampled := audio.ResampleMono32(pcm, w.nativeSampleRate, asrSampleRate)

	start := time.Now()
	segments, err := w.recognizer.Recognize(ctx, resampled)
	if w.metrics != nil {
		w.metrics.RecordASRDuration(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if w.metrics != nil {
			w.metrics.RecordProviderError(ctx, "asr", "recognize")
		}
		span.RecordError(err)
		slog.Warn("asr worker: recognize failed, chunk dropped", "error", err)
		return
	}
	if len(segments) == 0 {
		return
	}

	words := synthesizeWords(segments, w.chunkSeconds)
	if len(words) == 0 {
		return
	}

	if w.refiner != nil {
		words = w.refiner.Refine(pcm, w.nativeSampleRate, words)
	}

	if w.lyrics != nil {
		words = w.alignToLyrics(ctx, words)
	}

	w.censor.ProcessChunk(ctx, words, chunk.CaptureEndPos)
}

// hasSpeech runs the VAD session over pcm in fixed-size frames and reports
// whether any frame was classified as speech. On a VAD error it treats the
// chunk as speech so recognition never silently drops audio.
func (w *Worker) hasSpeech(pcm []float32) bool {
	frameLen := w.nativeSampleRate * vadFrameMs / 1000
	if frameLen <= 0 {
		return true
	}
	for i := 0; i+frameLen <= len(pcm); i += frameLen {
		frame := audio.Float32ToPCMInt16Bytes(pcm[i : i+frameLen])
		event, err := w.vadSession.ProcessFrame(frame)
		if err != nil {
			slog.Warn("asr worker: vad frame error, treating chunk as speech", "error", err)
			return true
		}
		if event.Type != vad.VADSilence {
			return true
		}
	}
	return false
}

// Close releases the VAD session, if one was started. Safe to call when no
// VAD engine was configured.
func (w *Worker) Close() error {
	if w.vadSession != nil {
		return w.vadSession.Close()
	}
	return nil
}

// alignToLyrics looks up the reference lyric and corrects words against it.
// On any lookup failure it degrades gracefully by returning words unchanged.
func (w *Worker) alignToLyrics(ctx context.Context, words []types.WordSegment) []types.WordSegment {
	lines, err := w.lyrics.Lookup(ctx, w.LyricKey)
	if err != nil || len(lines) == 0 {
		return words
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	return align.Align(words, strings.Join(texts, " "))
}

// synthesizeWords cleans each token's text and distributes the cleaned
// words of each segment uniformly across its [t0, t1] interval.
func synthesizeWords(segments []asr.Segment, chunkSeconds float64) []types.WordSegment {
	var words []types.WordSegment
	for _, seg := range segments {
		var cleaned []string
		for _, tok := range seg.Tokens {
			if tok.IsEOT {
				continue
			}
			text := asr.CleanToken(tok.Text)
			if text == "" {
				continue
			}
			cleaned = append(cleaned, text)
		}
		if len(cleaned) == 0 {
			continue
		}

		t0 := float64(seg.StartCentisec) / centisecondsPerSec
		t1 := float64(seg.EndCentisec) / centisecondsPerSec
		wordDuration := (t1 - t0) / float64(len(cleaned))

		for i, text := range cleaned {
			start := t0 + float64(i)*wordDuration
			end := start + wordDuration
			start = clamp(start, 0, chunkSeconds)
			end = clamp(end, 0, chunkSeconds)
			if end < start+minWordDuration {
				end = start + minWordDuration
			}
			words = append(words, types.WordSegment{
				Text:       text,
				StartSec:   start,
				EndSec:     end,
				Confidence: 1.0,
			})
		}
	}
	return words
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
