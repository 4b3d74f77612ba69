// Package engine wires the DelayLine, CaptureBuffer, Playback Gate, ASR
// Worker, Censor, and Profanity Matcher into a single cooperating unit: the
// pipelined delay-and-censor engine. It is the only package that owns all
// five core components at once.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/glyphoxa/internal/filter/asrworker"
	"github.com/MrWong99/glyphoxa/internal/filter/capture"
	"github.com/MrWong99/glyphoxa/internal/filter/censor"
	"github.com/MrWong99/glyphoxa/internal/filter/delayline"
	"github.com/MrWong99/glyphoxa/internal/filter/gate"
	"github.com/MrWong99/glyphoxa/internal/filter/profanity"
	"github.com/MrWong99/glyphoxa/internal/observe"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkSeconds = 5.0
	defaultDelaySeconds = 20.0
	defaultInitialDelay = 10.0
	defaultHeadroom     = 1.0
)

// Config holds the fixed, session-lifetime parameters of an Engine.
type Config struct {
	// SampleRate is F, the native capture/playback sample rate.
	SampleRate int
	// Channels is C, the channel count (stereo audio in).
	Channels int
	// ChunkSeconds is the ASR analysis window length. Default 5.
	ChunkSeconds float64
	// DelaySeconds sizes the delay line, L = DelaySeconds * SampleRate.
	// Default 20.
	DelaySeconds float64
	// InitialDelay is the gate's warmup threshold in seconds. Default 10.
	InitialDelay float64
	// Mode selects Mute or Reverse censorship.
	Mode delayline.Mode

	// Metrics, if non-nil, records ASR, censor, delay-line, and gate
	// observability instruments for the session.
	Metrics *observe.Metrics
}

// gaugeSampleInterval is how often Run samples the delay-line fill and gate
// state gauges, when metrics are configured.
const gaugeSampleInterval = 2 * time.Second

func (c *Config) applyDefaults() {
	if c.ChunkSeconds <= 0 {
		c.ChunkSeconds = defaultChunkSeconds
	}
	if c.DelaySeconds <= 0 {
		c.DelaySeconds = defaultDelaySeconds
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = defaultInitialDelay
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
}

// Option configures optional collaborators on an Engine at construction.
type Option func(*Engine)

// WithVocalFilter installs the optional vocal-isolation prefilter (§4.4
// step 3).
func WithVocalFilter(f vocalfilter.Filter) Option {
	return func(e *Engine) { e.vocalFilter = f }
}

// WithRefiner installs the optional timestamp refiner (§4.4 step 8).
func WithRefiner(r refiner.Refiner) Option {
	return func(e *Engine) { e.refiner = r }
}

// WithLyrics installs the optional lyrics source and the key used to look
// up the currently playing track's reference lyric (§4.6).
func WithLyrics(src lyrics.Source, key string) Option {
	return func(e *Engine) {
		e.lyrics = src
		e.lyricKey = key
	}
}

// WithVAD installs an optional voice-activity detector that gates ASR
// invocations: chunks with no detected speech never reach the recognizer.
func WithVAD(engine vad.Engine) Option {
	return func(e *Engine) { e.vad = engine }
}

// Engine is the pipelined delay-and-censor engine. Construct with [New];
// drive it by calling [Engine.WriteInput] once per input frame and
// [Engine.ReadOutput] once per output frame from the audio callback, and
// call [Engine.Run] once to start the ASR worker.
type Engine struct {
	delay   *delayline.DelayLine
	gate    *gate.Gate
	capture *capture.Buffer
	worker  *asrworker.Worker
	censor  *censor.Censor

	channels   int
	sampleRate int
	chunkK     int

	vocalFilter vocalfilter.Filter
	refiner     refiner.Refiner
	lyrics      lyrics.Source
	lyricKey    string
	vad         vad.Engine
	metrics     *observe.Metrics

	mu       sync.Mutex
	eg       *errgroup.Group
	cancel   context.CancelFunc
	stopOnce sync.Once
	closers  []func() error
}

// New constructs an Engine. recognizer and matcher are required
// collaborators; the remaining auxiliary collaborators are supplied via
// [Option].
func New(cfg Config, recognizer asr.Recognizer, matcher *profanity.Matcher, opts ...Option) (*Engine, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("engine: recognizer is required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("engine: profanity matcher is required")
	}
	cfg.applyDefaults()
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be positive")
	}

	chunkK := int(cfg.ChunkSeconds * float64(cfg.SampleRate))
	delayLength := int(cfg.DelaySeconds * float64(cfg.SampleRate))

	e := &Engine{
		delay:      delayline.New(cfg.Channels, delayLength),
		capture:    capture.New(chunkK),
		channels:   cfg.Channels,
		sampleRate: cfg.SampleRate,
		chunkK:     chunkK,
		metrics:    cfg.Metrics,
	}
	e.gate = gate.New(gate.Config{
		SampleRate:   float64(cfg.SampleRate),
		InitialDelay: cfg.InitialDelay,
		Headroom:     defaultHeadroom,
	})

	for _, o := range opts {
		o(e)
	}

	e.censor = censor.New(matcher, e.delay, e.gate, censor.Config{
		SampleRate: float64(cfg.SampleRate),
		ChunkK:     uint64(chunkK),
		Mode:       cfg.Mode,
		Metrics:    e.metrics,
	})

	w := asrworker.New(e.capture, recognizer, e.censor, asrworker.Config{
		NativeSampleRate: cfg.SampleRate,
		ChunkSeconds:     cfg.ChunkSeconds,
		VocalFilter:      e.vocalFilter,
		Refiner:          e.refiner,
		Lyrics:           e.lyrics,
		VAD:              e.vad,
		Metrics:          e.metrics,
	})
	w.LyricKey = e.lyricKey
	e.worker = w
	e.closers = append(e.closers, w.Close)

	if closer, ok := recognizer.(interface{ Close() error }); ok {
		e.closers = append(e.closers, closer.Close)
	}

	return e, nil
}

// WriteInput implements §4.2 steps 1-2 for one input frame: it downmixes
// the frame to mono for chunking, then writes the frame verbatim into the
// delay line. Called from the real-time audio callback; it takes the
// capture buffer's mutex once per frame and allocates only when a chunk is
// handed off.
func (e *Engine) WriteInput(frame []float32) {
	var sum float32
	for _, s := range frame {
		sum += s
	}
	mono := sum / float32(max(1, len(frame)))

	e.delay.WriteFrame(frame)
	e.capture.Write(mono, e.delay.W())
}

// ReadOutput implements §4.3: it queries the gate with the current fill and
// either advances the read cursor and returns real samples, or returns a
// zero-filled frame while Warming or Paused.
func (e *Engine) ReadOutput() []float32 {
	fill := e.delay.CurrentFill()
	if e.gate.Observe(fill) {
		return e.delay.ReadFrame()
	}
	return make([]float32, e.channels)
}

// Gate exposes the playback gate for observability (state, BufferUnderrun).
func (e *Engine) Gate() *gate.Gate { return e.gate }

// CensorStats exposes the running censorship counters.
func (e *Engine) CensorStats() censor.Stats { return e.censor.Snapshot() }

// Run starts the ASR worker and blocks until ctx is cancelled or the
// worker's context returns an error. It is the engine's second and only
// other long-lived execution context per §5.
func (e *Engine) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	eg, egCtx := errgroup.WithContext(ctx)
	e.eg = eg
	e.mu.Unlock()

	eg.Go(func() error {
		e.worker.Run(egCtx)
		return nil
	})

	if e.metrics != nil {
		eg.Go(func() error {
			e.sampleGauges(egCtx)
			return nil
		})
	}

	return eg.Wait()
}

// sampleGauges periodically records the delay-line fill and gate-state
// gauges until ctx is cancelled.
func (e *Engine) sampleGauges(ctx context.Context) {
	ticker := time.NewTicker(gaugeSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.metrics.ObserveDelayLineFill(ctx, float64(e.delay.CurrentFill())/float64(e.sampleRate))
			e.metrics.ObserveGateState(ctx, int64(e.gate.State()))
		}
	}
}

// Shutdown stops the ASR worker and releases collaborators that need
// closing. Safe to call multiple times and safe to call before Run.
func (e *Engine) Shutdown() error {
	var err error
	e.stopOnce.Do(func() {
		e.capture.Close()

		e.mu.Lock()
		cancel := e.cancel
		eg := e.eg
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if eg != nil {
			_ = eg.Wait()
		}

		for _, closer := range e.closers {
			if cerr := closer(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}
