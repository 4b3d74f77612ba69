// Package app wires the censorship engine and its collaborators into a
// running application.
//
// The App struct owns the full lifecycle: New creates the engine, Run
// connects the audio platform and drives the per-frame pump for a single
// monitored participant, and Shutdown tears everything down in order.
//
// For testing, inject a test engine via the WithEngine functional option.
// When it is not provided, New creates the real engine from the config and
// providers.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MrWong99/glyphoxa/internal/config"
	"github.com/MrWong99/glyphoxa/internal/engine"
	"github.com/MrWong99/glyphoxa/internal/filter/profanity"
	"github.com/MrWong99/glyphoxa/internal/observe"
	"github.com/MrWong99/glyphoxa/internal/session"
	"github.com/MrWong99/glyphoxa/pkg/audio"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
)

// Providers holds one interface value per provider slot. VocalFilter,
// Refiner, and Lyrics are optional — a nil value leaves the corresponding
// engine collaborator unset. Populated by main.go via the config registry.
type Providers struct {
	ASR         asr.Recognizer
	VocalFilter vocalfilter.Filter
	Refiner     refiner.Refiner
	Lyrics      lyrics.Source
	VAD         vad.Engine
	Audio       audio.Platform
}

// Engine is the subset of [engine.Engine] the App depends on, narrowed to an
// interface so tests can substitute a fake.
type Engine interface {
	WriteInput(frame []float32)
	ReadOutput() []float32
	Run(ctx context.Context) error
	Shutdown() error
}

// App owns the engine and audio-platform lifetimes and pumps audio frames
// between them for a single monitored participant.
type App struct {
	cfg       *config.Config
	providers *Providers

	eng Engine

	mu          sync.Mutex
	reconnector *session.Reconnector
	conn        audio.Connection

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithEngine injects an engine instead of constructing one from config and
// providers.
func WithEngine(e Engine) Option {
	return func(a *App) { a.eng = e }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring the profanity matcher and engine collaborators
// together. The providers struct comes from main.go (populated via the
// config registry). Use Option functions to inject test doubles.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if a.eng == nil {
		if err := a.buildEngine(); err != nil {
			return nil, fmt.Errorf("app: build engine: %w", err)
		}
	}

	return a, nil
}

// buildEngine loads the profanity lexicon and constructs the censorship
// engine from cfg and providers.
func (a *App) buildEngine() error {
	if a.providers.ASR == nil {
		return fmt.Errorf("asr recognizer is required")
	}

	var matcherOpts []profanity.Option
	if t := a.cfg.Filter.PhoneticThreshold; t > 0 {
		matcherOpts = append(matcherOpts, profanity.WithPhoneticThreshold(t))
	}
	matcher, err := profanity.Load(a.cfg.Filter.LexiconPath, matcherOpts...)
	if err != nil {
		return fmt.Errorf("load lexicon %q: %w", a.cfg.Filter.LexiconPath, err)
	}

	engCfg := engine.Config{
		SampleRate:   a.cfg.Filter.SampleRate,
		Channels:     2,
		ChunkSeconds: a.cfg.Filter.ChunkSeconds,
		DelaySeconds: a.cfg.Filter.DelaySeconds,
		InitialDelay: a.cfg.Filter.InitialDelay,
		Mode:         a.cfg.Filter.Mode.DelaylineMode(),
		Metrics:      observe.DefaultMetrics(),
	}

	var engOpts []engine.Option
	if a.providers.VocalFilter != nil {
		engOpts = append(engOpts, engine.WithVocalFilter(a.providers.VocalFilter))
	}
	if a.providers.Refiner != nil {
		engOpts = append(engOpts, engine.WithRefiner(a.providers.Refiner))
	}
	if a.providers.Lyrics != nil {
		engOpts = append(engOpts, engine.WithLyrics(a.providers.Lyrics, a.cfg.Filter.LyricKey))
	}
	if a.providers.VAD != nil {
		engOpts = append(engOpts, engine.WithVAD(a.providers.VAD))
	}

	eng, err := engine.New(engCfg, a.providers.ASR, matcher, engOpts...)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}
	a.eng = eng
	return nil
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run connects to the audio platform, starts the engine's ASR worker, and
// pumps audio for a single monitored participant until ctx is cancelled.
// The monitored participant is cfg.Filter.TargetUserID, or the first
// participant to join if that is empty.
func (a *App) Run(ctx context.Context) error {
	if a.providers.Audio == nil {
		return fmt.Errorf("app: no audio platform configured")
	}

	reconnector := session.NewReconnector(session.ReconnectorConfig{
		Platform:  a.providers.Audio,
		ChannelID: a.cfg.Discord.GuildID,
		OnReconnect: func(conn audio.Connection) {
			a.mu.Lock()
			a.conn = conn
			a.mu.Unlock()
			a.attachTarget(ctx, conn)
		},
	})
	a.mu.Lock()
	a.reconnector = reconnector
	a.mu.Unlock()

	conn, err := reconnector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("app: connect audio platform: %w", err)
	}
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	reconnector.Monitor(ctx)
	a.attachTarget(ctx, conn)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.eng.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("engine run returned error", "err", err)
		}
	}()

	slog.Info("app running", "target_user_id", a.cfg.Filter.TargetUserID)
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// attachTarget watches for the monitored participant's input stream and
// starts pumping frames once it appears.
func (a *App) attachTarget(ctx context.Context, conn audio.Connection) {
	streams := conn.InputStreams()
	if userID, ch, ok := a.selectTarget(streams); ok {
		go a.pumpParticipant(ctx, conn, userID, ch)
		return
	}

	conn.OnParticipantChange(func(ev audio.Event) {
		if ev.Type != audio.EventJoin {
			return
		}
		if a.cfg.Filter.TargetUserID != "" && ev.UserID != a.cfg.Filter.TargetUserID {
			return
		}
		streams := conn.InputStreams()
		if ch, ok := streams[ev.UserID]; ok {
			go a.pumpParticipant(ctx, conn, ev.UserID, ch)
		}
	})
}

// selectTarget picks the monitored participant's stream out of streams: the
// configured TargetUserID if present, otherwise an arbitrary (first) entry.
func (a *App) selectTarget(streams map[string]<-chan audio.AudioFrame) (string, <-chan audio.AudioFrame, bool) {
	if target := a.cfg.Filter.TargetUserID; target != "" {
		ch, ok := streams[target]
		return target, ch, ok
	}
	for userID, ch := range streams {
		return userID, ch, true
	}
	return "", nil, false
}

// pumpParticipant drives the engine one sample-frame at a time from the
// monitored participant's input stream, writing the matching delayed and
// censored output back to the connection's mixed output stream.
func (a *App) pumpParticipant(ctx context.Context, conn audio.Connection, userID string, in <-chan audio.AudioFrame) {
	slog.Debug("pumping participant", "user", userID)
	out := conn.OutputStream()

	metrics := observe.DefaultMetrics()
	metrics.ActiveSessions.Add(ctx, 1)
	defer metrics.ActiveSessions.Add(ctx, -1)

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-in:
			if !ok {
				return
			}
			channels := frame.Channels
			if channels <= 0 {
				channels = 1
			}
			samples := audio.PCMInt16BytesToFloat32(frame.Data)
			outSamples := make([]float32, 0, len(samples))
			for i := 0; i+channels <= len(samples); i += channels {
				a.eng.WriteInput(samples[i : i+channels])
				outSamples = append(outSamples, a.eng.ReadOutput()...)
			}
			select {
			case out <- audio.AudioFrame{
				Data:       audio.Float32ToPCMInt16Bytes(outSamples),
				SampleRate: frame.SampleRate,
				Channels:   channels,
				Timestamp:  frame.Timestamp,
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down the engine and audio connection. Safe to call more
// than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")

		a.mu.Lock()
		reconnector, conn := a.reconnector, a.conn
		a.mu.Unlock()

		if reconnector != nil {
			if err := reconnector.Stop(); err != nil {
				slog.Warn("reconnector stop error", "err", err)
			}
		} else if conn != nil {
			if err := conn.Disconnect(); err != nil {
				slog.Warn("audio disconnect error", "err", err)
			}
		}

		if err := a.eng.Shutdown(); err != nil {
			slog.Warn("engine shutdown error", "err", err)
			shutdownErr = err
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
