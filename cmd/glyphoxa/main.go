// Command glyphoxa is the main entry point for the Glyphoxa censorship engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/glyphoxa/internal/app"
	"github.com/MrWong99/glyphoxa/internal/config"
	discordbot "github.com/MrWong99/glyphoxa/internal/discord"
	"github.com/MrWong99/glyphoxa/internal/health"
	"github.com/MrWong99/glyphoxa/internal/observe"
	"github.com/MrWong99/glyphoxa/internal/resilience"
	"github.com/MrWong99/glyphoxa/pkg/audio"
	"github.com/MrWong99/glyphoxa/pkg/audio/webrtc"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr/whispercpp"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics/static"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics/wsfeed"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner/energy"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	vadenergy "github.com/MrWong99/glyphoxa/pkg/provider/vad/energy"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter/spectral"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "glyphoxa: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "glyphoxa: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("glyphoxa starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "glyphoxa"})
	if err != nil {
		slog.Error("failed to initialise telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Discord bot (optional) ────────────────────────────────────────────────
	// A configured Discord token wins over any registry-created audio
	// platform: it needs a live gateway session that the registry factory
	// can't construct on its own.
	var bot *discordbot.Bot
	if cfg.Discord.Token != "" {
		botCfg := discordbot.Config{
			Token:   cfg.Discord.Token,
			GuildID: cfg.Discord.GuildID,
		}

		bot, err = discordbot.New(ctx, botCfg)
		if err != nil {
			slog.Error("failed to create Discord bot", "err", err)
			return 1
		}
		providers.Audio = bot.Platform()
		slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)
	}

	// ── Observability server (health, readiness, Prometheus metrics) ─────────
	var obsSrv *http.Server
	if cfg.Server.ListenAddr != "" {
		obsSrv = newObservabilityServer(cfg.Server.ListenAddr, providers)
		go func() {
			var err error
			if cfg.Server.TLS != nil {
				err = obsSrv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
			} else {
				err = obsSrv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("observability server error", "err", err)
			}
		}()
		slog.Info("observability server listening", "addr", cfg.Server.ListenAddr)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Run the Discord gateway loop alongside the engine.
	if bot != nil {
		go func() {
			if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("discord bot error", "err", err)
			}
		}()
	}

	slog.Info("filter running — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if obsSrv != nil {
		if err := obsSrv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability server shutdown error", "err", err)
		}
	}

	if bot != nil {
		if err := bot.Close(); err != nil {
			slog.Warn("discord bot close error", "err", err)
		}
	}

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newObservabilityServer builds the mux serving /healthz, /readyz, and
// /metrics. Readiness fails if the required asr or audio providers are
// missing.
func newObservabilityServer(addr string, providers *app.Providers) *http.Server {
	mux := http.NewServeMux()

	health.New(
		health.Checker{Name: "asr", Check: func(context.Context) error {
			if providers.ASR == nil {
				return fmt.Errorf("no asr recognizer configured")
			}
			return nil
		}},
		health.Checker{Name: "audio", Check: func(context.Context) error {
			if providers.Audio == nil {
				return fmt.Errorf("no audio platform configured")
			}
			return nil
		}},
	).Register(mux)

	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{Addr: addr, Handler: mux}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// builtinProviders maps provider category names to the implementations that
// ship with Glyphoxa. Used for startup logging only.
var builtinProviders = map[string][]string{
	"asr":          {"whispercpp"},
	"vocal_filter": {"spectral"},
	"refiner":      {"energy"},
	"lyrics":       {"static", "wsfeed"},
	"vad":          {"energy"},
	"audio":        {"discord", "webrtc"},
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── ASR ───────────────────────────────────────────────────────────────────

	reg.RegisterASR("whispercpp", func(entry config.ProviderEntry) (asr.Recognizer, error) {
		var opts []whispercpp.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whispercpp.WithLanguage(lang))
		}
		return whispercpp.New(entry.ModelPath, opts...)
	})

	// ── Vocal filter ──────────────────────────────────────────────────────────

	reg.RegisterVocalFilter("spectral", func(_ config.ProviderEntry) (vocalfilter.Filter, error) {
		return spectral.New(), nil
	})

	// ── Refiner ───────────────────────────────────────────────────────────────

	reg.RegisterRefiner("energy", func(_ config.ProviderEntry) (refiner.Refiner, error) {
		return energy.New(), nil
	})

	// ── Lyrics ────────────────────────────────────────────────────────────────

	reg.RegisterLyrics("static", func(entry config.ProviderEntry) (lyrics.Source, error) {
		raw, _ := entry.Options["lines"].([]any)
		lines := make([]lyrics.Line, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				lines = append(lines, lyrics.Line{Text: s})
			}
		}
		return static.New(lines), nil
	})

	reg.RegisterLyrics("wsfeed", func(entry config.ProviderEntry) (lyrics.Source, error) {
		return wsfeed.New(entry.URL), nil
	})

	// ── Voice activity detection ─────────────────────────────────────────────

	reg.RegisterVAD("energy", func(_ config.ProviderEntry) (vad.Engine, error) {
		return vadenergy.New(), nil
	})

	// ── Audio ─────────────────────────────────────────────────────────────────
	// "discord" has no registry factory: the registry has no gateway
	// connection to hand a Platform, so buildProviders skips that name and
	// run() supplies the live bot session's platform instead.

	reg.RegisterAudio("webrtc", func(entry config.ProviderEntry) (audio.Platform, error) {
		var opts []webrtc.Option
		if rate, ok := entry.Options["sample_rate"].(int); ok && rate > 0 {
			opts = append(opts, webrtc.WithSampleRate(rate))
		}
		if servers := optStringSlice(entry.Options, "stun_servers"); len(servers) > 0 {
			opts = append(opts, webrtc.WithSTUNServers(servers...))
		}
		return webrtc.New(opts...), nil
	})

	for kind, names := range builtinProviders {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.ASR.Name; name != "" {
		p, err := reg.CreateASR(cfg.Providers.ASR)
		if err != nil {
			return nil, fmt.Errorf("create asr provider %q: %w", name, err)
		}
		ps.ASR = p
		slog.Info("provider created", "kind", "asr", "name", name)

		if fbName := cfg.Providers.ASRFallback.Name; fbName != "" {
			fb, err := reg.CreateASR(cfg.Providers.ASRFallback)
			if err != nil {
				return nil, fmt.Errorf("create asr_fallback provider %q: %w", fbName, err)
			}
			group := asr.NewFallbackRecognizer(p, name, resilience.FallbackConfig{})
			group.AddFallback(fbName, fb)
			ps.ASR = group
			slog.Info("provider created", "kind", "asr_fallback", "name", fbName)
		}
	}

	if name := cfg.Providers.VocalFilter.Name; name != "" {
		p, err := reg.CreateVocalFilter(cfg.Providers.VocalFilter)
		if err != nil {
			return nil, fmt.Errorf("create vocal_filter provider %q: %w", name, err)
		}
		ps.VocalFilter = p
		slog.Info("provider created", "kind", "vocal_filter", "name", name)
	}

	if name := cfg.Providers.Refiner.Name; name != "" {
		p, err := reg.CreateRefiner(cfg.Providers.Refiner)
		if err != nil {
			return nil, fmt.Errorf("create refiner provider %q: %w", name, err)
		}
		ps.Refiner = p
		slog.Info("provider created", "kind", "refiner", "name", name)
	}

	if name := cfg.Providers.Lyrics.Name; name != "" {
		p, err := reg.CreateLyrics(cfg.Providers.Lyrics)
		if err != nil {
			return nil, fmt.Errorf("create lyrics provider %q: %w", name, err)
		}
		ps.Lyrics = p
		slog.Info("provider created", "kind", "lyrics", "name", name)
	}

	if name := cfg.Providers.VAD.Name; name != "" {
		p, err := reg.CreateVAD(cfg.Providers.VAD)
		if err != nil {
			return nil, fmt.Errorf("create vad provider %q: %w", name, err)
		}
		ps.VAD = p
		slog.Info("provider created", "kind", "vad", "name", name)
	}

	if name := cfg.Providers.Audio.Name; name != "" && name != "discord" {
		p, err := reg.CreateAudio(cfg.Providers.Audio)
		if err != nil {
			return nil, fmt.Errorf("create audio provider %q: %w", name, err)
		}
		ps.Audio = p
		slog.Info("provider created", "kind", "audio", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Glyphoxa — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("ASR", cfg.Providers.ASR.Name)
	printProvider("ASRFallback", cfg.Providers.ASRFallback.Name)
	printProvider("VocalFilter", cfg.Providers.VocalFilter.Name)
	printProvider("Refiner", cfg.Providers.Refiner.Name)
	printProvider("Lyrics", cfg.Providers.Lyrics.Name)
	printProvider("VAD", cfg.Providers.VAD.Name)
	printProvider("Audio", cfg.Providers.Audio.Name)
	fmt.Printf("║  Censor mode     : %-19s ║\n", cfg.Filter.Mode)
	fmt.Printf("║  Lexicon         : %-19s ║\n", truncate(cfg.Filter.LexiconPath, 19))
	if cfg.Discord.Token != "" {
		fmt.Printf("║  Discord         : %-19s ║\n", "connected")
	} else {
		fmt.Printf("║  Discord         : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name string) {
	value := name
	if value == "" {
		value = "(not configured)"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, truncate(value, 19))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-1] + "…"
	}
	return s
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// optStringSlice extracts a []string from a provider Options map[string]any
// value decoded from YAML as []any.
func optStringSlice(opts map[string]any, key string) []string {
	if opts == nil {
		return nil
	}
	raw, ok := opts[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
