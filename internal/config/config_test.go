package config_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MrWong99/glyphoxa/internal/config"
	"github.com/MrWong99/glyphoxa/pkg/audio"
	"github.com/MrWong99/glyphoxa/pkg/provider/asr"
	"github.com/MrWong99/glyphoxa/pkg/provider/lyrics"
	"github.com/MrWong99/glyphoxa/pkg/provider/refiner"
	"github.com/MrWong99/glyphoxa/pkg/provider/vad"
	"github.com/MrWong99/glyphoxa/pkg/provider/vocalfilter"
	"github.com/MrWong99/glyphoxa/pkg/types"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":8080"
  log_level: info

providers:
  asr:
    name: whispercpp
    model_path: /models/ggml-base.en.bin
  asr_fallback:
    name: clean
  vocal_filter:
    name: spectral
  refiner:
    name: energy
  lyrics:
    name: static
  audio:
    name: discord

filter:
  lexicon_path: /etc/glyphoxa/lexicon.txt
  mode: mute
  sample_rate: 48000
  chunk_seconds: 5
  delay_seconds: 20
  initial_delay: 10
  lyric_key: track-42

discord:
  token: test-token
  guild_id: "123456"
`

// ── YAML loading ──────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("server.listen_addr: got %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server.log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
	if cfg.Providers.ASR.Name != "whispercpp" {
		t.Errorf("providers.asr.name: got %q, want %q", cfg.Providers.ASR.Name, "whispercpp")
	}
	if cfg.Providers.ASRFallback.Name != "clean" {
		t.Errorf("providers.asr_fallback.name: got %q, want %q", cfg.Providers.ASRFallback.Name, "clean")
	}
	if cfg.Filter.LexiconPath != "/etc/glyphoxa/lexicon.txt" {
		t.Errorf("filter.lexicon_path: got %q", cfg.Filter.LexiconPath)
	}
	if cfg.Filter.Mode != config.CensorModeMute {
		t.Errorf("filter.mode: got %q, want %q", cfg.Filter.Mode, config.CensorModeMute)
	}
	if cfg.Filter.SampleRate != 48000 {
		t.Errorf("filter.sample_rate: got %d, want 48000", cfg.Filter.SampleRate)
	}
	if cfg.Discord.Token != "test-token" {
		t.Errorf("discord.token: got %q", cfg.Discord.Token)
	}
}

func TestLoadFromReader_EmptyIsInvalid(t *testing.T) {
	// providers.asr.name, providers.audio.name, and filter.lexicon_path are
	// all required; an empty config must fail validation.
	_, err := config.LoadFromReader(strings.NewReader("{}"))
	if err == nil {
		t.Fatal("expected error for empty config, got nil")
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_InvalidLogLevel(t *testing.T) {
	yaml := validBase() + "\nserver:\n  log_level: verbose\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_MissingLexiconPath(t *testing.T) {
	yaml := `
providers:
  asr:
    name: whispercpp
  audio:
    name: discord
discord:
  token: t
  guild_id: g
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing lexicon path, got nil")
	}
	if !strings.Contains(err.Error(), "lexicon_path") {
		t.Errorf("error should mention lexicon_path, got: %v", err)
	}
}

func TestValidate_InvalidCensorMode(t *testing.T) {
	yaml := validBase() + "\nfilter:\n  lexicon_path: /x.txt\n  mode: shuffle\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid filter.mode, got nil")
	}
	if !strings.Contains(err.Error(), "mode") {
		t.Errorf("error should mention mode, got: %v", err)
	}
}

func TestValidate_InvalidPhoneticThreshold(t *testing.T) {
	yaml := validBase() + "\nfilter:\n  lexicon_path: /x.txt\n  phonetic_threshold: 1.5\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range phonetic_threshold, got nil")
	}
}

func TestValidate_InitialDelayMustBeLessThanDelaySeconds(t *testing.T) {
	yaml := validBase() + "\nfilter:\n  lexicon_path: /x.txt\n  delay_seconds: 5\n  initial_delay: 10\n"
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for initial_delay >= delay_seconds, got nil")
	}
}

func TestValidate_DiscordAudioRequiresToken(t *testing.T) {
	yaml := `
providers:
  asr:
    name: whispercpp
  audio:
    name: discord
filter:
  lexicon_path: /x.txt
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing discord.token, got nil")
	}
	if !strings.Contains(err.Error(), "discord.token") {
		t.Errorf("error should mention discord.token, got: %v", err)
	}
}

func TestValidate_MissingASRProvider(t *testing.T) {
	yaml := `
providers:
  audio:
    name: discord
discord:
  token: t
  guild_id: g
filter:
  lexicon_path: /x.txt
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing providers.asr.name, got nil")
	}
}

func validBase() string {
	return `
providers:
  asr:
    name: whispercpp
  audio:
    name: discord
discord:
  token: t
  guild_id: g
`
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownASR(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateASR(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownVocalFilter(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateVocalFilter(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownRefiner(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateRefiner(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownLyrics(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateLyrics(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownVAD(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateVAD(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownAudio(t *testing.T) {
	reg := config.NewRegistry()
	_, err := reg.CreateAudio(config.ProviderEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("expected ErrProviderNotRegistered, got: %v", err)
	}
}

// ── Registry with registered factories ───────────────────────────────────────

func TestRegistry_RegisteredASR(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubRecognizer{}
	reg.RegisterASR("stub", func(e config.ProviderEntry) (asr.Recognizer, error) {
		return want, nil
	})
	got, err := reg.CreateASR(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredAudio(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubAudio{}
	reg.RegisterAudio("stub", func(e config.ProviderEntry) (audio.Platform, error) {
		return want, nil
	})
	got, err := reg.CreateAudio(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_RegisteredVAD(t *testing.T) {
	reg := config.NewRegistry()
	want := &stubVAD{}
	reg.RegisterVAD("stub", func(e config.ProviderEntry) (vad.Engine, error) {
		return want, nil
	})
	got, err := reg.CreateVAD(config.ProviderEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned provider is not the expected instance")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterASR("broken", func(e config.ProviderEntry) (asr.Recognizer, error) {
		return nil, wantErr
	})
	_, err := reg.CreateASR(config.ProviderEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

// ── Stub implementations (satisfy interfaces for the compiler) ────────────────

type stubRecognizer struct{}

func (s *stubRecognizer) Recognize(_ context.Context, _ []float32) ([]asr.Segment, error) {
	return nil, nil
}
func (s *stubRecognizer) Close() error { return nil }

type stubVocalFilter struct{}

func (s *stubVocalFilter) Apply(pcm []float32) []float32 { return pcm }

var _ vocalfilter.Filter = (*stubVocalFilter)(nil)

type stubRefiner struct{}

func (s *stubRefiner) Refine(_ []float32, _ int, words []types.WordSegment) []types.WordSegment {
	return words
}

var _ refiner.Refiner = (*stubRefiner)(nil)

type stubLyrics struct{}

func (s *stubLyrics) Lookup(_ context.Context, _ string) ([]lyrics.Line, error) { return nil, nil }

var _ lyrics.Source = (*stubLyrics)(nil)

type stubVAD struct{}

func (s *stubVAD) NewSession(_ vad.Config) (vad.SessionHandle, error) { return nil, nil }

var _ vad.Engine = (*stubVAD)(nil)

type stubAudio struct{}

func (s *stubAudio) Connect(_ context.Context, _ string) (audio.Connection, error) {
	return nil, nil
}

var _ audio.Platform = (*stubAudio)(nil)
