package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr":          {"whispercpp", "mock"},
	"vocal_filter": {"spectral"},
	"refiner":      {"energy"},
	"lyrics":       {"static", "wsfeed"},
	"audio":        {"discord", "webrtc"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("asr", cfg.Providers.ASR.Name)
	validateProviderName("vocal_filter", cfg.Providers.VocalFilter.Name)
	validateProviderName("refiner", cfg.Providers.Refiner.Name)
	validateProviderName("lyrics", cfg.Providers.Lyrics.Name)
	validateProviderName("audio", cfg.Providers.Audio.Name)

	if cfg.Providers.ASR.Name == "" {
		errs = append(errs, fmt.Errorf("providers.asr.name is required"))
	}
	if cfg.Providers.Audio.Name == "" {
		errs = append(errs, fmt.Errorf("providers.audio.name is required"))
	}

	// Filter
	if cfg.Filter.LexiconPath == "" {
		errs = append(errs, fmt.Errorf("filter.lexicon_path is required"))
	}
	if cfg.Filter.Mode != "" && !cfg.Filter.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("filter.mode %q is invalid; valid values: mute, reverse", cfg.Filter.Mode))
	}
	if cfg.Filter.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("filter.sample_rate must not be negative"))
	}
	if cfg.Filter.PhoneticThreshold != 0 && (cfg.Filter.PhoneticThreshold < 0 || cfg.Filter.PhoneticThreshold > 1) {
		errs = append(errs, fmt.Errorf("filter.phonetic_threshold %.2f is out of range [0, 1]", cfg.Filter.PhoneticThreshold))
	}
	if cfg.Filter.DelaySeconds != 0 && cfg.Filter.InitialDelay != 0 && cfg.Filter.InitialDelay >= cfg.Filter.DelaySeconds {
		errs = append(errs, fmt.Errorf("filter.initial_delay (%.1f) must be less than filter.delay_seconds (%.1f)", cfg.Filter.InitialDelay, cfg.Filter.DelaySeconds))
	}

	// Lyrics provider ↔ lyric_key cross-validation
	if cfg.Providers.Lyrics.Name != "" && cfg.Filter.LyricKey == "" {
		slog.Warn("providers.lyrics is configured but filter.lyric_key is empty; lookups will use an empty key")
	}

	// Discord
	if cfg.Providers.Audio.Name == "discord" {
		if cfg.Discord.Token == "" {
			errs = append(errs, fmt.Errorf("discord.token is required when providers.audio is \"discord\""))
		}
		if cfg.Discord.GuildID == "" {
			errs = append(errs, fmt.Errorf("discord.guild_id is required when providers.audio is \"discord\""))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
