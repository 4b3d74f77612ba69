// Package config provides the configuration schema, loader, and provider
// registry for the censorship engine host.
package config

import "github.com/MrWong99/glyphoxa/internal/filter/delayline"

// LogLevel controls log verbosity for the host process.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CensorMode selects how a detected profanity span is patched into the
// delay line.
type CensorMode string

const (
	CensorModeMute    CensorMode = "mute"
	CensorModeReverse CensorMode = "reverse"
)

// IsValid reports whether m is a recognised censor mode.
func (m CensorMode) IsValid() bool {
	return m == CensorModeMute || m == CensorModeReverse
}

// DelaylineMode converts m to the [delayline.Mode] the engine expects.
func (m CensorMode) DelaylineMode() delayline.Mode {
	if m == CensorModeReverse {
		return delayline.Reverse
	}
	return delayline.Mute
}

// Config is the root configuration structure for the host process.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Filter    FilterConfig    `yaml:"filter"`
	Discord   DiscordConfig   `yaml:"discord"`
}

// ServerConfig holds network and logging settings for the host process.
type ServerConfig struct {
	// ListenAddr is the TCP address the health/metrics server listens on
	// (e.g., ":8080"). Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry]. VocalFilter, Refiner, Lyrics, VAD, and ASRFallback are
// optional — an empty Name leaves the corresponding engine collaborator
// unset (or, for ASRFallback, leaves the primary recognizer unwrapped).
type ProvidersConfig struct {
	ASR         ProviderEntry `yaml:"asr"`
	ASRFallback ProviderEntry `yaml:"asr_fallback"`
	VocalFilter ProviderEntry `yaml:"vocal_filter"`
	Refiner     ProviderEntry `yaml:"refiner"`
	Lyrics      ProviderEntry `yaml:"lyrics"`
	VAD         ProviderEntry `yaml:"vad"`
	Audio       ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "whispercpp", "static").
	Name string `yaml:"name"`

	// ModelPath points at a model file on disk, for providers that load one
	// (e.g. the whisper.cpp recognizer).
	ModelPath string `yaml:"model_path"`

	// URL is an endpoint address, for providers that dial out (e.g. the
	// websocket lyrics feed).
	URL string `yaml:"url"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// FilterConfig holds the censorship engine's fixed, session-lifetime
// parameters and the lexicon it censors against.
type FilterConfig struct {
	// LexiconPath is the path to the profanity word list, one normalized
	// entry per line. Lines starting with "#" and blank lines are ignored.
	LexiconPath string `yaml:"lexicon_path"`

	// PhoneticThreshold is the Jaro-Winkler similarity floor for fuzzy
	// profanity matching. Zero uses the matcher's default (0.85).
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// Mode selects Mute or Reverse censorship.
	Mode CensorMode `yaml:"mode"`

	// SampleRate is F, the native capture/playback sample rate.
	SampleRate int `yaml:"sample_rate"`

	// ChunkSeconds is the ASR analysis window length. Default 5.
	ChunkSeconds float64 `yaml:"chunk_seconds"`

	// DelaySeconds sizes the delay line, L = DelaySeconds * SampleRate.
	// Default 20.
	DelaySeconds float64 `yaml:"delay_seconds"`

	// InitialDelay is the gate's warmup threshold in seconds. Default 10.
	InitialDelay float64 `yaml:"initial_delay"`

	// TargetUserID pins the engine to a single, monitored voice-channel
	// participant. Empty means "a participant already on the connection, or
	// else the first participant to join".
	TargetUserID string `yaml:"target_user_id"`

	// LyricKey identifies the currently playing track for lyrics-alignment
	// lookup. Empty is passed to the lyrics provider as-is; the static
	// provider ignores the key and still returns its fixed lyric.
	LyricKey string `yaml:"lyric_key"`
}

// DiscordConfig holds Discord bot configuration.
type DiscordConfig struct {
	// Token is the Discord bot token (e.g., "MTIz...", without the "Bot " prefix).
	Token string `yaml:"token"`

	// GuildID is the target guild (single-guild for alpha).
	GuildID string `yaml:"guild_id"`
}
