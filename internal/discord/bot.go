// Package discord provides the Discord gateway connection used as the audio
// I/O driver for the censorship engine. It owns the discordgo.Session
// lifecycle and exposes the guild's voice channels as an [audio.Platform].
//
// Command routing, permission checks, and status dashboards are explicitly
// out of scope here — device/channel selection and the control surface
// belong to the host application, not the core engine.
package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/glyphoxa/pkg/audio"
	discordaudio "github.com/MrWong99/glyphoxa/pkg/audio/discord"
)

// Config holds Discord bot configuration.
type Config struct {
	// Token is the Discord bot token (e.g., "MTIz...", without the "Bot "
	// prefix, which New adds).
	Token string `yaml:"token"`

	// GuildID is the target guild (single-guild for alpha).
	GuildID string `yaml:"guild_id"`
}

// Bot owns the Discord gateway connection and hands out the voice-channel
// [audio.Platform] used to join a channel for capture/playback.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	platform  *discordaudio.Platform
	guildID   string
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Bot and opens the Discord gateway connection.
func New(_ context.Context, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuilds

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("discord: open session: %w", err)
	}

	platform := discordaudio.New(session, cfg.GuildID)

	b := &Bot{
		session:  session,
		platform: platform,
		guildID:  cfg.GuildID,
		done:     make(chan struct{}),
	}

	return b, nil
}

// Platform returns the audio.Platform used to join voice channels.
func (b *Bot) Platform() audio.Platform {
	return b.platform
}

// GuildID returns the target guild ID.
func (b *Bot) GuildID() string {
	return b.guildID
}

// Run blocks until ctx is cancelled. The Discord gateway connection runs in
// the background for the lifetime of the session.
func (b *Bot) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close disconnects from Discord. Safe to call more than once.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}
	})
	return closeErr
}
