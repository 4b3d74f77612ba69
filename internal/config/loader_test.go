package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/glyphoxa/internal/config"
)

func TestValidate_MissingAudioProvider(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  asr:
    name: whispercpp
filter:
  lexicon_path: /x.txt
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing providers.audio.name, got nil")
	}
	if !strings.Contains(err.Error(), "providers.audio.name") {
		t.Errorf("error should mention providers.audio.name, got: %v", err)
	}
}

func TestValidate_DiscordAudioRequiresGuildID(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  asr:
    name: whispercpp
  audio:
    name: discord
discord:
  token: t
filter:
  lexicon_path: /x.txt
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing discord.guild_id, got nil")
	}
	if !strings.Contains(err.Error(), "discord.guild_id") {
		t.Errorf("error should mention discord.guild_id, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
filter:
  mode: shuffle
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "providers.asr.name") {
		t.Errorf("error should mention providers.asr.name, got: %v", err)
	}
	if !strings.Contains(errStr, "mode") {
		t.Errorf("error should mention mode, got: %v", err)
	}
}

func TestValidate_NonDiscordAudioSkipsTokenCheck(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  asr:
    name: whispercpp
  audio:
    name: some-other-platform
filter:
  lexicon_path: /x.txt
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	asrNames := config.ValidProviderNames["asr"]
	if len(asrNames) == 0 {
		t.Fatal("ValidProviderNames[\"asr\"] should not be empty")
	}
	found := false
	for _, n := range asrNames {
		if n == "whispercpp" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"asr\"] should contain \"whispercpp\"")
	}
}
