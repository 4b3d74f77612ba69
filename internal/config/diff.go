package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked — the delay line,
// chunk size, and sample rate are fixed at engine construction and require a
// restart, so they are deliberately not diffed here.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	CensorModeChanged bool
	NewCensorMode     CensorMode

	LexiconChanged bool
	NewLexiconPath string

	LyricKeyChanged bool
	NewLyricKey     string
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Filter.Mode != new.Filter.Mode {
		d.CensorModeChanged = true
		d.NewCensorMode = new.Filter.Mode
	}

	if old.Filter.LexiconPath != new.Filter.LexiconPath {
		d.LexiconChanged = true
		d.NewLexiconPath = new.Filter.LexiconPath
	}

	if old.Filter.LyricKey != new.Filter.LyricKey {
		d.LyricKeyChanged = true
		d.NewLyricKey = new.Filter.LyricKey
	}

	return d
}
