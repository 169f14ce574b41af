package main

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Settings is the chat widget configuration. Values are resolved in
// precedence order: command-line flags, then JIMINY_* environment variables,
// then the YAML config file, then defaults.
type Settings struct {
	APIBase        string `env:"API_BASE" yaml:"api_base"`
	Token          string `env:"TOKEN" yaml:"token"`
	TokenExpiresAt int64  `env:"TOKEN_EXPIRES_AT" yaml:"token_expires_at"`
	Source         string `env:"SOURCE" yaml:"source"`
	Title          string `env:"TITLE" yaml:"title"`

	// StateDir enables file-backed conversation state. Empty means the
	// conversation lives only as long as the process.
	StateDir string `env:"STATE_DIR" yaml:"state_dir"`

	// NotifyURL is an optional relay websocket endpoint that receives the
	// widget's geometry intents. NotifyFile appends them to a file as JSON
	// lines instead (or as well).
	NotifyURL  string `env:"NOTIFY_URL" yaml:"notify_url"`
	NotifyFile string `env:"NOTIFY_FILE" yaml:"notify_file"`

	RevealStride     int `env:"REVEAL_STRIDE" yaml:"reveal_stride"`
	RevealIntervalMs int `env:"REVEAL_INTERVAL_MS" yaml:"reveal_interval_ms"`
}

func defaultSettings() Settings {
	return Settings{
		APIBase: "http://localhost:8000",
		Source:  "terminal",
	}
}

func loadSettings(cmd *cobra.Command, configPath string) (Settings, error) {
	// .env is a convenience for local development; a missing file is fine.
	_ = godotenv.Load()

	s := defaultSettings()

	if configPath != "" {
		b, err := os.ReadFile(configPath)
		if err != nil {
			return s, errors.Wrapf(err, "read config %s", configPath)
		}
		if err := yaml.Unmarshal(b, &s); err != nil {
			return s, errors.Wrapf(err, "parse config %s", configPath)
		}
	}

	if err := env.Parse(&s, env.Options{Prefix: "JIMINY_"}); err != nil {
		return s, errors.Wrap(err, "parse environment")
	}

	applyFlagOverrides(cmd, &s)
	return s, nil
}

func applyFlagOverrides(cmd *cobra.Command, s *Settings) {
	f := cmd.Flags()
	if f.Changed("api-base") {
		s.APIBase, _ = f.GetString("api-base")
	}
	if f.Changed("token") {
		s.Token, _ = f.GetString("token")
	}
	if f.Changed("token-expires-at") {
		s.TokenExpiresAt, _ = f.GetInt64("token-expires-at")
	}
	if f.Changed("source") {
		s.Source, _ = f.GetString("source")
	}
	if f.Changed("title") {
		s.Title, _ = f.GetString("title")
	}
	if f.Changed("state-dir") {
		s.StateDir, _ = f.GetString("state-dir")
	}
	if f.Changed("notify-url") {
		s.NotifyURL, _ = f.GetString("notify-url")
	}
	if f.Changed("notify-file") {
		s.NotifyFile, _ = f.GetString("notify-file")
	}
}

func (s Settings) revealInterval() time.Duration {
	return time.Duration(s.RevealIntervalMs) * time.Millisecond
}
