package config

import (
	"time"

	"github.com/wricardo/livechess/game/engine"
	"github.com/wricardo/livechess/game/session"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Match  MatchConfig  `yaml:"match"`
	Ngrok  NgrokConfig  `yaml:"ngrok"`
}

type ServerConfig struct {
	Host           string   `yaml:"host" validate:"required"`
	Port           int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// APIURL is the REST endpoint the stdio MCP proxy talks to.
	APIURL string `yaml:"api_url" validate:"omitempty,url"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
	File   string `yaml:"file"`
}

type MatchConfig struct {
	StrictSelfCheck     bool          `yaml:"strict_self_check"`
	ConcludeOnCheckmate bool          `yaml:"conclude_on_checkmate"`
	NotifyRejections    bool          `yaml:"notify_rejections"`
	TTL                 time.Duration `yaml:"ttl" validate:"min=0"`
	CleanupInterval     time.Duration `yaml:"cleanup_interval" validate:"min=0"`
	MaxMatches          int           `yaml:"max_matches" validate:"min=0"`
}

type NgrokConfig struct {
	Enabled   bool   `yaml:"enabled"`
	AuthToken string `yaml:"authtoken" validate:"required_if=Enabled true"`
	Domain    string `yaml:"domain" validate:"omitempty,hostname"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:   "localhost",
			Port:   8080,
			APIURL: "http://localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Match: MatchConfig{
			StrictSelfCheck:     true,
			ConcludeOnCheckmate: true,
			NotifyRejections:    true,
			TTL:                 2 * time.Hour,
			CleanupInterval:     10 * time.Minute,
			MaxMatches:          1000,
		},
	}
}

// SessionOptions converts the match section into options for the session
// manager.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Rules:               engine.Rules{StrictSelfCheck: c.Match.StrictSelfCheck},
		ConcludeOnCheckmate: c.Match.ConcludeOnCheckmate,
		NotifyRejections:    c.Match.NotifyRejections,
	}
}
