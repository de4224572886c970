// Package config loads pulsation's configuration from a YAML file and
// PULSATION_ environment variables.
package config

import "time"

// Config is the whole server configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Static    StaticConfig    `mapstructure:"static"`
	View      ViewConfig      `mapstructure:"view"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Compress  CompressConfig  `mapstructure:"compress"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds the engine's operational parameters.
type ServerConfig struct {
	Port         int           `mapstructure:"port" validate:"min=0,max=65535"`
	Reactors     int           `mapstructure:"reactors" validate:"min=1"`
	Workers      int           `mapstructure:"workers" validate:"min=1"`
	MaxEvents    int           `mapstructure:"max_events" validate:"min=1"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout" validate:"gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	Backlog      int           `mapstructure:"backlog" validate:"min=1"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type StaticConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Dir        string `mapstructure:"dir" validate:"required_if=Enabled true"`
	ErrorPages bool   `mapstructure:"error_pages"`
}

type ViewConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir" validate:"required_if=Enabled true"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	Origin           string   `mapstructure:"origin"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" validate:"min=0"`
}

type CompressConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	MimeTypes []string `mapstructure:"mime_types"`
}

// AuthConfig configures session authentication. Users maps user names to
// argon2id hashes, see "pulsation hash-password".
type AuthConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Protect     string            `mapstructure:"protect" validate:"required_if=Enabled true,regexp"`
	LoginPath   string            `mapstructure:"login_path" validate:"omitempty,startswith=/"`
	FailJump    string            `mapstructure:"fail_jump"`
	SessionLive time.Duration     `mapstructure:"session_live" validate:"gt=0"`
	Users       map[string]string `mapstructure:"users" validate:"dive,startswith=$argon2id$"`
}

type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps" validate:"gt=0"`
	Burst   int     `mapstructure:"burst" validate:"min=1"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path" validate:"startswith=/"`
	StatsPath string `mapstructure:"stats_path" validate:"startswith=/"`
}
