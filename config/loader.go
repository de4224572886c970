package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: PULSATION_SERVER_PORT sets
// server.port.
const EnvPrefix = "PULSATION"

// NewViper returns a viper instance reading configFile, or pulsation.yaml
// from the working directory or /etc/pulsation when configFile is empty.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pulsation")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pulsation")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// SetDefaults registers the default of every key. Registering them also
// makes each key reachable through its environment variable.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.reactors", 4)
	v.SetDefault("server.workers", runtime.NumCPU())
	v.SetDefault("server.max_events", 1024)
	v.SetDefault("server.poll_timeout", "100ms")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.backlog", 128)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("static.enabled", false)
	v.SetDefault("static.dir", "./static")
	v.SetDefault("static.error_pages", true)

	v.SetDefault("view.enabled", false)
	v.SetDefault("view.dir", "./view")

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.origin", "*")
	v.SetDefault("cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE"})
	v.SetDefault("cors.allow_headers", []string{"Content-Type", "Authorization", "Accept"})
	v.SetDefault("cors.expose_headers", []string{})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 5)

	v.SetDefault("compress.enabled", false)
	v.SetDefault("compress.mime_types", []string{"text/html", "text/css", "application/javascript", "application/json"})

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.protect", "^/api/")
	v.SetDefault("auth.login_path", "/login")
	v.SetDefault("auth.fail_jump", "")
	v.SetDefault("auth.session_live", "1h")
	v.SetDefault("auth.users", map[string]string{})

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 1000.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("tracing.enabled", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.stats_path", "/stats")
}

// Load reads the configuration file, if any, applies environment overrides
// and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
