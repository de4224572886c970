package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pulsation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(""))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.Reactors)
	assert.Equal(t, 1024, cfg.Server.MaxEvents)
	assert.Equal(t, 100*time.Millisecond, cfg.Server.PollTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE"}, cfg.CORS.AllowMethods)
	assert.Equal(t, time.Hour, cfg.Auth.SessionLive)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  reactors: 2
  idle_timeout: 5s
log:
  level: debug
static:
  enabled: true
  dir: /srv/www
auth:
  enabled: true
  protect: "^/admin/"
`)

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.Reactors)
	assert.Equal(t, 5*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 128, cfg.Server.Backlog)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/srv/www", cfg.Static.Dir)
	assert.Equal(t, "^/admin/", cfg.Auth.Protect)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PULSATION_SERVER_PORT", "9191")
	t.Setenv("PULSATION_SERVER_WRITE_TIMEOUT", "3s")
	t.Setenv("PULSATION_LOG_LEVEL", "warn")

	cfg, err := Load(NewViper(""))
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]struct {
		yaml string
		want string
	}{
		"reactors": {
			yaml: "server:\n  reactors: 0\n",
			want: "Config.Server.Reactors must be at least 1",
		},
		"port": {
			yaml: "server:\n  port: 70000\n",
			want: "Config.Server.Port must be at most 65535",
		},
		"log level": {
			yaml: "log:\n  level: loud\n",
			want: "Config.Log.Level must be one of: debug info warn error",
		},
		"protect regexp": {
			yaml: "auth:\n  protect: \"^/api/(\"\n",
			want: "Config.Auth.Protect must be a valid regular expression",
		},
		"user hash": {
			yaml: "auth:\n  users:\n    alice: plaintext\n",
			want: "must start with",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(NewViper(writeConfig(t, tt.yaml)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BrokenFile(t *testing.T) {
	_, err := Load(NewViper(writeConfig(t, "server: [")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
