package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/entry-lobby/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, engine.DefaultConfig(), cfg.Engine())
	assert.Equal(t, 150, cfg.Engine().RoundTicks())
	assert.Equal(t, TransportWS, cfg.Client.Transport)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "lobby", cfg.NATS.Session)
	assert.Equal(t, time.Hour, cfg.NATS.MaxAge)
}

func TestLoad_FileKeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
session:
  tick_rate: 60
  round_duration: 2s
client:
  lang: ja
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 60, cfg.Session.TickRate)
	assert.Equal(t, 2*time.Second, cfg.Session.RoundDuration)
	assert.Equal(t, 120, cfg.Engine().RoundTicks())
	assert.Equal(t, "ja", cfg.Client.Lang)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")
	t.Setenv("ENTRY_PORT", "7070")
	t.Setenv("ENTRY_TICK_RATE", "not-a-number")
	t.Setenv("ENTRY_ROUND_DURATION", "10s")
	t.Setenv("ENTRY_TRANSPORT", "nats")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("ENTRY_SESSION", "friday")
	t.Setenv("ENTRY_ALLOWED_ORIGINS", "http://a.example,http://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, engine.DefaultTickRate, cfg.Session.TickRate, "bad number keeps the previous value")
	assert.Equal(t, 300, cfg.Engine().RoundTicks())
	assert.Equal(t, TransportNATS, cfg.Client.Transport)
	assert.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	assert.Equal(t, "friday", cfg.NATS.Session)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Session.TickRate = 30
	cfg.Session.RoundDuration = 10 * time.Millisecond
	cfg.Log.Level = "loud"
	cfg.Client.Transport = "carrier-pigeon"
	cfg.Client.Lang = "fr"
	cfg.NATS.Session = "a.b"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 6)
	assert.ErrorIs(t, err, ErrInvalidPort)
	assert.ErrorIs(t, err, ErrInvalidRoundDuration)
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
	assert.ErrorIs(t, err, ErrInvalidTransport)
	assert.ErrorIs(t, err, ErrInvalidLang)
	assert.ErrorIs(t, err, ErrInvalidSession)

	cfg = Default()
	cfg.Session.TickRate = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidTickRate)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		lc      LogConfig
		wantErr error
	}{
		{"json", LogConfig{Level: "info", Format: "json"}, nil},
		{"console debug", LogConfig{Level: "debug", Format: "console"}, nil},
		{"file", LogConfig{Level: "warn", Format: "json", File: filepath.Join(t.TempDir(), "client.log")}, nil},
		{"bad level", LogConfig{Level: "loud", Format: "json"}, ErrInvalidLogLevel},
		{"bad format", LogConfig{Level: "info", Format: "xml"}, ErrInvalidLogFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.lc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}
