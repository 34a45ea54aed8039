package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/beanstalk"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beanstalk.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
addr = "queue.internal:11300"
connect_timeout = "200ms"
reconnect_strategy = "exp_backoff"
upper_backoff_bound = "5s"
max_attempts = 7
log_level = "debug"
`)

	cfg, err := loadConfig(path, true)
	require.NoError(t, err)
	assert.Equal(t, "queue.internal:11300", cfg.Addr)
	assert.Equal(t, 7, cfg.MaxAttempts)

	connCfg, err := cfg.beanstalkConfig()
	require.NoError(t, err)
	assert.Equal(t, beanstalk.ReconnectExpBackoff, connCfg.ReconnectStrategy)
	assert.Equal(t, 200*time.Millisecond, connCfg.ConnectTimeout)
	assert.Equal(t, 5*time.Second, connCfg.UpperBackoffBound)
	assert.Equal(t, 7, connCfg.MaxAttempts)
	assert.NotNil(t, connCfg.Logger)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", false)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	cfg, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"), false)
	require.NoError(t, err)
	assert.Equal(t, beanstalk.DefaultAddr, cfg.Addr)

	connCfg, err := cfg.beanstalkConfig()
	require.NoError(t, err)
	assert.Equal(t, beanstalk.ReconnectNone, connCfg.ReconnectStrategy)
	assert.Zero(t, connCfg.ConnectTimeout)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), true)
	require.ErrorContains(t, err, "open config")

	_, err = loadConfig(writeConfig(t, `hostname = "x"`), true)
	require.ErrorContains(t, err, "parse config")

	_, err = loadConfig(writeConfig(t, `max_attempts = "three"`), true)
	require.ErrorContains(t, err, "parse config")
}

func TestBeanstalkConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  cliConfig
	}{
		{"strategy", cliConfig{ReconnectStrategy: "forever"}},
		{"connect timeout", cliConfig{ReconnectStrategy: "none", ConnectTimeout: "soon"}},
		{"upper bound", cliConfig{ReconnectStrategy: "none", UpperBackoffBound: "10 parsecs"}},
		{"log level", cliConfig{ReconnectStrategy: "none", LogLevel: "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.beanstalkConfig()
			require.ErrorIs(t, err, beanstalk.ErrInvalidConfig)
		})
	}
}

func TestConfigFlag(t *testing.T) {
	server := newTestServer(t)
	path := writeConfig(t, `addr = "`+server.Addr()+`"`)

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", path, "put", "x"})
	cmd.SetOut(new(nopWriter))
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"put 2147483648 0 120 1"}, server.CommandLines())
}

func TestConfigFlag_MissingFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.toml"), "tubes"})
	require.ErrorContains(t, cmd.Execute(), "open config")
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
