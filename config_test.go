/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{port: 8080, pollInterval: time.Second, sessionTimeout: time.Minute}
	}

	require.NoError(t, valid().validate())

	cfg := valid()
	cfg.port = 0
	assert.ErrorContains(t, cfg.validate(), "invalid port")

	cfg = valid()
	cfg.tlsCert = "cert.pem"
	assert.ErrorContains(t, cfg.validate(), "--tls-key")

	cfg = valid()
	cfg.pollInterval = 0
	assert.ErrorContains(t, cfg.validate(), "poll interval")

	cfg = valid()
	cfg.sessionTimeout = 0
	assert.ErrorContains(t, cfg.validate(), "session timeout")

	cfg = valid()
	cfg.sessionTimeout = -time.Second
	assert.ErrorContains(t, cfg.validate(), "session timeout")
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("PARTYSEED_PORT", "9090")
	t.Setenv("PARTYSEED_POLL_INTERVAL", "250ms")
	t.Setenv("PARTYSEED_DATABASE", "/tmp/partyseed.db")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--bind", "127.0.0.1"}))

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 250*time.Millisecond, cfg.pollInterval)
	assert.Equal(t, "/tmp/partyseed.db", cfg.database)
	assert.Equal(t, "127.0.0.1", cfg.bind)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("PARTYSEED_PORT", "9090")

	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "7070"}))

	assert.Equal(t, 7070, cfg.port)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partyseed.env")
	require.NoError(t, os.WriteFile(path, []byte("PARTYSEED_TEST_FROM_FILE=yes\n"), 0o600))

	t.Setenv("PARTYSEED_ENV_FILE", path)
	t.Setenv("PARTYSEED_TEST_FROM_FILE", "")
	os.Unsetenv("PARTYSEED_TEST_FROM_FILE")

	require.NoError(t, loadEnvFile())
	assert.Equal(t, "yes", os.Getenv("PARTYSEED_TEST_FROM_FILE"))

	t.Setenv("PARTYSEED_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, loadEnvFile(), "a missing env file is not an error")
}
