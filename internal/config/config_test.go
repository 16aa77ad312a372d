package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7790, cfg.Server.Port)
	assert.Equal(t, 20, cfg.Server.Threads)
}

func TestLoadYamlOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\nesb:\n  base_url: http://esb.local\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "http://esb.local", cfg.Esb.BaseURL)
}

func TestLoadEnvOverlayOverridesCredentials(t *testing.T) {
	t.Setenv("ATMGW_ESB_USERNAME", "envuser")
	t.Setenv("ATMGW_ESB_PASSWORD", "envpass")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "envuser", cfg.Esb.Username)
	assert.Equal(t, "envpass", cfg.Esb.Password)
}

func TestSocketTimeoutConversion(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(300_000_000_000), cfg.Server.SocketTimeout().Nanoseconds())
}
