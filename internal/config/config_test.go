package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "SIEGE", cfg.Server.SessionID)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Paths.LoadLatest)
	assert.Equal(t, filepath.Join("configs", "tuning.yaml"), cfg.Paths.TuningPath())
	assert.Equal(t, filepath.Join("data", "index", "siege.sqlite"), cfg.IndexPath())
	assert.Equal(t, filepath.Join("data", "levels"), cfg.Paths.LevelsDir())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: "127.0.0.1:9000"
  seed: 42
paths:
  data: /var/lib/siege
logging:
  level: debug
  format: console
`), 0o644))
	t.Setenv("VS_SERVER_SESSION_ID", "ARENA")
	t.Setenv("VS_INDEX_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, int64(42), cfg.Server.Seed)
	assert.Equal(t, "ARENA", cfg.Server.SessionID)
	assert.False(t, cfg.Index.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join("/var/lib/siege", "levels"), cfg.Paths.LevelsDir())
}

func TestLoad_RejectsBadLogging(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
