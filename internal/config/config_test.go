package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.Backend.URL)
	assert.Equal(t, "memory", cfg.Transcript.Adapter)
	assert.Equal(t, "light", cfg.UI.Theme)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
backend:
  url: https://aura.example.com
  timeout: 10s
transcript:
  adapter: sqlite
  sqlite_path: /tmp/aura.db
ui:
  theme: dark
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://aura.example.com", cfg.Backend.URL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "sqlite", cfg.Transcript.Adapter)
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: light\n"), 0o644))

	t.Setenv("AURA_BACKEND_URL", "http://override:9999")
	t.Setenv("AURA_THEME", "dark")
	t.Setenv("AURA_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://override:9999", cfg.Backend.URL)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, "redis", cfg.Transcript.Adapter)
	assert.Equal(t, "localhost:6379", cfg.Transcript.RedisAddr)
}

func TestLoadRejectsUnknownAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transcript:\n  adapter: carrier-pigeon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: light\n"), 0o644))

	reloaded := make(chan Config, 1)
	w, err := NewWatcher(path, nil, func(c Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("ui:\n  theme: dark\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "dark", cfg.UI.Theme)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload config")
	}
}
