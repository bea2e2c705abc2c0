package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_LoadSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Database.DSN = "sqlite::memory:"
	cfg.Bot.AppID = "app-id"
	cfg.Bot.AppPassword = "app-password"
	cfg.Server.SocketPath = "/tmp/bot.sock"
	cfg.Server.PostStartDelay = 2 * time.Second

	path := filepath.Join(t.TempDir(), "secretsanta.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func Test_SaveKeepsFileprivate(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "secretsanta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dsn: x\n"), 0644))
	require.NoError(t, Save(Default(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func Test_LoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secretsanta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("botframework:\n  app_id: abc\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Bot.AppID)
	assert.Equal(t, Default().Server.SocketPath, cfg.Server.SocketPath)

	mode, err := cfg.Server.Mode()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0770), mode)
}

func Test_LoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
