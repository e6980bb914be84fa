package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"relay_url":      "ws://relay.example:9999/ws",
		"database_dsn":   "/tmp/vault.db",
		"passwordless":   true,
		"dh_strength":    "paranoid",
		"dialog_timeout": "30s",
	})

	t.Run("loads from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "ws://relay.example:9999/ws", cfg.RelayURL)
		assert.Equal(t, "/tmp/vault.db", cfg.DatabaseDSN)
		assert.True(t, cfg.Passwordless)
		assert.Equal(t, "paranoid", cfg.DHStrength)
		assert.Equal(t, 30*time.Second, cfg.DialogTimeout)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			RelayURL:      "ws://defaults:1234/ws",
			DialogTimeout: 42 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "ws://defaults:1234/ws", cfg.RelayURL)
		assert.Equal(t, 42*time.Second, cfg.DialogTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
