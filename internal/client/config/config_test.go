package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/cryptox"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.RelayURL, "ws://127.0.0.1:8787/ws")
	assert.Equal(t, c.DatabaseDSN, "parley.db")
	assert.False(t, c.Passwordless)
	assert.Equal(t, c.DHStrength, "strong")
	assert.Equal(t, c.GreetingMaxLen, common.GreetingMaxLen)
	assert.Equal(t, c.DialogTimeout, 2*time.Minute)
}

func TestDHGroup(t *testing.T) {
	var c Config
	c.LoadDefaults()
	assert.Equal(t, cryptox.Group3072, c.DHGroup())

	c.DHStrength = "tinfoil"
	assert.Equal(t, cryptox.Group8192, c.DHGroup())

	c.DHStrength = "normal (2048 bit)"
	assert.Equal(t, cryptox.Group2048, c.DHGroup())

	c.DHStrength = "no-such-strength"
	assert.Equal(t, cryptox.DefaultGroup, c.DHGroup())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.RelayURL, "ws://127.0.0.1:8787/ws")
	assert.Equal(t, c.DatabaseDSN, "parley.db")
	assert.Equal(t, c.DialogTimeout, 2*time.Minute)
}
