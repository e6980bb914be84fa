package config

import (
	"time"

	"github.com/dmarkov/parley/internal/common"
	"github.com/dmarkov/parley/internal/cryptox"
)

// Config holds runtime settings for the Parley client.
//
// Fields:
//   - RelayURL: websocket endpoint of the rendezvous relay.
//   - DatabaseDSN: path of the local encrypted sqlite vault.
//   - Passwordless: open accounts encrypted under the well-known anonymous
//     password without prompting. A deliberate weakening, not an oversight.
//   - DHStrength: Diffie-Hellman group selector by human-friendly name
//     (see cryptox.GroupNames).
//   - GreetingMaxLen: longest accepted invitation greeting, characters.
//   - DialogTimeout: how long an incoming invitation waits for the human
//     before it is dropped.
type Config struct {
	RelayURL       string
	DatabaseDSN    string
	Passwordless   bool
	DHStrength     string
	GreetingMaxLen int
	DialogTimeout  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RelayURL = "ws://127.0.0.1:8787/ws"
	c.DatabaseDSN = "parley.db"
	c.Passwordless = false
	c.DHStrength = "strong"
	c.GreetingMaxLen = common.GreetingMaxLen
	c.DialogTimeout = 2 * time.Minute
}

// DHGroup resolves the configured strength name to a group, falling back
// to the default group for unknown names.
func (c *Config) DHGroup() cryptox.Group {
	if g, ok := cryptox.GroupByName(c.DHStrength); ok {
		return g
	}
	return cryptox.DefaultGroup
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
