// Package config handles configuration for the relay server, including
// defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the relay.
type Config struct {
	// EndpointAddr is the bind address for the websocket endpoint.
	EndpointAddr string
	// ReadLimit caps the size of a single inbound envelope in bytes.
	ReadLimit int64
	// ShutdownGrace bounds how long a graceful shutdown waits for
	// connections to drain.
	ShutdownGrace time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8787"
	c.ReadLimit = 64 * 1024
	c.ShutdownGrace = 5 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
