// Package config loads runtime configuration for the Parley client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-r string   websocket URL of the relay
//	-d string   path of the local vault database
//	-p          open passwordless accounts without prompting
//	-s string   DH strength name
//	-l int      greeting length limit (characters)
//	-t int      invitation dialog timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "120s" or integer nanoseconds:
//
//	{
//	  "relay_url": "ws://127.0.0.1:8787/ws",
//	  "database_dsn": "parley.db",
//	  "passwordless": false,
//	  "dh_strength": "strong",
//	  "greeting_max_len": 256,
//	  "dialog_timeout": "120s"
//	}
//
// Primary API
//
//   - type Config                     — holds the client's runtime settings
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
