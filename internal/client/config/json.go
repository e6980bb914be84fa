package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmarkov/parley/internal/flagx"
	"github.com/dmarkov/parley/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	RelayURL       string         `json:"relay_url"`
	DatabaseDSN    string         `json:"database_dsn"`
	Passwordless   bool           `json:"passwordless"`
	DHStrength     string         `json:"dh_strength"`
	GreetingMaxLen int            `json:"greeting_max_len"`
	DialogTimeout  timex.Duration `json:"dialog_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// Lookup order for the JSON file path:
//  1. Command-line flags (-c or -config) via flagx.JsonConfigFlags().
//  2. If empty, no JSON is loaded and the function returns.
//
// Behavior:
//   - Reads and unmarshals the JSON into JsonConfig.
//   - Copies known fields into the provided Config.
//   - Panics on read or unmarshal errors (caller should recover if desired).
//
// Intended usage is: defaults -> parseJson -> parseFlags, where later stages
// override earlier ones.
func parseJson(cfg *Config) {
	// Resolve file path from flags.
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.RelayURL = jc.RelayURL
	cfg.DatabaseDSN = jc.DatabaseDSN
	cfg.Passwordless = jc.Passwordless
	cfg.DHStrength = jc.DHStrength
	cfg.GreetingMaxLen = jc.GreetingMaxLen
	cfg.DialogTimeout = time.Duration(jc.DialogTimeout.Duration)
}
