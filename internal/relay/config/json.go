package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmarkov/parley/internal/flagx"
	"github.com/dmarkov/parley/internal/timex"
)

// JsonConfig is the intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its fields are copied into
// the runtime Config struct.
type JsonConfig struct {
	EndpointAddr  string         `json:"endpoint_addr"`
	ReadLimit     int64          `json:"read_limit"`
	ShutdownGrace timex.Duration `json:"shutdown_grace"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config
// command-line flags; if neither is set, no JSON file is loaded.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.ReadLimit = c.ReadLimit
	config.ShutdownGrace = time.Duration(c.ShutdownGrace.Duration)
}
