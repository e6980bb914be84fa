package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmarkov/parley/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   websocket bind address (e.g., ":8787")
//	-m int      maximum inbound envelope size in bytes
//	-g int      shutdown grace period in seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run relay")
	fs.Int64Var(&config.ReadLimit, "m", config.ReadLimit, "maximum inbound envelope size in bytes")
	grace := fs.Int("g", int(config.ShutdownGrace/time.Second), "shutdown grace period in seconds")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ShutdownGrace = time.Duration(*grace) * time.Second
}
