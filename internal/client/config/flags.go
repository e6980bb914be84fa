package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmarkov/parley/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   websocket URL of the relay (default from Config)
//	-d string   path of the local vault database
//	-p          open passwordless accounts without prompting
//	-s string   DH strength name (normal/strong/very strong/paranoid/tinfoil)
//	-l int      greeting length limit, characters
//	-t int      invitation dialog timeout in seconds
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-d", "-p", "-s", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RelayURL, "r", cfg.RelayURL, "websocket URL of the relay")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "path of the local vault database")
	fs.BoolVar(&cfg.Passwordless, "p", cfg.Passwordless, "open passwordless accounts without prompting")
	fs.StringVar(&cfg.DHStrength, "s", cfg.DHStrength, "DH strength name")
	fs.IntVar(&cfg.GreetingMaxLen, "l", cfg.GreetingMaxLen, "greeting length limit (characters)")
	dialogTimeout := fs.Int("t", int(cfg.DialogTimeout.Seconds()), "invitation dialog timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DialogTimeout = time.Duration(*dialogTimeout) * time.Second
}
