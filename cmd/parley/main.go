package main

import (
	"context"
	"log"
	"os"

	"github.com/dmarkov/parley/internal/buildinfo"
	"github.com/dmarkov/parley/internal/client/cli"
	"github.com/dmarkov/parley/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
