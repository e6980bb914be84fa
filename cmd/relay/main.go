package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmarkov/parley/internal/logging"
	"github.com/dmarkov/parley/internal/relay"
	"github.com/dmarkov/parley/internal/relay/config"
)

func main() {

	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	s := relay.NewServer(cfg.EndpointAddr, logger)
	s.ReadLimit = cfg.ReadLimit
	s.ShutdownGrace = cfg.ShutdownGrace
	if err := s.Run(ctx); err != nil {
		log.Printf("%v", err)
	}
}
