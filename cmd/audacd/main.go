package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/audacd/internal/config"
	"github.com/danmuck/audacd/internal/observability"
	"github.com/danmuck/audacd/internal/registry"
	"github.com/danmuck/audacd/internal/server"
)

func main() {
	configPath := flag.String("config", "audacd.toml", "path to TOML configuration")
	initConfig := flag.Bool("init-config", false, "write a starter config to the -config path and exit")
	force := flag.Bool("force", false, "overwrite an existing config with -init-config")
	flag.Parse()

	logger := observability.InitLogger("audacd")

	if *initConfig {
		if err := config.WriteTemplate(*configPath, *force); err != nil {
			log.Fatal().Err(err).Msg("failed to write config template")
		}
		log.Info().Str("path", *configPath).Msg("wrote config template")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(observability.ParseLevel(cfg.LogLevel))
	log.Info().Str("path", *configPath).Int("devices", len(cfg.Devices)).Msg("loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(logger)
	defer reg.CloseAll()

	opened := 0
	for _, d := range cfg.Devices {
		openCtx, cancel := context.WithTimeout(ctx, d.Timeout()+10*time.Second)
		_, err := reg.Open(openCtx, d)
		cancel()
		if err != nil {
			// An unreachable device should not take the daemon down; it can
			// be probed and re-added once it is back on the network.
			logger.Error().Str("device", d.ID).Err(err).Msg("skipping device")
			continue
		}
		opened++
	}
	if opened == 0 && len(cfg.Devices) > 0 {
		log.Fatal().Msg("no configured device could be opened")
	}

	srv := server.New(cfg, reg, logger)
	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
	log.Info().Msg("shutdown complete")
}
