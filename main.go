package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flipcard/internal/config"
	"github.com/robalobadob/flipcard/internal/deck"
	"github.com/robalobadob/flipcard/internal/httpserver"
	"github.com/robalobadob/flipcard/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	defs, err := deck.Load(cfg.CardsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load card table")
	}

	factory := &session.Factory{Defs: defs, Seed: cfg.Seed}
	st, closeStore, err := openStore(cfg, factory)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open session store")
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweep(ctx, st, cfg.SessionTTL, cfg.SweepEvery)

	srv := httpserver.New(st, factory, httpserver.Options{
		Secret:     cfg.JWTSecret,
		SessionTTL: cfg.SessionTTL,
		Origin:     cfg.ClientOrigin,
		Secure:     cfg.Production(),
		DailySalt:  cfg.DailySalt,
		CookieName: cfg.CookieName,
	})
	log.Info().Str("port", cfg.Port).Int("pairs", len(defs)).Str("store", cfg.Store).Msg("starting flipcard server")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
