package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kingsrock/kingsbot/internal/config"
	"github.com/kingsrock/kingsbot/internal/discord"
	"github.com/kingsrock/kingsbot/internal/health"
	"github.com/kingsrock/kingsbot/internal/logging"
	"github.com/kingsrock/kingsbot/internal/storage"
	v "github.com/kingsrock/kingsbot/internal/version"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogFile)
	log.Info().Str("version", v.AppVersion).Msgf("starting %s", v.AppName)

	var store *storage.Storage
	if cfg.DatabaseURL != "" {
		store, err = storage.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer store.Close()
	} else {
		log.Warn().Msg("DATABASE_URL not set, recruitment commands disabled")
	}

	go health.Serve(ctx, cfg.HealthAddr, log)

	bot, err := discord.NewBot(cfg, store, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := bot.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("bot error")
		}
		cancel()
	case <-ctx.Done():
	}

	log.Info().Msg("exited cleanly")
}
