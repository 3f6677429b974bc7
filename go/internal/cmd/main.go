package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	env, err := loadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read environment")
	}
	setupLogging(env)

	cfg, err := loadSnapshot(env.ConfigPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.ConfigPath).Msg("invalid config")
	}
	msgs, err := loadMessages(env.MessagesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.MessagesPath).Msg("invalid messages")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, env, cfg, msgs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	services.Start(ctx)

	server := setupServer(env.Port, services)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	services.Wait()
	services.Close()

	log.Info().Msg("nightskip shutdown complete")
}

func setupLogging(env Env) {
	if !env.LogJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Str("level", env.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
