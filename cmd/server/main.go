package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/dicetable/internal/adapters/http"
	wsignal "github.com/dkeye/dicetable/internal/adapters/signal"
	"github.com/dkeye/dicetable/internal/app"
	"github.com/dkeye/dicetable/internal/auth"
	"github.com/dkeye/dicetable/internal/config"
	"github.com/dkeye/dicetable/internal/store"
	"github.com/dkeye/dicetable/internal/store/mongostore"
	"github.com/dkeye/dicetable/internal/store/redisstore"
	"github.com/dkeye/dicetable/internal/store/sqlitestore"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	records, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open record store")
	}
	defer records.Close()

	tokens, err := auth.NewJWTProvider(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init identity provider")
	}

	hub := wsignal.NewHub(app.SimplePolicy{})
	table := app.NewRouter(app.Options{
		GracePeriod:  cfg.GracePeriod,
		ReportErrors: cfg.ReportErrors,
		Sink:         hub,
	})

	r := router.SetupRouter(ctx, cfg, router.Services{
		Router:  table,
		Hub:     hub,
		Store:   records,
		Tokens:  tokens,
		Limiter: wsignal.NewRateLimiter(cfg.RateLimit, cfg.RateInterval),
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("dicetable server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.RecordStore, error) {
	switch cfg.Driver {
	case "redis":
		return redisstore.Open(ctx, cfg.RedisAddr, cfg.TTL)
	case "sqlite":
		return sqlitestore.Open(cfg.SQLitePath)
	case "mongo":
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDB)
	case "memory", "":
		return store.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
