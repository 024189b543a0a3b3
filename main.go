package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-chat/config"
	"clinic-chat/routes"
	"clinic-chat/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger, closer, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open log file")
	}
	defer closer.Close()
	log.Logger = logger
	zerolog.SetGlobalLevel(logger.GetLevel())
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, cleanup, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open message store")
	}
	defer cleanup()

	node := uuid.NewString()
	var fanout services.Fanout
	if cfg.NatsURL != "" {
		nf, err := services.NewNatsFanout(cfg.NatsURL, cfg.NatsSubject, node)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start fan-out")
		}
		defer nf.Close()
		fanout = nf
	}

	hub := services.NewWSManager(node, fanout)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.RegisterRoutes(cfg, repo, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("node", node).Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (services.MessageRepository, func(), error) {
	if cfg.DBDriver == "mongo" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		repo, client, err := services.NewMongoRepository(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { client.Disconnect(context.Background()) }, nil
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return services.NewGormRepository(db), func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}, nil
}
