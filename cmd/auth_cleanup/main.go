package main

import (
	"context"
	"log"

	"authservice/internal/config"
	"authservice/internal/database"
	"authservice/internal/modules/auth"
	"authservice/internal/pkg/logger"
	"authservice/internal/repository"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logg := logger.New(cfg.LogLevel, cfg.AppEnv)
	defer func() { _ = logg.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
	defer cancel()

	sweeper := auth.NewSweeper(repository.NewStore(db).Ledger(), cfg.SweepInterval, cfg.DBTimeout, logg)
	n, err := sweeper.SweepOnce(ctx)
	if err != nil {
		logg.Fatal("cleanup refresh_tokens failed", zap.Error(err))
	}

	logg.Info("auth cleanup completed", zap.Int64("refresh_tokens", n))
}
