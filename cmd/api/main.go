package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"authservice/internal/config"
	"authservice/internal/database"
	"authservice/internal/domain"
	"authservice/internal/modules/auth"
	"authservice/internal/pkg/logger"
	"authservice/internal/repository"
	"authservice/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.AppEnv)
	defer func() { _ = logg.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.Migrate(db); err != nil {
		logg.Fatal("migration failed", zap.Error(err))
	}

	store := repository.NewStore(db)
	if err := store.Roles().EnsureDefaults(context.Background(), domain.DefaultRoles()); err != nil {
		logg.Fatal("ensure default roles failed", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logg.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logg.Warn("redis unreachable; rate limiting fails open", zap.Error(err))
		}
		cancel()
	} else {
		logg.Info("REDIS_URL not set; rate limiting disabled")
	}

	router := server.NewRouter(server.Deps{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Log:    logg,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := auth.NewSweeper(store.Ledger(), cfg.SweepInterval, cfg.DBTimeout, logger.WithComponent(logg, "sweeper"))
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
}
