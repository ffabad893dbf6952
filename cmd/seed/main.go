package main

import (
	"context"
	"errors"
	"log"

	"authservice/internal/config"
	"authservice/internal/database"
	"authservice/internal/domain"
	"authservice/internal/modules/rbac"
	"authservice/internal/pkg/logger"
	"authservice/internal/pkg/password"
	"authservice/internal/pkg/validator"
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
		logg.Fatal("db connection failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	logg.Info("running migrations")
	if err := database.Migrate(db); err != nil {
		logg.Fatal("migration failed", zap.Error(err))
	}

	ctx := context.Background()
	store := repository.NewStore(db)

	logg.Info("ensuring reserved roles")
	if err := store.Roles().EnsureDefaults(ctx, domain.DefaultRoles()); err != nil {
		logg.Fatal("ensure roles failed", zap.Error(err))
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		logg.Info("SEED_ADMIN_EMAIL/SEED_ADMIN_PASSWORD not set; skipping admin user")
		return
	}
	if err := seedAdmin(ctx, cfg, store); err != nil {
		logg.Fatal("seed admin failed", zap.Error(err))
	}
	logg.Info("seed completed", zap.String("admin_email", cfg.SeedAdminEmail))
}

func seedAdmin(ctx context.Context, cfg *config.Config, store *repository.Store) error {
	if !validator.IsStrongPassword(cfg.SeedAdminPassword) {
		return errors.New("SEED_ADMIN_PASSWORD does not meet the password policy")
	}

	adminRole, err := store.Roles().GetByName(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}

	existing, err := store.Users().GetByEmail(ctx, cfg.SeedAdminEmail)
	switch {
	case err == nil:
		// already seeded; make sure it is still an active admin
		if !rbac.HasRole(existing, domain.RoleAdmin) {
			if err := store.Users().SetRoles(ctx, existing.ID, append(existing.Roles, *adminRole)); err != nil {
				return err
			}
		}
		return store.Users().SetActive(ctx, existing.ID, true)
	case !errors.Is(err, repository.ErrUserNotFound):
		return err
	}

	hash, err := password.New(cfg.PasswordSalt, cfg.PasswordIterations).Hash(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	return store.Users().Create(ctx, &domain.User{
		Email:        cfg.SeedAdminEmail,
		Username:     cfg.SeedAdminUsername,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
		Roles:        []domain.Role{*adminRole},
	})
}
