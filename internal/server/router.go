package server

import (
	"context"

	"authservice/internal/config"
	"authservice/internal/database"
	"authservice/internal/domain"
	"authservice/internal/middleware"
	"authservice/internal/modules/auth"
	"authservice/internal/modules/rbac"
	"authservice/internal/modules/system"
	"authservice/internal/pkg/jwt"
	"authservice/internal/pkg/logger"
	"authservice/internal/pkg/password"
	"authservice/internal/pkg/ratelimit"
	"authservice/internal/pkg/validator"
	"authservice/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client // nil disables rate limiting and the redis health check
	Log    *zap.Logger
}

// NewRouter builds the HTTP surface:
//
//	/health                            public
//	/metrics                           bearer token + read_metrics permission
//	/api/v1/auth/*                     public, login/refresh rate limited
//	/api/v1/users/me/*                 bearer token
//	/api/v1/admin/*                    bearer token + admin role
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	validator.RegisterGinValidators()

	tokens := jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	hasher := password.New(cfg.PasswordSalt, cfg.PasswordIterations)
	store := repository.NewStore(d.DB)

	authService := auth.NewService(auth.NewStore(store), tokens, hasher, logger.WithComponent(d.Log, "auth"))
	authHandler := auth.NewHandler(authService)

	rbacService := rbac.NewService(store.Roles(), store.Users(), store.Ledger(), logger.WithComponent(d.Log, "rbac"))
	rbacHandler := rbac.NewHandler(rbacService)

	health := system.NewHealthHandler(cfg.DBTimeout, d.Log).
		With("database", system.PingFunc(func(ctx context.Context) error {
			return database.Ping(ctx, d.DB)
		}))

	var limiter ratelimit.Limiter = ratelimit.NoopLimiter{}
	if d.Redis != nil {
		health.With("redis", system.RedisPinger(d.Redis))
		if cfg.RateLimitActive() {
			limiter = ratelimit.NewRedisLimiter(d.Redis, "ratelimit:")
		}
	}

	r := gin.New()
	r.Use(
		middleware.ErrorLogger(d.Log),
		middleware.RequestID(),
		middleware.RequestLogger(d.Log),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.RequireJSON(),
	)

	health.RegisterRoutes(r)
	system.NewMetricsHandler(store, cfg.DBTimeout, logger.WithComponent(d.Log, "metrics")).
		RegisterRoutes(r, middleware.JWTAuth(tokens), middleware.RequireAnyPermission(domain.PermReadMetrics))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter, "api", cfg.RateLimitDefault, cfg.RateLimitWindow, d.Log))
	{
		authHandler.RegisterPublicRoutes(v1,
			middleware.RateLimit(limiter, "login", cfg.RateLimitLogin, cfg.RateLimitWindow, d.Log))

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		authHandler.RegisterProtectedRoutes(protected)

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(tokens), middleware.RequireAnyRole(domain.RoleAdmin))
		rbacHandler.RegisterRoutes(admin)
	}

	return r
}
