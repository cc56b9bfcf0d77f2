// Package bootstrap assembles the stores and their backing services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"garagebook/internal/cache"
	"garagebook/internal/config"
	"garagebook/internal/database"
	"garagebook/internal/featureflags"
	"garagebook/internal/middleware"
	"garagebook/internal/notifications"
	"garagebook/internal/repository"
	"garagebook/internal/seed"
	"garagebook/internal/service"
	"garagebook/internal/session"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SessionNamespace separates persisted current-user records in Redis.
	SessionNamespace string
	// PasswordCost overrides the bcrypt cost used for seeded members.
	PasswordCost int
}

// Runtime is everything a binary needs, wired once at startup.
type Runtime struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Repos     repository.Set
	Sessions  session.Store
	Flags     *featureflags.Manager
	Directory *service.Directory
	Garage    *service.Garage
	Hub       *notifications.Hub
	Notifier  *notifications.Notifier
	Relay     *notifications.Relay
}

// InitRuntime opens storage, connects Redis when configured, seeds demo data
// when asked to and builds both stores.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Flags: featureflags.NewManager(cfg.FeatureFlags)}

	if cfg.StoreBackend == config.StoreMemory {
		rt.Repos = repository.NewMemorySet()
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.DB = db
		rt.Repos = repository.NewGormSet(db)
	}

	// Unreachable Redis leaves a nil client and every Redis-backed feature falls back.
	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	sessions, err := newSessionStore(cfg, rt.Redis, opts.SessionNamespace)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Sessions = sessions

	if cfg.SeedMockData {
		if _, err := seed.Seed(ctx, rt.Repos, seed.Options{PasswordCost: opts.PasswordCost}); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	rt.Directory = service.NewDirectory(rt.Repos.Users)
	rt.Garage = service.NewGarage(rt.Repos.Vehicles, rt.Repos.Notifications, nil)

	rt.Hub = notifications.NewHub()
	rt.Notifier = notifications.NewNotifier(rt.Redis)
	rt.Relay = notifications.NewRelay(rt.Hub, rt.Notifier)

	if rt.Flags.On(featureflags.ActivityNotifications) {
		rt.Garage.SetActivityHook(notifications.NewActivityNotifier(rt.Directory, rt.Garage, rt.Relay))
		middleware.Logger.InfoContext(ctx, "activity notifications enabled")
	}

	middleware.Logger.InfoContext(ctx, "runtime ready",
		slog.String("store", cfg.StoreBackend),
		slog.String("session", cfg.SessionBackend),
		slog.Bool("redis", rt.Redis != nil),
	)
	return rt, nil
}

// Identity builds the single-user identity store over the configured session record.
func (r *Runtime) Identity() *service.Identity {
	return service.NewIdentity(r.Directory, r.Sessions)
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() {
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	cache.Close()
}

func newSessionStore(cfg *config.Config, rdb *redis.Client, namespace string) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.SessionRedis:
		if rdb == nil {
			return nil, errors.New("SESSION_BACKEND is redis but Redis is unavailable")
		}
		return session.NewRedisStore(rdb, namespace), nil
	case config.SessionMemory:
		return session.NewMemoryStore(), nil
	default:
		return session.NewFileStore(cfg.SessionDir), nil
	}
}
