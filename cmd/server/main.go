package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cortex-server/internal/auth"
	"cortex-server/internal/config"
	"cortex-server/internal/logging"
	"cortex-server/internal/middleware"
	"cortex-server/internal/server"
	"cortex-server/internal/store"
	"cortex-server/internal/store/migrations"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg config.Config) error {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	tokenCfg := auth.DefaultTokenConfig(cfg.AccessSecret)
	tokenCfg.Expiry = cfg.TokenExpiry

	limiter := middleware.NewRateLimiter(30, time.Minute)
	defer limiter.Stop()

	h := server.NewHub(st, tokenCfg, logger)
	router, err := server.NewRouter(ctx, server.Deps{
		Config:      cfg,
		Store:       st,
		Hub:         h,
		TokenConfig: tokenCfg,
		Logger:      logger,
		Limiter:     limiter,
	})
	if err != nil {
		return err
	}

	return server.Run(ctx, cfg, server.NewHTTPServer(cfg, router), h, logger)
}

// openStore picks postgres when DATABASE_URL is set and the file-backed
// memory store otherwise, then layers the redis role cache on top when
// REDIS_ADDR is set.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	var (
		st      store.Store
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.DatabaseURL != "" {
		m, err := migrations.New(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		upErr := m.Up()
		if err := m.Close(); err != nil {
			logger.Warn("closing migrator", "error", err)
		}
		if upErr != nil {
			return nil, nil, upErr
		}

		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		st = store.NewPostgres(pool, logger)
		logger.Info("using postgres store")
	} else {
		st = store.NewMemoryWithOptions(store.Options{StateFile: cfg.StateFile, Logger: logger})
		logger.Info("using memory store", "state_file", cfg.StateFile)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			closeAll()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		st = store.NewRoleCache(st, client, cfg.RoleCacheTTL, logger)
		logger.Info("role cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.RoleCacheTTL)
	}

	return st, closeAll, nil
}
