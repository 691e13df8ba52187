// Package bootstrap performs the startup sequence shared by every binary:
// environment, config, logger, database, dev migrations and Redis.
package bootstrap

import (
	"context"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/db"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/migrate"
	"github.com/angelmondragon/serialstock/pkg/redis"
)

// RedisMode says whether a binary can run without Redis.
type RedisMode int

const (
	// RedisOptional connects when configured and continues without it.
	RedisOptional RedisMode = iota
	// RedisRequired fails startup when Redis is not configured.
	RedisRequired
)

// Runtime holds the shared dependencies of a running binary.
type Runtime struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	// Redis is nil when RedisOptional and no endpoint is configured.
	Redis *redis.Client

	closers []func() error
}

// Start brings up the runtime for service. On failure anything already
// opened is closed again.
func Start(ctx context.Context, service string, mode RedisMode) (rt *Runtime, err error) {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	rt = &Runtime{Config: cfg, Logger: NewLogger(service, cfg.App)}
	defer func() {
		if err != nil {
			err = multierr.Append(err, rt.Close())
			rt = nil
		}
	}()
	if envErr != nil {
		rt.Logger.Debug(ctx, ".env not loaded, using process environment")
	}

	rt.DB, err = db.New(ctx, cfg.DB, rt.Logger)
	if err != nil {
		return rt, fmt.Errorf("bootstrap database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	switch {
	case cfg.Redis.Enabled():
		rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger)
		if err != nil {
			return rt, fmt.Errorf("bootstrap redis: %w", err)
		}
		rt.closers = append(rt.closers, rt.Redis.Close)
	case mode == RedisRequired:
		return rt, fmt.Errorf("%s requires redis; set %s", service, config.EnvRedisURL)
	default:
		rt.Logger.Warn(ctx, "redis not configured")
	}
	return rt, nil
}

// NewLogger builds the service logger from the app settings.
func NewLogger(service string, app config.AppConfig) *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
		Format:      app.LogFormat,
	})
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() error {
	var err error
	for _, closeFn := range slices.Backward(r.closers) {
		err = multierr.Append(err, closeFn())
	}
	r.closers = nil
	return err
}
