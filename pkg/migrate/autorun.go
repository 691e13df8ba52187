package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/db"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

// MaybeRunDev applies pending migrations at startup when running in dev with
// the auto-migrate flag set. Every other environment migrates through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("migrate: unwrap sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, cfg.DB.Driver, nil)
	if err != nil {
		return err
	}

	applied, err := runner.Up(ctx)
	ctx = logg.WithFields(ctx, map[string]any{"driver": cfg.DB.Driver, "applied": len(applied)})
	if err != nil {
		logg.Error(ctx, "dev auto-migrate failed", err)
		return err
	}
	for _, step := range applied {
		logg.Debug(logg.WithField(ctx, "version", step.Version), "migration applied")
	}
	logg.Info(ctx, "dev auto-migrate complete")
	return nil
}
