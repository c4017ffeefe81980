package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
)

// MaybeRunDev brings the schema up to date when auto-migrate is enabled.
// Postgres runs the goose files; the embedded sqlite driver always uses gorm's
// AutoMigrate since it has no migration history to replay.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}

	if client.Dialect() == config.DBDriverSQLite {
		logg.Info(ctx, "auto-migrating sqlite schema")
		if err := AutoMigrate(client); err != nil {
			return err
		}
		return nil
	}

	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrate creates or updates every model table through gorm.
func AutoMigrate(client *db.Client) error {
	if err := client.DB().AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("gorm automigrate: %w", err)
	}
	return nil
}
