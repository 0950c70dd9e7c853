// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"

	"lufeed/internal/cache"
	"lufeed/internal/config"
	"lufeed/internal/database"
	"lufeed/internal/models"
	"lufeed/internal/observability"
	"lufeed/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset, when set, seeds an empty database with the named preset
	// outside production.
	SeedPreset string
}

// InitRuntime connects to the database and Redis, applies the cache TTL,
// and optionally seeds demo data. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	cache.FeedTTL = cfg.FeedCacheTTL

	if err := seedIfEmpty(ctx, cfg, db, opts.SeedPreset); err != nil {
		return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
	}

	return db, cache.GetClient(), nil
}

// TracingConfig maps the application config onto the tracer settings.
func TracingConfig(cfg *config.Config, version string) observability.TracingConfig {
	ratio := 1.0
	if cfg.IsProduction() {
		ratio = 0.1
	}
	return observability.TracingConfig{
		ServiceName:    "lufeed-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   ratio,
	}
}

func seedIfEmpty(ctx context.Context, cfg *config.Config, db *gorm.DB, presetName string) error {
	if presetName == "" || cfg.IsProduction() {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	preset, err := seed.LoadPreset(presetName)
	if err != nil {
		return err
	}
	_, err = seed.NewSeeder(db).Run(ctx, preset)
	return err
}
