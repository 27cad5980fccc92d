// Package bootstrap opens the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"

	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/database"
	"threads/internal/middleware"
	"threads/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// FixturePath, when set, is applied after the schema is in place.
	FixturePath string
}

// InitRuntime connects to the database and Redis. The database is required;
// Redis is optional and a nil client disables caching.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.FixturePath != "" {
		if err := loadFixture(ctx, db, opts.FixturePath); err != nil {
			_ = database.Close(db)
			if r != nil {
				_ = r.Close()
			}
			return nil, nil, err
		}
	}

	return db, r, nil
}

func loadFixture(ctx context.Context, db *gorm.DB, path string) error {
	fx, err := seed.LoadFixtureFile(path)
	if err != nil {
		return fmt.Errorf("failed to load fixture %s: %w", path, err)
	}
	summary, err := seed.ApplyFixture(ctx, db, fx)
	if err != nil {
		return fmt.Errorf("failed to apply fixture %s: %w", path, err)
	}
	middleware.Logger.InfoContext(ctx, "fixture applied",
		"path", path, "users", summary.Users, "threads", summary.Threads, "replies", summary.Replies)
	return nil
}
