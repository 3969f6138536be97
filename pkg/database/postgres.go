package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	syncdomain "xlytics-backend/internal/sync/domain"
	"xlytics-backend/pkg/config"
)

// NewPostgresConnection opens the database from DATABASE_URL. Failures wrap
// ErrStoreUnavailable so callers can pick between failing hard (CLI sync)
// and degrading to live-only mode (server).
func NewPostgresConnection(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is not configured", syncdomain.ErrStoreUnavailable)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrStoreUnavailable, err)
	}
	return db, nil
}
