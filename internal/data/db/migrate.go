package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Uploaded media catalog
		&types.Asset{},
	)
}

// EnsureAssetIndexes adds postgres-only indexes that gorm tags cannot express.
func EnsureAssetIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_asset_public_created
		ON asset(created_at DESC)
		WHERE is_public = true;
	`).Error; err != nil {
		return fmt.Errorf("create idx_asset_public_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_asset_search_fts
		ON asset
		USING GIN (to_tsvector('simple', coalesce(title, '') || ' ' || coalesce(description, '') || ' ' || original_name));
	`).Error; err != nil {
		return fmt.Errorf("create idx_asset_search_fts: %w", err)
	}
	return nil
}
