package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/data/repos/media"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

type AssetRepo = media.AssetRepo

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return media.NewAssetRepo(db, baseLog)
}
