package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/data/repos"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
)

type Repos struct {
	Asset repos.AssetRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Asset: repos.NewAssetRepo(db, log),
	}
}
