package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/types"
)

// NewAsset builds an unsaved asset row owned by businessID.
func NewAsset(businessID uuid.UUID, kind types.AssetKind, name string) *types.Asset {
	id := uuid.New()
	folder := "images"
	mime := "image/png"
	if kind == types.AssetKindVideo {
		folder = "videos"
		mime = "video/mp4"
	}
	key := fmt.Sprintf("%s/%d-%s-%s", folder, time.Now().UnixMilli(), id.String()[:8], name)
	return &types.Asset{
		ID:           id,
		BusinessID:   businessID,
		OriginalName: name,
		FileName:     key[len(folder)+1:],
		StorageKey:   key,
		URL:          "https://media.s3.us-east-1.amazonaws.com/" + key,
		SizeBytes:    1024,
		MimeType:     mime,
		Kind:         kind,
		Title:        name,
		Tags:         datatypes.JSONSlice[string]{},
		Metadata:     datatypes.JSONMap{},
	}
}

func SeedAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, a *types.Asset) *types.Asset {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed asset: %v", err)
	}
	return a
}
