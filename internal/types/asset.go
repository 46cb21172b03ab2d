package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssetKind string

const (
	AssetKindVideo AssetKind = "video"
	AssetKindImage AssetKind = "image"
	AssetKindAudio AssetKind = "audio"
	AssetKindOther AssetKind = "other"
)

// Asset is one uploaded file's catalog row. StorageKey, SizeBytes, MimeType and
// Kind are fixed at creation; only presentation fields and IsPublic change.
type Asset struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BusinessID uuid.UUID `gorm:"type:uuid;column:business_id;not null;index:idx_asset_business_created,priority:1" json:"business_id"`

	OriginalName string    `gorm:"column:original_name;not null" json:"original_name"`
	FileName     string    `gorm:"column:file_name;not null" json:"file_name"`
	StorageKey   string    `gorm:"column:storage_key;not null;uniqueIndex" json:"storage_key"`
	URL          string    `gorm:"column:url;not null" json:"url"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null" json:"file_size"`
	MimeType     string    `gorm:"column:mime_type;not null" json:"mime_type"`
	Kind         AssetKind `gorm:"column:kind;not null;index" json:"file_type"`

	DurationSeconds float64 `gorm:"column:duration_seconds;not null;default:0" json:"duration"`
	ThumbnailURL    *string `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	ThumbnailKey    *string `gorm:"column:thumbnail_key" json:"-"`

	Title       string                      `gorm:"column:title" json:"title"`
	Description string                      `gorm:"column:description" json:"description"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	Metadata    datatypes.JSONMap           `gorm:"column:metadata" json:"metadata"`

	IsPublic bool `gorm:"column:is_public;not null;default:false;index" json:"is_public"`

	ViewCount     int64 `gorm:"column:view_count;not null;default:0" json:"view_count"`
	DownloadCount int64 `gorm:"column:download_count;not null;default:0" json:"download_count"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_asset_business_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Asset) TableName() string { return "asset" }

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Tags == nil {
		a.Tags = datatypes.JSONSlice[string]{}
	}
	if a.Metadata == nil {
		a.Metadata = datatypes.JSONMap{}
	}
	return nil
}

// HasThumbnail reports whether a derived thumbnail object exists for the asset.
func (a *Asset) HasThumbnail() bool {
	return a != nil && a.ThumbnailKey != nil && *a.ThumbnailKey != ""
}

// AssetPatch holds the mutable subset of an Asset. Nil fields are left untouched.
type AssetPatch struct {
	Title       *string
	Description *string
	Tags        *[]string
	IsPublic    *bool
	Metadata    map[string]interface{}
}

func (p AssetPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Tags == nil && p.IsPublic == nil && p.Metadata == nil
}

// AssetFilter narrows owner listings. Zero values mean "no constraint".
type AssetFilter struct {
	Kind     AssetKind
	IsPublic *bool
	Query    string
}

type Page struct {
	Page  int
	Limit int
}

func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type AssetList struct {
	Assets []*Asset `json:"uploads"`
	Total  int64    `json:"total"`
	Page   int      `json:"page"`
	Limit  int      `json:"limit"`
}

type AssetStats struct {
	TotalAssets    int64               `json:"total_uploads"`
	TotalBytes     int64               `json:"total_size"`
	TotalViews     int64               `json:"total_views"`
	TotalDownloads int64               `json:"total_downloads"`
	ByKind         map[AssetKind]int64 `json:"by_type"`
}
