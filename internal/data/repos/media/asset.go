package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mediavault-backend/internal/platform/dbctx"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

const (
	CounterViews     = "view_count"
	CounterDownloads = "download_count"
)

type AssetRepo interface {
	Create(dbc dbctx.Context, rows []*types.Asset) ([]*types.Asset, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error)
	GetByIDForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)
	GetAccessible(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)

	ListByOwner(dbc dbctx.Context, businessID uuid.UUID, filter types.AssetFilter, page types.Page) ([]*types.Asset, int64, error)
	ListPublic(dbc dbctx.Context, filter types.AssetFilter, page types.Page) ([]*types.Asset, int64, error)
	Recent(dbc dbctx.Context, businessID uuid.UUID, limit int) ([]*types.Asset, error)
	Stats(dbc dbctx.Context, businessID uuid.UUID) (*types.AssetStats, error)

	UpdateFieldsForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID, updates map[string]interface{}) (int64, error)
	IncrementCounter(dbc dbctx.Context, id uuid.UUID, column string) (int64, error)

	FullDeleteByIDForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (int64, error)
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return &assetRepo{db: db, log: baseLog.With("repo", "AssetRepo")}
}

func (r *assetRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Context())
}

func (r *assetRepo) Create(dbc dbctx.Context, rows []*types.Asset) ([]*types.Asset, error) {
	if len(rows) == 0 {
		return []*types.Asset{}, nil
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *assetRepo) first(q *gorm.DB) (*types.Asset, error) {
	var out []*types.Asset
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ?", id))
}

func (r *assetRepo) GetByIDForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	if id == uuid.Nil || businessID == uuid.Nil {
		return nil, nil
	}
	return r.first(r.tx(dbc).Where("id = ? AND business_id = ?", id, businessID))
}

// GetAccessible returns the row when the caller owns it or it is public.
func (r *assetRepo) GetAccessible(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	if businessID == uuid.Nil {
		return r.first(r.tx(dbc).Where("id = ? AND is_public = ?", id, true))
	}
	return r.first(r.tx(dbc).Where("id = ? AND (business_id = ? OR is_public = ?)", id, businessID, true))
}

func (r *assetRepo) ListByOwner(dbc dbctx.Context, businessID uuid.UUID, filter types.AssetFilter, page types.Page) ([]*types.Asset, int64, error) {
	if businessID == uuid.Nil {
		return []*types.Asset{}, 0, nil
	}
	q := r.tx(dbc).Model(&types.Asset{}).Where("business_id = ?", businessID)
	return r.paginate(applyFilter(q, filter), page)
}

func (r *assetRepo) ListPublic(dbc dbctx.Context, filter types.AssetFilter, page types.Page) ([]*types.Asset, int64, error) {
	filter.IsPublic = nil
	q := r.tx(dbc).Model(&types.Asset{}).Where("is_public = ?", true)
	return r.paginate(applyFilter(q, filter), page)
}

func (r *assetRepo) paginate(q *gorm.DB, page types.Page) ([]*types.Asset, int64, error) {
	page = page.Normalize()
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	out := []*types.Asset{}
	if err := q.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func applyFilter(q *gorm.DB, filter types.AssetFilter) *gorm.DB {
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.IsPublic != nil {
		q = q.Where("is_public = ?", *filter.IsPublic)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(
			`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(original_name) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	return q
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *assetRepo) Recent(dbc dbctx.Context, businessID uuid.UUID, limit int) ([]*types.Asset, error) {
	out := []*types.Asset{}
	if businessID == uuid.Nil {
		return out, nil
	}
	limit = types.Page{Limit: limit}.Normalize().Limit
	if err := r.tx(dbc).
		Where("business_id = ?", businessID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assetRepo) Stats(dbc dbctx.Context, businessID uuid.UUID) (*types.AssetStats, error) {
	out := &types.AssetStats{ByKind: map[types.AssetKind]int64{}}
	if businessID == uuid.Nil {
		return out, nil
	}
	var totals struct {
		TotalAssets    int64
		TotalBytes     int64
		TotalViews     int64
		TotalDownloads int64
	}
	if err := r.tx(dbc).Model(&types.Asset{}).
		Select(`COUNT(*) AS total_assets,
			COALESCE(SUM(size_bytes), 0) AS total_bytes,
			COALESCE(SUM(view_count), 0) AS total_views,
			COALESCE(SUM(download_count), 0) AS total_downloads`).
		Where("business_id = ?", businessID).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	var byKind []struct {
		Kind  types.AssetKind
		Total int64
	}
	if err := r.tx(dbc).Model(&types.Asset{}).
		Select("kind, COUNT(*) AS total").
		Where("business_id = ?", businessID).
		Group("kind").
		Scan(&byKind).Error; err != nil {
		return nil, err
	}
	out.TotalAssets = totals.TotalAssets
	out.TotalBytes = totals.TotalBytes
	out.TotalViews = totals.TotalViews
	out.TotalDownloads = totals.TotalDownloads
	for _, row := range byKind {
		out.ByKind[row.Kind] = row.Total
	}
	return out, nil
}

func (r *assetRepo) UpdateFieldsForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID, updates map[string]interface{}) (int64, error) {
	if id == uuid.Nil || businessID == uuid.Nil {
		return 0, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.tx(dbc).
		Model(&types.Asset{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// IncrementCounter bumps a counter column in a single UPDATE so concurrent
// callers never lose increments.
func (r *assetRepo) IncrementCounter(dbc dbctx.Context, id uuid.UUID, column string) (int64, error) {
	if column != CounterViews && column != CounterDownloads {
		return 0, fmt.Errorf("unknown counter column %q", column)
	}
	if id == uuid.Nil {
		return 0, nil
	}
	res := r.tx(dbc).
		Model(&types.Asset{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *assetRepo) FullDeleteByIDForOwner(dbc dbctx.Context, id uuid.UUID, businessID uuid.UUID) (int64, error) {
	if id == uuid.Nil || businessID == uuid.Nil {
		return 0, nil
	}
	res := r.tx(dbc).
		Where("id = ? AND business_id = ?", id, businessID).
		Delete(&types.Asset{})
	return res.RowsAffected, res.Error
}
