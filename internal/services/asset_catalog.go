package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/mediavault-backend/internal/data/repos"
	"github.com/yungbote/mediavault-backend/internal/data/repos/media"
	"github.com/yungbote/mediavault-backend/internal/platform/dbctx"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/types"
)

type AssetCatalog interface {
	Create(ctx context.Context, asset *types.Asset) (*types.Asset, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Asset, error)
	GetForOwner(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)
	GetAccessible(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)

	ListByOwner(ctx context.Context, businessID uuid.UUID, filter types.AssetFilter, page types.Page) (*types.AssetList, error)
	ListPublic(ctx context.Context, filter types.AssetFilter, page types.Page) (*types.AssetList, error)
	Search(ctx context.Context, businessID uuid.UUID, query string, filter types.AssetFilter, page types.Page) (*types.AssetList, error)
	Recent(ctx context.Context, businessID uuid.UUID, limit int) ([]*types.Asset, error)
	Stats(ctx context.Context, businessID uuid.UUID) (*types.AssetStats, error)

	Update(ctx context.Context, id uuid.UUID, businessID uuid.UUID, patch types.AssetPatch) (*types.Asset, error)
	Delete(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error)

	IncrementView(ctx context.Context, id uuid.UUID) error
	IncrementDownload(ctx context.Context, id uuid.UUID) error
}

type assetCatalog struct {
	log       *logger.Logger
	assetRepo repos.AssetRepo
}

func NewAssetCatalog(baseLog *logger.Logger, assetRepo repos.AssetRepo) AssetCatalog {
	return &assetCatalog{
		log:       baseLog.With("service", "AssetCatalog"),
		assetRepo: assetRepo,
	}
}

func (s *assetCatalog) Create(ctx context.Context, asset *types.Asset) (*types.Asset, error) {
	if asset == nil {
		return nil, fmt.Errorf("create asset: nil record")
	}
	rows, err := s.assetRepo.Create(dbctx.New(ctx), []*types.Asset{asset})
	if err != nil {
		return nil, StorageError("create asset record", err)
	}
	return rows[0], nil
}

func (s *assetCatalog) Get(ctx context.Context, id uuid.UUID) (*types.Asset, error) {
	return s.found(s.assetRepo.GetByID(dbctx.New(ctx), id))
}

func (s *assetCatalog) GetForOwner(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	return s.found(s.assetRepo.GetByIDForOwner(dbctx.New(ctx), id, businessID))
}

func (s *assetCatalog) GetAccessible(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	row, err := s.assetRepo.GetAccessible(dbctx.New(ctx), id, businessID)
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if row == nil {
		return nil, AccessDeniedError("upload")
	}
	return row, nil
}

func (s *assetCatalog) found(row *types.Asset, err error) (*types.Asset, error) {
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}
	if row == nil {
		return nil, NotFoundError("upload")
	}
	return row, nil
}

func (s *assetCatalog) ListByOwner(ctx context.Context, businessID uuid.UUID, filter types.AssetFilter, page types.Page) (*types.AssetList, error) {
	rows, total, err := s.assetRepo.ListByOwner(dbctx.New(ctx), businessID, filter, page)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assetList(rows, total, page), nil
}

func (s *assetCatalog) ListPublic(ctx context.Context, filter types.AssetFilter, page types.Page) (*types.AssetList, error) {
	rows, total, err := s.assetRepo.ListPublic(dbctx.New(ctx), filter, page)
	if err != nil {
		return nil, fmt.Errorf("list public assets: %w", err)
	}
	return assetList(rows, total, page), nil
}

func (s *assetCatalog) Search(ctx context.Context, businessID uuid.UUID, query string, filter types.AssetFilter, page types.Page) (*types.AssetList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ValidationError("search query is required")
	}
	filter.Query = query
	return s.ListByOwner(ctx, businessID, filter, page)
}

func (s *assetCatalog) Recent(ctx context.Context, businessID uuid.UUID, limit int) ([]*types.Asset, error) {
	rows, err := s.assetRepo.Recent(dbctx.New(ctx), businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent assets: %w", err)
	}
	return rows, nil
}

func (s *assetCatalog) Stats(ctx context.Context, businessID uuid.UUID) (*types.AssetStats, error) {
	stats, err := s.assetRepo.Stats(dbctx.New(ctx), businessID)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	return stats, nil
}

// Update writes only presentation fields and visibility.
func (s *assetCatalog) Update(ctx context.Context, id uuid.UUID, businessID uuid.UUID, patch types.AssetPatch) (*types.Asset, error) {
	dbc := dbctx.New(ctx)
	if patch.Empty() {
		return s.GetForOwner(ctx, id, businessID)
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Tags != nil {
		updates["tags"] = datatypes.JSONSlice[string](normalizeTags(*patch.Tags))
	}
	if patch.IsPublic != nil {
		updates["is_public"] = *patch.IsPublic
	}
	if patch.Metadata != nil {
		updates["metadata"] = datatypes.JSONMap(patch.Metadata)
	}

	n, err := s.assetRepo.UpdateFieldsForOwner(dbc, id, businessID, updates)
	if err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}
	if n == 0 {
		return nil, NotFoundError("upload")
	}
	return s.GetForOwner(ctx, id, businessID)
}

// Delete removes the row and hands it back so the caller can clean storage.
func (s *assetCatalog) Delete(ctx context.Context, id uuid.UUID, businessID uuid.UUID) (*types.Asset, error) {
	dbc := dbctx.New(ctx)
	row, err := s.GetForOwner(ctx, id, businessID)
	if err != nil {
		return nil, err
	}
	n, err := s.assetRepo.FullDeleteByIDForOwner(dbc, id, businessID)
	if err != nil {
		return nil, fmt.Errorf("delete asset: %w", err)
	}
	if n == 0 {
		return nil, NotFoundError("upload")
	}
	return row, nil
}

func (s *assetCatalog) IncrementView(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, id, media.CounterViews)
}

func (s *assetCatalog) IncrementDownload(ctx context.Context, id uuid.UUID) error {
	return s.increment(ctx, id, media.CounterDownloads)
}

func (s *assetCatalog) increment(ctx context.Context, id uuid.UUID, column string) error {
	n, err := s.assetRepo.IncrementCounter(dbctx.New(ctx), id, column)
	if err != nil {
		return fmt.Errorf("increment %s: %w", column, err)
	}
	if n == 0 {
		return NotFoundError("upload")
	}
	return nil
}

func assetList(rows []*types.Asset, total int64, page types.Page) *types.AssetList {
	page = page.Normalize()
	if rows == nil {
		rows = []*types.Asset{}
	}
	return &types.AssetList{Assets: rows, Total: total, Page: page.Page, Limit: page.Limit}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PatchFromMap keeps the whitelisted keys of a client payload and silently
// drops everything else.
func PatchFromMap(in map[string]interface{}) types.AssetPatch {
	var p types.AssetPatch
	if v, ok := in["title"].(string); ok {
		p.Title = &v
	}
	if v, ok := in["description"].(string); ok {
		p.Description = &v
	}
	if raw, ok := in["tags"]; ok {
		if tags, ok := coerceTags(raw); ok {
			p.Tags = &tags
		}
	}
	if raw, ok := in["is_public"]; ok {
		if b, ok := coerceBool(raw); ok {
			p.IsPublic = &b
		}
	}
	if raw, ok := in["metadata"]; ok {
		if m, ok := coerceMetadata(raw); ok {
			p.Metadata = m
		}
	}
	return p
}

func coerceTags(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		return decodeTags(v)
	default:
		return nil, false
	}
}

func coerceBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	}
	return false, false
}

func coerceMetadata(raw interface{}) (map[string]interface{}, bool) {
	switch v := raw.(type) {
	case map[string]interface{}:
		return v, true
	case string:
		return decodeMetadata(v)
	default:
		return nil, false
	}
}

// ParseTags decodes a JSON array of strings. Invalid input yields an empty
// list rather than an error.
func ParseTags(raw string) []string {
	if tags, ok := decodeTags(raw); ok {
		return tags
	}
	return []string{}
}

// ParseMetadata decodes a JSON object. Invalid input yields an empty map.
func ParseMetadata(raw string) map[string]interface{} {
	if m, ok := decodeMetadata(raw); ok {
		return m
	}
	return map[string]interface{}{}
}

// decodeTags reports false for anything but a JSON array of strings. An
// empty string decodes to an empty list.
func decodeTags(raw string) ([]string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, true
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, false
	}
	return normalizeTags(tags), true
}

func decodeMetadata(raw string) (map[string]interface{}, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]interface{}{}, true
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}
