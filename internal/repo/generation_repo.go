// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the per-user
// generation ledger.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// GenerationSearchLimit bounds searches over a user's generations.
const GenerationSearchLimit = 200

// CreateGeneration inserts a new ledger row.
func CreateGeneration(ctx context.Context, db *gorm.DB, g *domain.UserGeneration) error {
	return db.WithContext(ctx).Create(g).Error
}

// GetGenerationByKey fetches the ledger row for the (user, item, variant)
// upsert key. Returns gorm.ErrRecordNotFound when absent.
func GetGenerationByKey(ctx context.Context, db *gorm.DB, userID, catalogItemID uint, variantName string) (*domain.UserGeneration, error) {
	var g domain.UserGeneration
	err := db.WithContext(ctx).
		Where("user_id = ? AND catalog_item_id = ? AND variant_name = ?", userID, catalogItemID, variantName).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetOwnedGeneration fetches a ledger row by id scoped to its owner.
// A row owned by someone else is indistinguishable from a missing row:
// both return gorm.ErrRecordNotFound.
func GetOwnedGeneration(ctx context.Context, db *gorm.DB, id, ownerID uint) (*domain.UserGeneration, error) {
	var g domain.UserGeneration
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// UpdateGenerationFields applies the given column updates to a ledger row.
// Callers are responsible for restricting fields to the edit allow-list.
func UpdateGenerationFields(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.UserGeneration{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// DeleteGeneration hard-deletes a ledger row.
func DeleteGeneration(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Delete(&domain.UserGeneration{}, "id = ?", id).Error
}

// ListGenerations returns the user's ledger rows newest first, with the
// referenced catalog item preloaded.
func ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error) {
	var out []domain.UserGeneration
	err := db.WithContext(ctx).
		Preload("CatalogItem").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListGeneratedItemIDs returns the set of catalog item ids the user already
// has generations for.
func ListGeneratedItemIDs(ctx context.Context, db *gorm.DB, userID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := db.WithContext(ctx).
		Model(&domain.UserGeneration{}).
		Where("user_id = ?", userID).
		Distinct().
		Pluck("catalog_item_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// SearchGenerationsByItemName returns the user's ledger rows whose referenced
// catalog item name contains needle, case-insensitively, capped at
// GenerationSearchLimit rows. The catalog item is preloaded; orphaned rows
// (item gone) are still returned so callers can render a placeholder view.
func SearchGenerationsByItemName(ctx context.Context, db *gorm.DB, userID uint, needle string) ([]domain.UserGeneration, error) {
	pattern := "%" + strings.ToLower(needle) + "%"
	var out []domain.UserGeneration
	err := db.WithContext(ctx).
		Preload("CatalogItem").
		Joins("JOIN catalog_items ON catalog_items.id = user_generations.catalog_item_id").
		Where("user_generations.user_id = ? AND LOWER(catalog_items.name) LIKE ?", userID, pattern).
		Limit(GenerationSearchLimit).
		Find(&out).Error
	return out, err
}

// MarkGenerationExported increments the export counter and flips the export
// status on one ledger row. Called once per row included in a successful
// export.
func MarkGenerationExported(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).
		Model(&domain.UserGeneration{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"export_count":  gorm.Expr("export_count + 1"),
			"export_status": domain.ExportStatusExported,
		}).Error
}

// ListAllGenerations returns every ledger row (backup support).
func ListAllGenerations(ctx context.Context, db *gorm.DB) ([]domain.UserGeneration, error) {
	var out []domain.UserGeneration
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
