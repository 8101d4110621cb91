// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the shared
// catalog of products.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// SearchLimit bounds catalog substring searches so a broad needle cannot
// produce an unbounded response.
const SearchLimit = 100

// CreateItemIfAbsent inserts item unless a row with the same external id
// already exists. Duplication is a normal condition during imports, so it is
// reported through the inserted flag, never as an error: when a row exists
// the existing row is returned unchanged and inserted is false.
func CreateItemIfAbsent(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, bool, error) {
	var existing domain.CatalogItem
	err := db.WithContext(ctx).Where("external_id = ?", item.ExternalID).First(&existing).Error
	switch {
	case err == nil:
		return &existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	if err := db.WithContext(ctx).Create(item).Error; err != nil {
		// Two concurrent imports can race past the lookup; the unique index
		// decides the winner. Re-read so the loser still gets the row.
		var winner domain.CatalogItem
		if lookupErr := db.WithContext(ctx).Where("external_id = ?", item.ExternalID).First(&winner).Error; lookupErr == nil {
			return &winner, false, nil
		}
		return nil, false, err
	}
	return item, true, nil
}

// GetItem fetches a catalog item by internal id.
func GetItem(ctx context.Context, db *gorm.DB, id uint) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	if err := db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ItemExistsByExternalID reports whether the catalog already holds a row with
// the given external id.
func ItemExistsByExternalID(ctx context.Context, db *gorm.DB, externalID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.CatalogItem{}).
		Where("external_id = ?", externalID).
		Count(&count).Error
	return count > 0, err
}

// ListItems returns the whole catalog ordered newest first.
func ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	var out []domain.CatalogItem
	err := db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// SearchItemsByName returns catalog items whose name contains needle,
// case-insensitively, capped at SearchLimit rows.
func SearchItemsByName(ctx context.Context, db *gorm.DB, needle string) ([]domain.CatalogItem, error) {
	var out []domain.CatalogItem
	pattern := "%" + strings.ToLower(needle) + "%"
	err := db.WithContext(ctx).
		Where("LOWER(name) LIKE ?", pattern).
		Limit(SearchLimit).
		Find(&out).Error
	return out, err
}

// ListItemsNotGeneratedBy returns catalog items the user has no generation
// for, ordered newest catalog item first. This is the set difference backing
// the "what's left to generate" view.
func ListItemsNotGeneratedBy(ctx context.Context, db *gorm.DB, userID uint) ([]domain.CatalogItem, error) {
	sub := db.Model(&domain.UserGeneration{}).
		Select("catalog_item_id").
		Where("user_id = ?", userID)

	var out []domain.CatalogItem
	err := db.WithContext(ctx).
		Where("id NOT IN (?)", sub).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}
