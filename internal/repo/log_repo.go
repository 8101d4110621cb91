// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// audit log.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// DefaultLogLimit is how many audit entries the admin view returns when no
// explicit limit is given.
const DefaultLogLimit = 100

// AppendLog inserts one audit entry. Entries are never updated or deleted by
// the application.
func AppendLog(ctx context.Context, db *gorm.DB, entry *domain.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(entry).Error
}

// ListRecentLogs returns up to limit audit entries ordered newest first.
// A non-positive limit falls back to DefaultLogLimit.
func ListRecentLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	var out []domain.LogEntry
	err := db.WithContext(ctx).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
