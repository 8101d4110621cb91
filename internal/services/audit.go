// Package services – AuditLog
//
// This file implements the audit recorder. Every mutating operation appends
// an entry describing what happened; the trail is append-only and admins can
// read it newest first. Entries are written through the root database handle
// as their own discrete commits, never inside a caller's transaction, so an
// error-path audit entry survives the rollback of the operation it describes.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
)

// Audit action tags.
const (
	ActionCatalogLoad       = "catalog_load"
	ActionBulkUploadCatalog = "bulk_upload_catalog"
	ActionGenerate          = "generate"
	ActionGenerateError     = "generate_error"
	ActionUpdateGeneration  = "update_generation"
	ActionDeleteGeneration  = "delete_generation"
	ActionExportGenerations = "export_generations"
	ActionDatabaseBackup    = "database_backup"
)

// AuditLog records and reads audit entries. The zero value is not usable;
// construct with NewAuditLog.
type AuditLog struct {
	// DB is the root GORM handle. Record must never be handed a
	// transaction-scoped handle.
	DB *gorm.DB
}

// NewAuditLog constructs an AuditLog over the root database handle.
func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{DB: db}
}

// Record appends one audit entry in its own commit. Recording is best-effort:
// a failed insert is logged and swallowed so the audit layer can never fail
// the operation it describes.
func (a *AuditLog) Record(ctx context.Context, userID *uint, action, itemID, message, status string) {
	entry := &domain.LogEntry{
		UserID:  userID,
		Action:  action,
		ItemID:  itemID,
		Message: message,
		Status:  status,
	}
	if err := repo.AppendLog(ctx, a.DB, entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("item_id", itemID).
			Msg("audit write failed")
	}
}

// Recent returns up to limit entries newest first. A non-positive limit falls
// back to the repository default.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	return repo.ListRecentLogs(ctx, a.DB, limit)
}
