// Package services – ExcelService
//
// This file implements the spreadsheet export side: a per-user export of the
// generation ledger and the admin database backup. Exporting marks every
// included row (increments its export counter and flips its status) and both
// operations leave an audit entry. The bulk upload counterpart lives in
// CatalogService.
package services

import (
	"bytes"
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/excel"
)

// BackupLogLimit caps how many audit entries a database backup includes.
const BackupLogLimit = 1000

// ExcelRepo defines the repository contract required by ExcelService.
type ExcelRepo interface {
	// ListGenerations returns the user's rows with catalog items preloaded.
	ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error)

	// MarkGenerationExported bumps the export counter on one row.
	MarkGenerationExported(ctx context.Context, db *gorm.DB, id uint) error

	// ListItems returns the whole catalog.
	ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error)

	// ListAllGenerations returns every ledger row.
	ListAllGenerations(ctx context.Context, db *gorm.DB) ([]domain.UserGeneration, error)

	// ListRecentLogs returns up to limit audit entries newest first.
	ListRecentLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.LogEntry, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error)
}

// ExcelService builds spreadsheet exports and database backups.
type ExcelService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the repository used by this service.
	Repo ExcelRepo
	// Audit records exports and backups.
	Audit *AuditLog
}

// NewExcelService constructs an ExcelService.
func NewExcelService(db *gorm.DB, r ExcelRepo, audit *AuditLog) *ExcelService {
	return &ExcelService{DB: db, Repo: r, Audit: audit}
}

// ExportGenerations renders the user's whole ledger as an .xlsx workbook and
// marks every included row as exported. An empty ledger is rejected with
// ErrNothingToExport.
func (s *ExcelService) ExportGenerations(ctx context.Context, userID uint) (*bytes.Buffer, error) {
	gens, err := s.Repo.ListGenerations(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, ErrNothingToExport
	}

	buf, err := excel.BuildGenerationsExport(gens)
	if err != nil {
		return nil, err
	}

	for i := range gens {
		if err := s.Repo.MarkGenerationExported(ctx, s.DB, gens[i].ID); err != nil {
			return nil, err
		}
	}

	s.Audit.Record(ctx, &userID, ActionExportGenerations, "",
		fmt.Sprintf("exported %d generations", len(gens)), domain.LogStatusCompleted)
	return buf, nil
}

// BackupDatabase renders the four-sheet full backup workbook: catalog items,
// generations, the last BackupLogLimit audit entries, and users without
// password hashes.
func (s *ExcelService) BackupDatabase(ctx context.Context, adminID uint) (*bytes.Buffer, error) {
	items, err := s.Repo.ListItems(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	gens, err := s.Repo.ListAllGenerations(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	logs, err := s.Repo.ListRecentLogs(ctx, s.DB, BackupLogLimit)
	if err != nil {
		return nil, err
	}
	users, err := s.Repo.ListUsers(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	buf, err := excel.BuildBackupWorkbook(excel.Backup{
		Items:       items,
		Generations: gens,
		Logs:        logs,
		Users:       users,
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, &adminID, ActionDatabaseBackup, "",
		fmt.Sprintf("backup: %d items, %d generations, %d users", len(items), len(gens), len(users)),
		domain.LogStatusCompleted)
	return buf, nil
}
