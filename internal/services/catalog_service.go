// Package services – CatalogService
//
// This file implements the read side of the shared catalog plus the
// spreadsheet bulk upload. The catalog is admin-managed and globally shared;
// per-user context only enters through the "generated" annotation and the
// not-yet-generated visibility list.
package services

import (
	"context"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/excel"
)

// MaxUploadErrors caps how many per-row upload errors are surfaced to the
// caller.
const MaxUploadErrors = 10

// CatalogRepo defines the repository contract required by CatalogService.
type CatalogRepo interface {
	// CreateItemIfAbsent inserts the item unless its external id exists.
	CreateItemIfAbsent(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, bool, error)

	// ListItems returns the whole catalog newest first.
	ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error)

	// SearchItemsByName returns items matching needle, case-insensitively.
	SearchItemsByName(ctx context.Context, db *gorm.DB, needle string) ([]domain.CatalogItem, error)

	// ListItemsNotGeneratedBy returns items the user has no generation for.
	ListItemsNotGeneratedBy(ctx context.Context, db *gorm.DB, userID uint) ([]domain.CatalogItem, error)

	// ListGeneratedItemIDs returns the user's generated catalog item id set.
	ListGeneratedItemIDs(ctx context.Context, db *gorm.DB, userID uint) (map[uint]struct{}, error)
}

// AnnotatedItem is a catalog item with the caller-specific generated flag.
type AnnotatedItem struct {
	domain.CatalogItem
	// Generated reports whether the caller already has at least one
	// generation referencing this item.
	Generated bool `json:"generated"`
}

// UploadReport summarizes one bulk spreadsheet upload.
type UploadReport struct {
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// CatalogService answers catalog queries and performs spreadsheet uploads.
type CatalogService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the catalog repository used by this service.
	Repo CatalogRepo
	// Audit records mutations.
	Audit *AuditLog
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(db *gorm.DB, r CatalogRepo, audit *AuditLog) *CatalogService {
	return &CatalogService{DB: db, Repo: r, Audit: audit}
}

// ListRemaining returns the catalog items the user has not generated content
// for yet, newest catalog item first.
func (s *CatalogService) ListRemaining(ctx context.Context, userID uint) ([]domain.CatalogItem, error) {
	return s.Repo.ListItemsNotGeneratedBy(ctx, s.DB, userID)
}

// Search returns catalog items whose name contains needle, each annotated
// with whether the calling user already generated content for it.
func (s *CatalogService) Search(ctx context.Context, userID uint, needle string) ([]AnnotatedItem, error) {
	items, err := s.Repo.SearchItemsByName(ctx, s.DB, needle)
	if err != nil {
		return nil, err
	}
	generated, err := s.Repo.ListGeneratedItemIDs(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}

	out := make([]AnnotatedItem, 0, len(items))
	for _, it := range items {
		_, ok := generated[it.ID]
		out = append(out, AnnotatedItem{CatalogItem: it, Generated: ok})
	}
	return out, nil
}

// BulkUpload decodes an .xlsx workbook and inserts its rows into the catalog.
// Rows failing validation are skipped with a per-row reason; rows whose
// external id already exists count as skips. The errors list surfaced to the
// caller is capped at MaxUploadErrors. One audit entry summarizes the batch;
// its status is error when nothing was added.
func (s *CatalogService) BulkUpload(ctx context.Context, adminID uint, r io.Reader) (*UploadReport, error) {
	upload, err := excel.ParseCatalogUpload(r)
	if err != nil {
		return nil, err
	}

	report := &UploadReport{}
	for _, rowErr := range upload.Errors {
		report.Skipped++
		if len(report.Errors) < MaxUploadErrors {
			report.Errors = append(report.Errors, rowErr.String())
		}
	}

	for i := range upload.Rows {
		item := upload.Rows[i]
		_, inserted, err := s.Repo.CreateItemIfAbsent(ctx, s.DB, &item)
		if err != nil {
			report.Skipped++
			if len(report.Errors) < MaxUploadErrors {
				report.Errors = append(report.Errors, "external_id "+item.ExternalID+": "+err.Error())
			}
			continue
		}
		if inserted {
			report.Added++
		} else {
			report.Skipped++
		}
	}

	status := domain.LogStatusCompleted
	if report.Added == 0 {
		status = domain.LogStatusError
	}
	s.Audit.Record(ctx, &adminID, ActionBulkUploadCatalog, "",
		fmt.Sprintf("bulk upload: added %d, skipped %d", report.Added, report.Skipped), status)

	return report, nil
}
