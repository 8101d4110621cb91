// Package services – ImportService
//
// This file implements the streaming catalog import. One run walks the
// paginated marketplace API page by page, upserting each item into the
// catalog and pushing a human-readable progress event per step. Two counters
// drive termination: a page budget of ceil(count/50) and a remaining-items
// budget that every processed item (inserted, duplicate, or failed)
// decrements. The run ends when the page budget is exhausted, so a page full
// of duplicates still consumes a page even though it added nothing.
//
// A page-level fetch failure aborts the whole run with a single error event;
// a per-item failure only emits an error event and moves on.
package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/simaland"
)

// MaxImportCount is the hard ceiling on items per import run.
const MaxImportCount = 10000

// ImportService drives streaming catalog imports from the marketplace API.
type ImportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the catalog repository used by this service.
	Repo CatalogRepo
	// Source fetches marketplace pages.
	Source simaland.Source
	// Audit records per-item inserts.
	Audit *AuditLog
}

// NewImportService constructs an ImportService.
func NewImportService(db *gorm.DB, r CatalogRepo, src simaland.Source, audit *AuditLog) *ImportService {
	return &ImportService{DB: db, Repo: r, Source: src, Audit: audit}
}

// Run imports up to count items, invoking emit once per progress event in
// emission order. The event sequence is finite and always ends with a
// terminal success or failure message. Validation failures (count out of
// range) return a sentinel error before any event is emitted so the transport
// layer can reject them without opening a stream.
func (s *ImportService) Run(ctx context.Context, count int, adminID uint, emit func(string)) error {
	if count <= 0 {
		return ErrInvalidCount
	}
	if count >= MaxImportCount {
		return ErrCountTooLarge
	}

	emit(fmt.Sprintf("starting import of %d items", count))

	pagesLeft := (count + simaland.PageSize - 1) / simaland.PageSize
	remaining := count
	added, skipped, failed := 0, 0, 0

	for page := 1; pagesLeft > 0; page++ {
		items, err := s.Source.FetchPage(ctx, page)
		if err != nil {
			emit(fmt.Sprintf("import aborted on page %d: %v", page, err))
			return fmt.Errorf("fetch page %d: %w", page, err)
		}

		for _, it := range items {
			if remaining <= 0 {
				break
			}
			remaining--

			item := domain.CatalogItem{
				ExternalID: it.ExternalID,
				UID:        it.UID,
				SID:        it.SID,
				Name:       it.Name,
				Slug:       it.Slug,
				Material:   it.Material,
				CategoryID: it.CategoryID,
				PhotoURL:   it.PhotoURL,
				ImageTitle: it.ImageTitle,
				Price:      it.Price,
				Balance:    it.Balance,
			}
			created, inserted, err := s.Repo.CreateItemIfAbsent(ctx, s.DB, &item)
			if err != nil {
				failed++
				emit(fmt.Sprintf("error on item %s: %v", it.ExternalID, err))
				continue
			}
			if !inserted {
				skipped++
				emit(fmt.Sprintf("skipped duplicate %s (%s)", it.ExternalID, created.Name))
				continue
			}
			added++
			s.Audit.Record(ctx, &adminID, ActionCatalogLoad, it.ExternalID,
				fmt.Sprintf("imported %q", it.Name), domain.LogStatusCompleted)
			emit(fmt.Sprintf("added %s (%s)", it.ExternalID, created.Name))
		}

		pagesLeft--
	}

	emit(fmt.Sprintf("import finished: %d added, %d skipped, %d errors", added, skipped, failed))
	return nil
}
