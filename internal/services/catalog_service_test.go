package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// ----- Fake repo -----

type fakeCatalogRepo struct {
	existing     map[string]*domain.CatalogItem // by external id
	nextID       uint
	createErrFor map[string]error

	remaining    []domain.CatalogItem
	searchItems  []domain.CatalogItem
	generatedIDs map[uint]struct{}
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		existing:     map[string]*domain.CatalogItem{},
		nextID:       1,
		createErrFor: map[string]error{},
		generatedIDs: map[uint]struct{}{},
	}
}

func (r *fakeCatalogRepo) CreateItemIfAbsent(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, bool, error) {
	if err := r.createErrFor[item.ExternalID]; err != nil {
		return nil, false, err
	}
	if existing, ok := r.existing[item.ExternalID]; ok {
		return existing, false, nil
	}
	item.ID = r.nextID
	r.nextID++
	r.existing[item.ExternalID] = item
	return item, true, nil
}

func (r *fakeCatalogRepo) ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	out := make([]domain.CatalogItem, 0, len(r.existing))
	for _, it := range r.existing {
		out = append(out, *it)
	}
	return out, nil
}

func (r *fakeCatalogRepo) SearchItemsByName(ctx context.Context, db *gorm.DB, needle string) ([]domain.CatalogItem, error) {
	return r.searchItems, nil
}

func (r *fakeCatalogRepo) ListItemsNotGeneratedBy(ctx context.Context, db *gorm.DB, userID uint) ([]domain.CatalogItem, error) {
	return r.remaining, nil
}

func (r *fakeCatalogRepo) ListGeneratedItemIDs(ctx context.Context, db *gorm.DB, userID uint) (map[uint]struct{}, error) {
	return r.generatedIDs, nil
}

// buildUploadWorkbook renders an in-memory .xlsx with the given rows (first
// row is the header).
func buildUploadWorkbook(t *testing.T, rows [][]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

// ----- Tests -----

func TestListRemaining_Passthrough(t *testing.T) {
	r := newFakeCatalogRepo()
	r.remaining = []domain.CatalogItem{{ID: 3, Name: "Mug"}}
	s := NewCatalogService(nil, r, NewAuditLog(newServicesDB(t)))

	got, err := s.ListRemaining(context.Background(), 1)
	if err != nil || len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("ListRemaining = %+v, %v", got, err)
	}
}

func TestSearch_AnnotatesGeneratedFlag(t *testing.T) {
	r := newFakeCatalogRepo()
	r.searchItems = []domain.CatalogItem{{ID: 1, Name: "Mug"}, {ID: 2, Name: "Mug rack"}}
	r.generatedIDs = map[uint]struct{}{2: {}}
	s := NewCatalogService(nil, r, NewAuditLog(newServicesDB(t)))

	got, err := s.Search(context.Background(), 1, "mug")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Generated || !got[1].Generated {
		t.Fatalf("generated flags wrong: %+v", got)
	}
}

func TestBulkUpload_MixedRows(t *testing.T) {
	db := newServicesDB(t)
	r := newFakeCatalogRepo()
	r.existing["200"] = &domain.CatalogItem{ID: 50, ExternalID: "200", Name: "Existing"}
	s := NewCatalogService(db, r, NewAuditLog(db))

	wb := buildUploadWorkbook(t, [][]any{
		{"external_id", "name", "price", "photo_url", "slug"},
		{"100", "Mug", "9.99", "https://img/1", "mug"},      // new
		{"200", "Existing", "5", "https://img/2", "exists"}, // duplicate -> skip
		{"300", "Bad", "not-a-price", "https://img/3", "b"}, // invalid -> skip with reason
	})

	report, err := s.BulkUpload(context.Background(), 9, wb)
	if err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	if report.Added != 1 || report.Skipped != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "invalid price") {
		t.Fatalf("expected one price error, got %+v", report.Errors)
	}

	entries := auditEntries(t, db)
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Action != ActionBulkUploadCatalog || e.Status != domain.LogStatusCompleted {
		t.Fatalf("unexpected audit entry: %+v", e)
	}
	if !strings.Contains(e.Message, "added 1") || !strings.Contains(e.Message, "skipped 2") {
		t.Fatalf("audit summary wrong: %q", e.Message)
	}
}

func TestBulkUpload_NothingAdded_AuditsError(t *testing.T) {
	db := newServicesDB(t)
	r := newFakeCatalogRepo()
	r.existing["100"] = &domain.CatalogItem{ID: 1, ExternalID: "100"}
	s := NewCatalogService(db, r, NewAuditLog(db))

	wb := buildUploadWorkbook(t, [][]any{
		{"external_id", "name", "price", "photo_url", "slug"},
		{"100", "Dup", "1", "p", "s"},
	})

	report, err := s.BulkUpload(context.Background(), 9, wb)
	if err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	if report.Added != 0 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}

	entries := auditEntries(t, db)
	if len(entries) != 1 || entries[0].Status != domain.LogStatusError {
		t.Fatalf("expected error-status audit entry, got %+v", entries)
	}
}

func TestBulkUpload_InsertErrorCountsAsSkip(t *testing.T) {
	db := newServicesDB(t)
	r := newFakeCatalogRepo()
	r.createErrFor["100"] = errors.New("disk full")
	s := NewCatalogService(db, r, NewAuditLog(db))

	wb := buildUploadWorkbook(t, [][]any{
		{"external_id", "name", "price", "photo_url", "slug"},
		{"100", "Mug", "1", "p", "s"},
	})

	report, err := s.BulkUpload(context.Background(), 9, wb)
	if err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	if report.Added != 0 || report.Skipped != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Errors) != 1 || !strings.Contains(report.Errors[0], "disk full") {
		t.Fatalf("expected insert error surfaced, got %+v", report.Errors)
	}
}

func TestBulkUpload_ErrorListCapped(t *testing.T) {
	db := newServicesDB(t)
	r := newFakeCatalogRepo()
	s := NewCatalogService(db, r, NewAuditLog(db))

	rows := [][]any{{"external_id", "name", "price", "photo_url", "slug"}}
	for i := 0; i < MaxUploadErrors+5; i++ {
		// external id only, everything else missing: every row invalid
		rows = append(rows, []any{fmt.Sprintf("id-%d", i)})
	}
	wb := buildUploadWorkbook(t, rows)

	report, err := s.BulkUpload(context.Background(), 9, wb)
	if err != nil {
		t.Fatalf("BulkUpload: %v", err)
	}
	if report.Skipped != MaxUploadErrors+5 {
		t.Fatalf("skipped = %d; want %d", report.Skipped, MaxUploadErrors+5)
	}
	if len(report.Errors) != MaxUploadErrors {
		t.Fatalf("errors = %d; want cap %d", len(report.Errors), MaxUploadErrors)
	}
}

func TestBulkUpload_UnreadableWorkbook(t *testing.T) {
	db := newServicesDB(t)
	s := NewCatalogService(db, newFakeCatalogRepo(), NewAuditLog(db))

	if _, err := s.BulkUpload(context.Background(), 9, strings.NewReader("not an xlsx")); err == nil {
		t.Fatalf("expected error for unreadable workbook")
	}
}
