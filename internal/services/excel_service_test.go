package services

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// ----- Fake repo -----

type fakeExcelRepo struct {
	gens     []domain.UserGeneration
	listErr  error
	marked   []uint
	markErr  error
	items    []domain.CatalogItem
	allGens  []domain.UserGeneration
	logs     []domain.LogEntry
	logLimit int
	users    []domain.User
}

func (r *fakeExcelRepo) ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error) {
	return r.gens, r.listErr
}

func (r *fakeExcelRepo) MarkGenerationExported(ctx context.Context, db *gorm.DB, id uint) error {
	if r.markErr != nil {
		return r.markErr
	}
	r.marked = append(r.marked, id)
	return nil
}

func (r *fakeExcelRepo) ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	return r.items, nil
}

func (r *fakeExcelRepo) ListAllGenerations(ctx context.Context, db *gorm.DB) ([]domain.UserGeneration, error) {
	return r.allGens, nil
}

func (r *fakeExcelRepo) ListRecentLogs(ctx context.Context, db *gorm.DB, limit int) ([]domain.LogEntry, error) {
	r.logLimit = limit
	return r.logs, nil
}

func (r *fakeExcelRepo) ListUsers(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	return r.users, nil
}

// ----- Tests -----

func TestExportGenerations_EmptyLedger(t *testing.T) {
	db := newServicesDB(t)
	s := NewExcelService(db, &fakeExcelRepo{}, NewAuditLog(db))

	if _, err := s.ExportGenerations(context.Background(), 1); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if entries := auditEntries(t, db); len(entries) != 0 {
		t.Fatalf("failed export must not be audited, got %+v", entries)
	}
}

func TestExportGenerations_MarksEveryRow(t *testing.T) {
	db := newServicesDB(t)
	r := &fakeExcelRepo{gens: []domain.UserGeneration{
		{ID: 1, UserID: 1, VariantName: "a", CatalogItem: domain.CatalogItem{ID: 5, Name: "Mug"}},
		{ID: 2, UserID: 1, VariantName: "b", CatalogItem: domain.CatalogItem{ID: 5, Name: "Mug"}},
	}}
	s := NewExcelService(db, r, NewAuditLog(db))

	buf, err := s.ExportGenerations(context.Background(), 1)
	if err != nil {
		t.Fatalf("ExportGenerations: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("empty workbook buffer")
	}

	// The buffer is a readable workbook with one data row per generation.
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("My Generations")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 { // header + 2
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if len(r.marked) != 2 || r.marked[0] != 1 || r.marked[1] != 2 {
		t.Fatalf("rows not marked exported: %v", r.marked)
	}
	entries := auditEntries(t, db)
	if len(entries) != 1 || entries[0].Action != ActionExportGenerations {
		t.Fatalf("unexpected audit trail: %+v", entries)
	}
}

func TestExportGenerations_MarkFailureFailsExport(t *testing.T) {
	db := newServicesDB(t)
	r := &fakeExcelRepo{
		gens:    []domain.UserGeneration{{ID: 1, UserID: 1, VariantName: "a"}},
		markErr: errors.New("locked"),
	}
	s := NewExcelService(db, r, NewAuditLog(db))

	if _, err := s.ExportGenerations(context.Background(), 1); err == nil {
		t.Fatalf("expected mark failure to surface")
	}
}

func TestBackupDatabase_FourSheets(t *testing.T) {
	db := newServicesDB(t)
	uid := uint(1)
	r := &fakeExcelRepo{
		items:   []domain.CatalogItem{{ID: 1, ExternalID: "x", Name: "Mug"}},
		allGens: []domain.UserGeneration{{ID: 1, UserID: 1, CatalogItemID: 1, VariantName: "a"}},
		logs:    []domain.LogEntry{{ID: 1, UserID: &uid, Action: ActionGenerate}},
		users:   []domain.User{{ID: 1, Email: "a@b.com", PasswordHash: "must-not-leak", Role: domain.RoleUser}},
	}
	s := NewExcelService(db, r, NewAuditLog(db))

	buf, err := s.BackupDatabase(context.Background(), 9)
	if err != nil {
		t.Fatalf("BackupDatabase: %v", err)
	}
	if r.logLimit != BackupLogLimit {
		t.Fatalf("log limit = %d; want %d", r.logLimit, BackupLogLimit)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"CatalogItems", "UserGenerations", "Logs", "Users"} {
		rows, err := f.GetRows(sheet)
		if err != nil {
			t.Fatalf("sheet %s missing: %v", sheet, err)
		}
		if len(rows) != 2 { // header + 1 row each
			t.Fatalf("sheet %s: expected 2 rows, got %d", sheet, len(rows))
		}
	}

	// Password hashes never leave the database.
	userRows, _ := f.GetRows("Users")
	for _, cell := range append(userRows[0], userRows[1]...) {
		if cell == "must-not-leak" || cell == "password_hash" {
			t.Fatalf("password material leaked into backup: %v", userRows)
		}
	}

	entries := auditEntries(t, db)
	if len(entries) != 1 || entries[0].Action != ActionDatabaseBackup {
		t.Fatalf("unexpected audit trail: %+v", entries)
	}
}
