// Package excel is the spreadsheet codec for catalog uploads, generation
// exports, and full database backups. It owns all excelize mechanics so the
// service layer only deals in typed rows: uploads come back as validated
// catalog items plus per-row errors, exports and backups go out as finished
// workbooks.
package excel

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
)

// RequiredColumns is the minimum header set a catalog upload must carry.
var RequiredColumns = []string{"external_id", "name", "price", "photo_url", "slug"}

// Optional upload columns recognized when present.
const (
	colMaterial    = "material"
	colCategoryID  = "category_id"
	colDescription = "description"
	colBalance     = "balance"
)

// RowError describes why one upload row was skipped. Row numbers are 1-based
// workbook rows (the header is row 1).
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (e RowError) String() string { return fmt.Sprintf("row %d: %s", e.Row, e.Reason) }

// CatalogUpload is the decoded result of one upload workbook: the rows that
// validated plus the reasons for every skip. One bad row never aborts the
// batch; only an unreadable workbook or a missing required column does.
type CatalogUpload struct {
	Rows   []domain.CatalogItem
	Errors []RowError
}

// ParseCatalogUpload decodes the active sheet of an .xlsx upload. The first
// row must be a header containing at least RequiredColumns (any order, extra
// columns ignored). Each data row missing a required value or failing type
// coercion (price to float, balance to int) is recorded in Errors and
// skipped.
func ParseCatalogUpload(r io.Reader) (*CatalogUpload, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook has no header row")
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		idx, ok := colIdx[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	upload := &CatalogUpload{}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after header

		externalID := cell(row, "external_id")
		name := cell(row, "name")
		priceRaw := cell(row, "price")
		photoURL := cell(row, "photo_url")
		slug := cell(row, "slug")

		if externalID == "" || name == "" || priceRaw == "" || photoURL == "" || slug == "" {
			upload.Errors = append(upload.Errors, RowError{Row: rowNum, Reason: "missing required fields"})
			continue
		}
		price, err := strconv.ParseFloat(priceRaw, 64)
		if err != nil {
			upload.Errors = append(upload.Errors, RowError{Row: rowNum, Reason: fmt.Sprintf("invalid price %q", priceRaw)})
			continue
		}
		balance := 0
		if raw := cell(row, colBalance); raw != "" {
			balance, err = strconv.Atoi(raw)
			if err != nil {
				upload.Errors = append(upload.Errors, RowError{Row: rowNum, Reason: fmt.Sprintf("invalid balance %q", raw)})
				continue
			}
		}

		upload.Rows = append(upload.Rows, domain.CatalogItem{
			ExternalID:  externalID,
			Name:        name,
			Price:       price,
			PhotoURL:    photoURL,
			Slug:        slug,
			Material:    cell(row, colMaterial),
			CategoryID:  cell(row, colCategoryID),
			Description: cell(row, colDescription),
			Balance:     balance,
		})
	}
	return upload, nil
}

// exportHeaders is the fixed column order of a generations export.
var exportHeaders = []any{
	"ID", "Item Name", "Variant", "Price", "Photo URL",
	"Category", "Material", "AI Description", "AI Keywords", "Prompt Version",
}

// Placeholder values rendered when a generation's catalog item is gone.
const deletedItemName = "item deleted"

// BuildGenerationsExport renders one row per generation in the fixed export
// column order. Generations whose catalog item is missing (orphaned rows) get
// a placeholder name and zero price instead of failing the export.
func BuildGenerationsExport(gens []domain.UserGeneration) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "My Generations"
	f.SetSheetName(f.GetSheetName(0), sheet)
	if err := f.SetSheetRow(sheet, "A1", &exportHeaders); err != nil {
		return nil, err
	}

	for i, g := range gens {
		item := g.CatalogItem
		name, price, photo, category, material := item.Name, item.Price, item.PhotoURL, item.CategoryID, item.Material
		if item.ID == 0 {
			name, price, photo, category, material = deletedItemName, 0, "", "", ""
		}
		row := []any{
			g.ID, name, g.VariantName, price, photo,
			category, material, g.Description, g.Keywords, g.PromptVersion,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}

// Backup holds everything a full database backup serializes.
type Backup struct {
	Items       []domain.CatalogItem
	Generations []domain.UserGeneration
	Logs        []domain.LogEntry
	Users       []domain.User
}

// BuildBackupWorkbook renders the four-sheet database backup: CatalogItems,
// UserGenerations, Logs, and Users. Password hashes are never written.
func BuildBackupWorkbook(b Backup) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	writeSheet := func(sheet string, headers []any, rows [][]any) error {
		if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
			return err
		}
		for i := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	}

	f.SetSheetName(f.GetSheetName(0), "CatalogItems")
	itemRows := make([][]any, 0, len(b.Items))
	for _, it := range b.Items {
		itemRows = append(itemRows, []any{
			it.ID, it.ExternalID, it.UID, it.SID, it.Name, it.Slug,
			it.Price, it.Balance, it.Material, it.CategoryID,
			it.PhotoURL, it.ImageTitle, it.Description,
			it.CreatedAt.String(), it.UpdatedAt.String(),
		})
	}
	if err := writeSheet("CatalogItems", []any{
		"id", "external_id", "uid", "sid", "name", "slug", "price", "balance",
		"material", "category_id", "photo_url", "image_title", "description",
		"created_at", "updated_at",
	}, itemRows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("UserGenerations"); err != nil {
		return nil, err
	}
	genRows := make([][]any, 0, len(b.Generations))
	for _, g := range b.Generations {
		genRows = append(genRows, []any{
			g.ID, g.UserID, g.CatalogItemID, g.VariantName,
			g.Description, g.Keywords, g.PromptVersion,
			g.ExportStatus, g.ExportCount,
			g.CreatedAt.String(), g.UpdatedAt.String(),
		})
	}
	if err := writeSheet("UserGenerations", []any{
		"id", "user_id", "catalog_item_id", "variant_name",
		"ai_description", "ai_keywords", "prompt_version",
		"export_status", "export_count", "created_at", "updated_at",
	}, genRows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("Logs"); err != nil {
		return nil, err
	}
	logRows := make([][]any, 0, len(b.Logs))
	for _, l := range b.Logs {
		var uid any
		if l.UserID != nil {
			uid = *l.UserID
		}
		logRows = append(logRows, []any{
			l.ID, uid, l.Timestamp.String(), l.Action, l.ItemID, l.Message, l.Status,
		})
	}
	if err := writeSheet("Logs", []any{
		"id", "user_id", "timestamp", "action", "item_id", "message", "status",
	}, logRows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet("Users"); err != nil {
		return nil, err
	}
	userRows := make([][]any, 0, len(b.Users))
	for _, u := range b.Users {
		userRows = append(userRows, []any{
			u.ID, u.Email, u.FullName, u.Role, u.IsActive, u.CreatedAt.String(),
		})
	}
	if err := writeSheet("Users", []any{
		"id", "email", "full_name", "role", "is_active", "created_at",
	}, userRows); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
