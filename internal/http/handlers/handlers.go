// Handler wiring for the public API.
//
// This file declares the service contracts the HTTP layer consumes and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses. Business rules (ownership, upsert semantics, audit writes) live
// entirely in the services package.
package handlers

import (
	"bytes"
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/http/middleware"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService defines account operations consumed by HTTP handlers.
type AuthService interface {
	// Register creates a new account with role "user".
	Register(ctx context.Context, email, password, fullName string) (*domain.User, error)
	// Login verifies credentials and returns a signed token plus the user.
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// Me returns the authenticated user's profile.
	Me(ctx context.Context, userID uint) (*domain.User, error)
}

// CatalogService defines catalog queries and the spreadsheet upload.
type CatalogService interface {
	// ListRemaining returns items the user has not generated content for.
	ListRemaining(ctx context.Context, userID uint) ([]domain.CatalogItem, error)
	// Search returns matching items annotated with the caller's generated flag.
	Search(ctx context.Context, userID uint, needle string) ([]services.AnnotatedItem, error)
	// BulkUpload inserts catalog rows decoded from an .xlsx workbook.
	BulkUpload(ctx context.Context, adminID uint, r io.Reader) (*services.UploadReport, error)
}

// ImportService defines the streaming marketplace import.
type ImportService interface {
	// Run imports up to count items, pushing one progress event per step.
	Run(ctx context.Context, count int, adminID uint, emit func(string)) error
}

// GenerationService defines the generation ledger operations.
type GenerationService interface {
	// Generate runs one AI generation and upserts the ledger row.
	Generate(ctx context.Context, userID, itemID uint, variantName string) (*services.GenerationView, bool, error)
	// Update applies an allow-listed patch to an owned row.
	Update(ctx context.Context, ownerID, id uint, patch services.GenerationPatch) (*services.GenerationView, error)
	// Delete removes an owned row.
	Delete(ctx context.Context, ownerID, id uint) error
	// List returns the user's ledger newest first.
	List(ctx context.Context, userID uint) ([]services.GenerationView, error)
	// Search filters the user's ledger by catalog item name.
	Search(ctx context.Context, userID uint, needle string) ([]services.GenerationView, error)
}

// ExcelService defines the spreadsheet export operations.
type ExcelService interface {
	// ExportGenerations renders the user's ledger as a workbook.
	ExportGenerations(ctx context.Context, userID uint) (*bytes.Buffer, error)
	// BackupDatabase renders the four-sheet full backup workbook.
	BackupDatabase(ctx context.Context, adminID uint) (*bytes.Buffer, error)
}

// LogService defines audit log reads.
type LogService interface {
	// Recent returns up to limit audit entries newest first.
	Recent(ctx context.Context, limit int) ([]domain.LogEntry, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for auth, catalog, import, generations,
// spreadsheet transfer, and the audit log. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	authSvc    AuthService
	catalogSvc CatalogService
	importSvc  ImportService
	genSvc     GenerationService
	excelSvc   ExcelService
	logSvc     LogService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, catalogSvc CatalogService, importSvc ImportService, genSvc GenerationService, excelSvc ExcelService, logSvc LogService) *Handlers {
	return &Handlers{
		authSvc:    authSvc,
		catalogSvc: catalogSvc,
		importSvc:  importSvc,
		genSvc:     genSvc,
		excelSvc:   excelSvc,
		logSvc:     logSvc,
	}
}

// userID returns the authenticated user id placed in context by the auth
// middleware.
func userID(c *gin.Context) uint {
	return middleware.UserIDFrom(c)
}
