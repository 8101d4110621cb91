package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/http/middleware"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

type testCatalogRepo struct{}

func (testCatalogRepo) CreateItemIfAbsent(ctx context.Context, db *gorm.DB, item *domain.CatalogItem) (*domain.CatalogItem, bool, error) {
	return repo.CreateItemIfAbsent(ctx, db, item)
}

func (testCatalogRepo) ListItems(ctx context.Context, db *gorm.DB) ([]domain.CatalogItem, error) {
	return repo.ListItems(ctx, db)
}

func (testCatalogRepo) SearchItemsByName(ctx context.Context, db *gorm.DB, needle string) ([]domain.CatalogItem, error) {
	return repo.SearchItemsByName(ctx, db, needle)
}

func (testCatalogRepo) ListItemsNotGeneratedBy(ctx context.Context, db *gorm.DB, userID uint) ([]domain.CatalogItem, error) {
	return repo.ListItemsNotGeneratedBy(ctx, db, userID)
}

func (testCatalogRepo) ListGeneratedItemIDs(ctx context.Context, db *gorm.DB, userID uint) (map[uint]struct{}, error) {
	return repo.ListGeneratedItemIDs(ctx, db, userID)
}

// seedCatalogUser inserts an account and returns it with a bearer header.
func seedCatalogUser(t *testing.T, db *gorm.DB, tokens *auth.Manager, email string) (*domain.User, string) {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", Role: domain.RoleUser, IsActive: true}
	if err := repo.CreateUser(context.Background(), db, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u, bearerFor(t, tokens, u)
}

func seedCatalogItem(t *testing.T, db *gorm.DB, externalID, name string) *domain.CatalogItem {
	t.Helper()
	item, _, err := repo.CreateItemIfAbsent(context.Background(), db, &domain.CatalogItem{
		ExternalID: externalID, Name: name, Slug: name, Price: 1,
	})
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func newCatalogRouter(db *gorm.DB, tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewCatalogService(db, testCatalogRepo{}, services.NewAuditLog(db))
	h := New(nil, svc, nil, nil, nil, nil)

	r := gin.New()
	authed := r.Group("/", middleware.Auth(tokens))
	authed.GET("/catalog", h.ListCatalog)
	authed.POST("/catalog/search/:word", h.SearchCatalog)
	return r
}

func TestListCatalogEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newCatalogRouter(db, tokens)

	u, header := seedCatalogUser(t, db, tokens, "a@b.com")
	mug := seedCatalogItem(t, db, "100", "Mug")
	seedCatalogItem(t, db, "101", "Plate")

	// The user already generated for the mug; only the plate remains.
	if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
		UserID: u.ID, CatalogItemID: mug.ID, VariantName: domain.DefaultVariantName,
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var items []domain.CatalogItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Plate" {
		t.Fatalf("unexpected items: %+v", items)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	// Replay with If-None-Match: nothing changed, so 304.
	req = httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", header)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("replay status = %d", w.Code)
	}

	// A new catalog item invalidates the tag.
	seedCatalogItem(t, db, "102", "Bowl")
	req = httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", header)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale tag status = %d", w.Code)
	}
	if w.Header().Get("ETag") == etag {
		t.Fatalf("ETag did not change after catalog mutation")
	}
}

func TestListCatalogEndpoint_ETagInvalidatedByGeneration(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newCatalogRouter(db, tokens)

	u, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}

	// Generating for the item shrinks the items-left view even though the
	// catalog itself is unchanged; the old tag must no longer validate.
	if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
		UserID: u.ID, CatalogItemID: item.ID, VariantName: domain.DefaultVariantName,
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/catalog", nil)
	req.Header.Set("Authorization", header)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale tag must be invalidated, got status %d", w.Code)
	}
	var items []domain.CatalogItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty items-left view, got %+v", items)
	}
	if w.Header().Get("ETag") == etag {
		t.Fatalf("ETag did not change after generation")
	}
}

func TestSearchCatalogEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newCatalogRouter(db, tokens)

	u, header := seedCatalogUser(t, db, tokens, "a@b.com")
	mug := seedCatalogItem(t, db, "100", "Coffee Mug")
	seedCatalogItem(t, db, "101", "Tea Mug")
	seedCatalogItem(t, db, "102", "Plate")

	if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
		UserID: u.ID, CatalogItemID: mug.ID, VariantName: domain.DefaultVariantName,
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/catalog/search/mug", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var results []services.AnnotatedItem
	if err := json.Unmarshal(w.Body.Bytes(), &results); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both mugs, got %+v", results)
	}
	flags := map[string]bool{}
	for _, it := range results {
		flags[it.Name] = it.Generated
	}
	if !flags["Coffee Mug"] || flags["Tea Mug"] {
		t.Fatalf("generated flags wrong: %v", flags)
	}
}

func TestSearchCatalogEndpoint_BlankNeedle(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newCatalogRouter(db, tokens)
	_, header := seedCatalogUser(t, db, tokens, "a@b.com")

	req := httptest.NewRequest(http.MethodPost, "/catalog/search/%20%20", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}
