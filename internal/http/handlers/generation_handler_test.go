package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/ai"
	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/http/middleware"
	"github.com/itemgate/go-itemgate-backend/internal/prompt"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

type testGenerationRepo struct{}

func (testGenerationRepo) GetItem(ctx context.Context, db *gorm.DB, id uint) (*domain.CatalogItem, error) {
	return repo.GetItem(ctx, db, id)
}

func (testGenerationRepo) CreateGeneration(ctx context.Context, db *gorm.DB, g *domain.UserGeneration) error {
	return repo.CreateGeneration(ctx, db, g)
}

func (testGenerationRepo) GetGenerationByKey(ctx context.Context, db *gorm.DB, userID, catalogItemID uint, variantName string) (*domain.UserGeneration, error) {
	return repo.GetGenerationByKey(ctx, db, userID, catalogItemID, variantName)
}

func (testGenerationRepo) GetOwnedGeneration(ctx context.Context, db *gorm.DB, id, ownerID uint) (*domain.UserGeneration, error) {
	return repo.GetOwnedGeneration(ctx, db, id, ownerID)
}

func (testGenerationRepo) UpdateGenerationFields(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	return repo.UpdateGenerationFields(ctx, db, id, fields)
}

func (testGenerationRepo) DeleteGeneration(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteGeneration(ctx, db, id)
}

func (testGenerationRepo) ListGenerations(ctx context.Context, db *gorm.DB, userID uint) ([]domain.UserGeneration, error) {
	return repo.ListGenerations(ctx, db, userID)
}

func (testGenerationRepo) SearchGenerationsByItemName(ctx context.Context, db *gorm.DB, userID uint, needle string) ([]domain.UserGeneration, error) {
	return repo.SearchGenerationsByItemName(ctx, db, userID, needle)
}

func itoa(v uint) string { return strconv.FormatUint(uint64(v), 10) }

// stubGenerator satisfies ai.Generator with a canned result or error.
type stubGenerator struct {
	result *ai.Result
	err    error
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string) (*ai.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newGenerationRouter(db *gorm.DB, tokens *auth.Manager, gen ai.Generator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	p := &prompt.SystemPrompt{Content: "be helpful", Version: "1.0"}
	svc := services.NewGenerationService(db, testGenerationRepo{}, gen, p, services.NewAuditLog(db))
	h := New(nil, nil, nil, svc, nil, nil)

	r := gin.New()
	authed := r.Group("/", middleware.Auth(tokens))
	authed.GET("/generations", h.ListGenerations)
	authed.POST("/generations/items/:item_id", h.Generate)
	authed.PUT("/generations/:id", h.UpdateGeneration)
	authed.DELETE("/generations/:id", h.DeleteGeneration)
	authed.POST("/generations/search/:word", h.SearchGenerations)
	return r
}

func doGenReq(t *testing.T, r *gin.Engine, method, path, header string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", header)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoint_CreateThenOverwrite(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	gen := &stubGenerator{result: &ai.Result{Description: "great mug", Keywords: []string{"mug", "cup"}}}
	r := newGenerationRouter(db, tokens, gen)

	_, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")

	w := doGenReq(t, r, http.MethodPost, "/generations/items/"+itoa(item.ID), header, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("first call status = %d body=%s", w.Code, w.Body.String())
	}
	var view services.GenerationView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("body: %v", err)
	}
	if view.VariantName != domain.DefaultVariantName || view.Keywords != "mug, cup" || view.Item.Name != "Mug" {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Same key again overwrites in place.
	gen.result = &ai.Result{Description: "even better mug", Keywords: []string{"mug"}}
	w = doGenReq(t, r, http.MethodPost, "/generations/items/"+itoa(item.ID), header, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second call status = %d body=%s", w.Code, w.Body.String())
	}
	var second services.GenerationView
	_ = json.Unmarshal(w.Body.Bytes(), &second)
	if second.ID != view.ID || second.Description != "even better mug" {
		t.Fatalf("overwrite wrong: %+v", second)
	}

	var count int64
	db.Model(&domain.UserGeneration{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected a single ledger row, got %d", count)
	}

	// A different variant name creates a sibling.
	w = doGenReq(t, r, http.MethodPost, "/generations/items/"+itoa(item.ID)+"?variant_name=alt", header, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("variant call status = %d", w.Code)
	}
}

func TestGenerateEndpoint_Failures(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	gen := &stubGenerator{result: &ai.Result{Description: "d"}}
	r := newGenerationRouter(db, tokens, gen)

	_, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")

	// Non-integer id.
	if w := doGenReq(t, r, http.MethodPost, "/generations/items/abc", header, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", w.Code)
	}

	// Unknown item.
	if w := doGenReq(t, r, http.MethodPost, "/generations/items/9999", header, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown item status = %d", w.Code)
	}

	// Contract violation maps to 502.
	gen.err = ai.ErrBadResponse
	if w := doGenReq(t, r, http.MethodPost, "/generations/items/"+itoa(item.ID), header, nil); w.Code != http.StatusBadGateway {
		t.Fatalf("contract violation status = %d", w.Code)
	}

	// Transport failure maps to 503.
	gen.err = errors.New("connection refused")
	if w := doGenReq(t, r, http.MethodPost, "/generations/items/"+itoa(item.ID), header, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("transport failure status = %d", w.Code)
	}
}

func TestUpdateGenerationEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newGenerationRouter(db, tokens, &stubGenerator{result: &ai.Result{Description: "d", Keywords: []string{"k"}}})

	owner, header := seedCatalogUser(t, db, tokens, "a@b.com")
	_, foreignHeader := seedCatalogUser(t, db, tokens, "b@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")

	g := &domain.UserGeneration{UserID: owner.ID, CatalogItemID: item.ID, VariantName: "v1", Description: "old"}
	if err := repo.CreateGeneration(context.Background(), db, g); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	desc := "new description"
	w := doGenReq(t, r, http.MethodPut, "/generations/"+itoa(g.ID), header, services.GenerationPatch{Description: &desc})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var view services.GenerationView
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Description != desc || view.Item.Name != "Mug" {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Empty patch.
	if w := doGenReq(t, r, http.MethodPut, "/generations/"+itoa(g.ID), header, services.GenerationPatch{}); w.Code != http.StatusBadRequest {
		t.Fatalf("empty patch status = %d", w.Code)
	}

	// Someone else's row looks missing.
	if w := doGenReq(t, r, http.MethodPut, "/generations/"+itoa(g.ID), foreignHeader, services.GenerationPatch{Description: &desc}); w.Code != http.StatusNotFound {
		t.Fatalf("foreign row status = %d", w.Code)
	}
}

func TestUpdateGenerationEndpoint_RenameConflict(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newGenerationRouter(db, tokens, &stubGenerator{})

	owner, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")
	for _, variant := range []string{"v1", "v2"} {
		if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
			UserID: owner.ID, CatalogItemID: item.ID, VariantName: variant,
		}); err != nil {
			t.Fatalf("seed generation: %v", err)
		}
	}
	g, err := repo.GetGenerationByKey(context.Background(), db, owner.ID, item.ID, "v2")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Renaming v2 onto the existing v1 key collides with the unique index.
	variant := "v1"
	w := doGenReq(t, r, http.MethodPut, "/generations/"+itoa(g.ID), header, services.GenerationPatch{VariantName: &variant})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "conflict") {
		t.Fatalf("expected conflict envelope, got %s", w.Body.String())
	}

	// The row keeps its old name.
	if _, err := repo.GetGenerationByKey(context.Background(), db, owner.ID, item.ID, "v2"); err != nil {
		t.Fatalf("row must be unchanged after failed rename: %v", err)
	}
}

func TestDeleteGenerationEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newGenerationRouter(db, tokens, &stubGenerator{})

	owner, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")
	g := &domain.UserGeneration{UserID: owner.ID, CatalogItemID: item.ID, VariantName: "v1"}
	if err := repo.CreateGeneration(context.Background(), db, g); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	if w := doGenReq(t, r, http.MethodDelete, "/generations/"+itoa(g.ID), header, nil); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w := doGenReq(t, r, http.MethodDelete, "/generations/"+itoa(g.ID), header, nil); w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
}

func TestListGenerationsEndpoint_ETag(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newGenerationRouter(db, tokens, &stubGenerator{})

	owner, header := seedCatalogUser(t, db, tokens, "a@b.com")
	item := seedCatalogItem(t, db, "100", "Mug")
	if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
		UserID: owner.ID, CatalogItemID: item.ID, VariantName: "v1", Description: "d",
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	w := doGenReq(t, r, http.MethodGet, "/generations", header, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var views []services.GenerationView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(views) != 1 || views[0].Item.Name != "Mug" {
		t.Fatalf("unexpected views: %+v", views)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}
	req := httptest.NewRequest(http.MethodGet, "/generations", nil)
	req.Header.Set("Authorization", header)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("replay status = %d", w.Code)
	}
}

func TestSearchGenerationsEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newGenerationRouter(db, tokens, &stubGenerator{})

	owner, header := seedCatalogUser(t, db, tokens, "a@b.com")
	mug := seedCatalogItem(t, db, "100", "Coffee Mug")
	plate := seedCatalogItem(t, db, "101", "Plate")
	for _, it := range []*domain.CatalogItem{mug, plate} {
		if err := repo.CreateGeneration(context.Background(), db, &domain.UserGeneration{
			UserID: owner.ID, CatalogItemID: it.ID, VariantName: "v1",
		}); err != nil {
			t.Fatalf("seed generation: %v", err)
		}
	}

	w := doGenReq(t, r, http.MethodPost, "/generations/search/mug", header, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var views []services.GenerationView
	_ = json.Unmarshal(w.Body.Bytes(), &views)
	if len(views) != 1 || views[0].Item.Name != "Coffee Mug" {
		t.Fatalf("unexpected views: %+v", views)
	}

	if w := doGenReq(t, r, http.MethodPost, "/generations/search/%20", header, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("blank needle status = %d", w.Code)
	}
}
