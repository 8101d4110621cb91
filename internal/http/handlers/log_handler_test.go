package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/auth"
	"github.com/itemgate/go-itemgate-backend/internal/domain"
	"github.com/itemgate/go-itemgate-backend/internal/http/middleware"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

func newLogRouter(db *gorm.DB, tokens *auth.Manager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, nil, nil, nil, services.NewAuditLog(db))

	r := gin.New()
	r.GET("/logs", middleware.Auth(tokens), middleware.RequireAdmin(), h.ListLogs)
	return r
}

func TestListLogsEndpoint(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newLogRouter(db, tokens)
	header := seedImportAdmin(t, db, tokens)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := repo.AppendLog(context.Background(), db, &domain.LogEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Action:    services.ActionGenerate,
			ItemID:    fmt.Sprintf("ext-%d", i),
			Status:    domain.LogStatusCompleted,
		}); err != nil {
			t.Fatalf("seed log: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/logs?limit=3", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var entries []domain.LogEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Newest first.
	if entries[0].ItemID != "ext-4" || entries[2].ItemID != "ext-2" {
		t.Fatalf("order wrong: %+v", entries)
	}

	// No limit falls back to the repository default and returns everything.
	req = httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Authorization", header)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	entries = nil
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected all 5 entries, got %d", len(entries))
	}
}

func TestListLogsEndpoint_RequiresAdmin(t *testing.T) {
	db := newHandlersDB(t)
	tokens := testTokens()
	r := newLogRouter(db, tokens)
	_, header := seedCatalogUser(t, db, tokens, "user@b.com")

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}
