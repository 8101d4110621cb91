// Catalog HTTP handlers.
//
// This file exposes REST endpoints for the shared catalog:
//   - GET  /catalog              (items left to generate, ETag support)
//   - POST /catalog/search/:word (substring search with generated flags)
//
// The catalog itself is shared; what varies per caller is which items they
// have already generated content for, so both endpoints are user-scoped reads.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

// ListCatalog godoc
// @ID          listCatalog
// @Summary     List items left to generate
// @Description Returns catalog items the current user has not generated content for yet, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.CatalogItem
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /catalog [get]
func (h *Handlers) ListCatalog(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort). The list varies with the catalog AND with
	// the caller's generation set (generating removes an item from the view),
	// so the tag folds in both stats.
	var db *gorm.DB
	if svc, isConcrete := h.catalogSvc.(*services.CatalogService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		itemCount, itemTS, itemErr := repo.CatalogStats(ctx, db)
		genCount, genTS, genErr := repo.GenerationsStats(ctx, db, uid)
		if itemErr == nil && genErr == nil {
			var its, gts int64
			if itemTS != nil {
				its = itemTS.Unix()
			}
			if genTS != nil {
				gts = genTS.Unix()
			}
			etag := fmt.Sprintf(`W/"catalog:%d:%d:%d:%d:%d"`, uid, itemCount, its, genCount, gts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.catalogSvc.ListRemaining(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// SearchCatalog godoc
// @ID          searchCatalog
// @Summary     Search the catalog
// @Description Case-insensitive substring search over item names, capped at 100 rows. Each result carries a "generated" flag for the current user.
// @Tags        Catalog
// @Produce     json
// @Security    BearerAuth
//
// @Param       word  path  string  true  "Search needle"
//
// @Success     200  {array}   services.AnnotatedItem
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /catalog/search/{word} [post]
func (h *Handlers) SearchCatalog(c *gin.Context) {
	needle := strings.TrimSpace(c.Param("word"))
	if needle == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "search needle required")
		return
	}

	items, err := h.catalogSvc.Search(c.Request.Context(), userID(c), needle)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}
