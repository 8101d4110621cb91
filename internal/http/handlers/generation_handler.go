// Generation ledger HTTP handlers.
//
// This file exposes REST endpoints for the per-user generation ledger:
//   - GET    /generations                  (list, ETag support)
//   - POST   /generations/items/:item_id   (generate or regenerate)
//   - PUT    /generations/:id              (edit allow-listed fields)
//   - DELETE /generations/:id              (delete)
//   - POST   /generations/search/:word     (search by catalog item name)
//
// All routes are scoped to the authenticated owner; a row belonging to
// another user is reported as not found.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itemgate/go-itemgate-backend/internal/ai"
	"github.com/itemgate/go-itemgate-backend/internal/repo"
	"github.com/itemgate/go-itemgate-backend/internal/services"
)

// ListGenerations godoc
// @ID          listGenerations
// @Summary     List my generations
// @Description Returns the current user's generations newest first, with nested catalog item views. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Generations
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   services.GenerationView
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /generations [get]
func (h *Handlers) ListGenerations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, isConcrete := h.genSvc.(*services.GenerationService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.GenerationsStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"generations:%d:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	views, err := h.genSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}

// Generate godoc
// @ID          generate
// @Summary     Generate content for an item
// @Description Calls the AI collaborator for the given catalog item and upserts the result under (user, item, variant). Repeating the call with the same variant overwrites the existing row.
// @Tags        Generations
// @Produce     json
// @Security    BearerAuth
//
// @Param       item_id       path   int     true   "Catalog item id"
// @Param       variant_name  query  string  false  "Variant label (defaults to the primary variant)"
//
// @Success     200  {object}  services.GenerationView "Existing variant overwritten"
// @Success     201  {object}  services.GenerationView "New variant created"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Item not found"
// @Failure     502  {object}  handlers.ErrorResponse "AI collaborator contract violation"
// @Failure     503  {object}  handlers.ErrorResponse "AI collaborator unreachable"
// @Router      /generations/items/{item_id} [post]
func (h *Handlers) Generate(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("item_id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "item id must be an integer")
		return
	}
	variant := c.Query("variant_name")

	view, created, err := h.genSvc.Generate(c.Request.Context(), userID(c), uint(itemID), variant)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrItemNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "catalog item not found")
		case errors.Is(err, ai.ErrBadResponse):
			fail(c, http.StatusBadGateway, ErrCodeBadGateway, err.Error())
		default:
			fail(c, http.StatusServiceUnavailable, ErrCodeGenerateFailed, err.Error())
		}
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, view)
}

// UpdateGeneration godoc
// @ID          updateGeneration
// @Summary     Edit a generation
// @Description Updates the variant name, description, and/or keywords of a generation owned by the current user. Other fields are ignored; an empty patch is rejected.
// @Tags        Generations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  int                        true  "Generation id"
// @Param       body  body  services.GenerationPatch   true  "Fields to update"
//
// @Success     200  {object}  services.GenerationView
// @Failure     400  {object}  handlers.ErrorResponse "Empty patch"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Generation not found"
// @Failure     409  {object}  handlers.ErrorResponse "Variant name already in use"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /generations/{id} [put]
func (h *Handlers) UpdateGeneration(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "generation id must be an integer")
		return
	}

	var patch services.GenerationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	view, err := h.genSvc.Update(c.Request.Context(), userID(c), uint(id), patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyPatch):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no editable fields in request")
		case errors.Is(err, services.ErrGenerationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "generation not found")
		case errors.Is(err, services.ErrVariantExists):
			fail(c, http.StatusConflict, ErrCodeConflict, "variant name already in use for this item")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, view)
}

// DeleteGeneration godoc
// @ID          deleteGeneration
// @Summary     Delete a generation
// @Description Hard-deletes a generation owned by the current user.
// @Tags        Generations
// @Security    BearerAuth
//
// @Param       id  path  int  true  "Generation id"
//
// @Success     204  {string}  string "No Content"
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Generation not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /generations/{id} [delete]
func (h *Handlers) DeleteGeneration(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "generation id must be an integer")
		return
	}

	if err := h.genSvc.Delete(c.Request.Context(), userID(c), uint(id)); err != nil {
		if errors.Is(err, services.ErrGenerationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "generation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}

// SearchGenerations godoc
// @ID          searchGenerations
// @Summary     Search my generations
// @Description Case-insensitive substring search over the catalog item names behind the current user's generations, capped at 200 rows.
// @Tags        Generations
// @Produce     json
// @Security    BearerAuth
//
// @Param       word  path  string  true  "Search needle"
//
// @Success     200  {array}   services.GenerationView
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /generations/search/{word} [post]
func (h *Handlers) SearchGenerations(c *gin.Context) {
	needle := strings.TrimSpace(c.Param("word"))
	if needle == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "search needle required")
		return
	}

	views, err := h.genSvc.Search(c.Request.Context(), userID(c), needle)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}
