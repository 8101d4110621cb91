// Spreadsheet transfer HTTP handlers.
//
// This file exposes the .xlsx endpoints:
//   - POST /excel/upload-items     (admin bulk catalog upload)
//   - GET  /excel/export-items     (export my generations)
//   - GET  /excel/backup-database  (admin four-sheet backup)
package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itemgate/go-itemgate-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UploadItems godoc
// @ID          uploadItems
// @Summary     Bulk upload catalog items
// @Description Inserts catalog rows from an .xlsx workbook (multipart field "file"). Rows failing validation are skipped with per-row reasons, capped at 10. Admin only.
// @Tags        Excel
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       file  formData  file  true  "Workbook with header row {external_id, name, price, photo_url, slug}"
//
// @Success     200  {object}  services.UploadReport
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "Admin role required"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /excel/upload-items [post]
func (h *Handlers) UploadItems(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart file field \"file\" required")
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".xlsx" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "only .xlsx files are supported")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeUploadFailed, "cannot read uploaded file")
		return
	}
	defer f.Close()

	report, err := h.catalogSvc.BulkUpload(c.Request.Context(), userID(c), f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeUploadFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, report)
}

// ExportItems godoc
// @ID          exportItems
// @Summary     Export my generations
// @Description Downloads the current user's generations as an .xlsx workbook and marks every included row as exported.
// @Tags        Excel
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
//
// @Success     200  {file}    file "Workbook download"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse "Nothing to export"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /excel/export-items [get]
func (h *Handlers) ExportItems(c *gin.Context) {
	buf, err := h.excelSvc.ExportGenerations(c.Request.Context(), userID(c))
	if err != nil {
		if errors.Is(err, services.ErrNothingToExport) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no generations to export")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	name := "generations_" + time.Now().UTC().Format("2006-01-02") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// BackupDatabase godoc
// @ID          backupDatabase
// @Summary     Download a database backup
// @Description Downloads a four-sheet .xlsx backup (catalog items, generations, recent logs, users without password hashes). Admin only.
// @Tags        Excel
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
//
// @Success     200  {file}    file "Workbook download"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "Admin role required"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /excel/backup-database [get]
func (h *Handlers) BackupDatabase(c *gin.Context) {
	buf, err := h.excelSvc.BackupDatabase(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		return
	}

	name := "backup_" + time.Now().UTC().Format("2006-01-02T15-04-05") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
