// Audit log HTTP handler.
//
// This file exposes the admin read side of the append-only audit trail:
//   - GET /logs?limit=N (newest first, default 100)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itemgate/go-itemgate-backend/internal/utils"
)

// ListLogs godoc
// @ID          listLogs
// @Summary     Read the audit log
// @Description Returns the most recent audit entries newest first. Admin only.
// @Tags        Logs
// @Produce     json
// @Security    BearerAuth
//
// @Param       limit  query  int  false  "Maximum entries to return"  minimum(1) default(100)
//
// @Success     200  {array}   domain.LogEntry
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "Admin role required"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /logs [get]
func (h *Handlers) ListLogs(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	entries, err := h.logSvc.Recent(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, entries)
}
