// Catalog import HTTP handler.
//
// This file exposes the admin streaming import endpoint:
//   - GET /catalog/import/:count (server-sent progress events)
//
// The response is a finite sequence of `data: <message>` events in emission
// order, always ending with a terminal success/failure message. Validation
// failures are rejected with a regular JSON 400 before the stream is opened.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/itemgate/go-itemgate-backend/internal/services"
)

// ImportCatalog godoc
// @ID          importCatalog
// @Summary     Import items from the marketplace
// @Description Streams progress while importing up to :count items from the paginated marketplace API. Admin only.
// @Tags        Catalog
// @Produce     text/event-stream
// @Security    BearerAuth
//
// @Param       count  path  int  true  "Number of items to import (1–9999)"
//
// @Success     200  {string}  string "SSE stream of progress events"
// @Failure     400  {object}  handlers.ErrorResponse "Invalid count"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse "Admin role required"
// @Router      /catalog/import/{count} [get]
func (h *Handlers) ImportCatalog(c *gin.Context) {
	count, err := strconv.Atoi(c.Param("count"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be an integer")
		return
	}

	emitted := false
	emit := func(msg string) {
		if !emitted {
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			// A large run outlives the server's write timeout (hundreds of
			// sequential upstream fetches); clear the per-request deadline so
			// the terminal event still reaches the consumer.
			_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
			emitted = true
		}
		_ = sse.Encode(c.Writer, sse.Event{Data: msg})
		c.Writer.Flush()
	}

	err = h.importSvc.Run(c.Request.Context(), count, userID(c), emit)
	if err != nil && !emitted {
		switch {
		case errors.Is(err, services.ErrInvalidCount):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be a positive integer")
		case errors.Is(err, services.ErrCountTooLarge):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count exceeds the import ceiling")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeImportFailed, err.Error())
		}
	}
	// Once the stream is open, failures have already been reported as the
	// terminal event; there is nothing more to write.
}
