// Operator API handlers.
//
// This file exposes REST endpoints for repair-request records:
//   - GET    /requests        (list, paginated)
//   - DELETE /requests/{id}   (remove one record)
//   - GET    /requests/export (raw CSV download)
//
// Handlers are transport-thin: they validate input, call the store, and
// translate results into HTTP responses. Authentication happens one layer up
// (middleware.OperatorAuth).
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/store"
	"github.com/tbourn/go-repair-bot/internal/utils"
)

// RequestStore defines the record operations consumed by HTTP handlers.
// Implementations must be safe for concurrent use.
type RequestStore interface {
	// List returns all stored requests in insertion order.
	List() []domain.Request
	// Delete removes one record; ok is false when the id is unknown.
	Delete(id int64) (ok bool, err error)
	// Export returns the raw CSV file, store.ErrNotFound when none exists.
	Export() ([]byte, error)
}

// Handlers groups the HTTP endpoints for the webhook, the requests view and
// the operator API.
type Handlers struct {
	store RequestStore
	bot   UpdateHandler
}

// New constructs a Handlers instance bound to the given store and bot.
func New(st RequestStore, bot UpdateHandler) *Handlers {
	return &Handlers{store: st, bot: bot}
}

// ListRequestsResponse is the paginated envelope returned by ListRequests.
type ListRequestsResponse struct {
	Items    []domain.Request `json:"items"`
	Page     int              `json:"page" example:"1"`
	PageSize int              `json:"page_size" example:"20"`
	Total    int              `json:"total" example:"42"`
}

// ListRequests handles GET /requests.
//
// @ID          listRequests
// @Summary     List repair requests (paginated)
// @Description Returns a page of stored repair requests, oldest first.
// @Tags        Requests
// @Produce     json
//
// @Param       X-Operator-Token  header  string  true  "Operator API token"
// @Param       page              query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size         query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListRequestsResponse
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	size := utils.AtoiDefault(c.Query("page_size"), 20)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	all := h.store.List()
	total := len(all)

	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	ok(c, http.StatusOK, ListRequestsResponse{
		Items:    all[start:end],
		Page:     page,
		PageSize: size,
		Total:    total,
	})
}

// DeleteRequest handles DELETE /requests/:id.
//
// @ID          deleteRequest
// @Summary     Delete a repair request
// @Description Removes one stored request by its numeric id.
// @Tags        Requests
// @Produce     json
//
// @Param       X-Operator-Token  header  string  true "Operator API token"
// @Param       id                path    int     true "Request ID" minimum(1)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad id"
// @Failure     404  {object} handlers.ErrorResponse "Unknown id"
// @Failure     500  {object} handlers.ErrorResponse "Rewrite failed"
// @Router      /requests/{id} [delete]
func (h *Handlers) DeleteRequest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return
	}

	okDel, err := h.store.Delete(id)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete request")
		return
	}
	if !okDel {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "request not found")
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportRequests handles GET /requests/export.
//
// @ID          exportRequests
// @Summary     Download the CSV export
// @Description Streams the raw append-only CSV file with all stored requests.
// @Tags        Requests
// @Produce     text/csv
//
// @Param       X-Operator-Token  header  string  true "Operator API token"
//
// @Success     200  {string} string "CSV content"
// @Failure     404  {object} handlers.ErrorResponse "No requests recorded yet"
// @Failure     500  {object} handlers.ErrorResponse "Read failed"
// @Router      /requests/export [get]
func (h *Handlers) ExportRequests(c *gin.Context) {
	data, err := h.store.Export()
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no requests recorded yet")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeExportFailed, "could not read export")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="repair_requests.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
