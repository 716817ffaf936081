package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/salesrollup/internal/domain/errors"
	"github.com/polkiloo/salesrollup/internal/server/http/dto"
	"github.com/polkiloo/salesrollup/internal/server/http/middleware"
	"github.com/polkiloo/salesrollup/internal/worker"
)

// ChangeHandler accepts order change events.
type ChangeHandler struct {
	facade IngestFacade
	logger *slog.Logger
}

// NewChangeHandler constructs ChangeHandler.
func NewChangeHandler(facade IngestFacade, logger *slog.Logger) *ChangeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeHandler{facade: facade, logger: logger}
}

// Submit handles POST /api/stores/:tenantId/orders/:orderId/changes.
func (h *ChangeHandler) Submit(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param(middleware.TenantParam))
	orderID := strings.TrimSpace(c.Param("orderId"))
	if tenantID == "" || orderID == "" {
		errorBody(c, http.StatusBadRequest, "tenant and order are required")
		return
	}

	var req dto.ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorBody(c, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		errorBody(c, http.StatusBadRequest, "malformed change: "+err.Error())
		return
	}
	if req.ForeignTenant(tenantID) {
		errorBody(c, http.StatusBadRequest, "snapshot belongs to another tenant")
		return
	}

	ev := req.ToEvent(tenantID, orderID)
	if err := h.facade.SubmitChange(c.Request.Context(), ev); err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidEvent), errors.Is(err, domainErrors.ErrMissingTenant):
			errorBody(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, domainErrors.ErrQueueFull), errors.Is(err, worker.ErrStopped):
			c.Header("Retry-After", "1")
			errorBody(c, http.StatusServiceUnavailable, "ingest queue unavailable")
		default:
			h.logger.Error("submit change failed", slog.String("tenant_id", tenantID), slog.String("order_id", orderID), slog.Any("error", err))
			errorBody(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.ChangeAccepted{TenantID: tenantID, OrderID: orderID, Revision: req.Revision})
}
