package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/recordshop/backend/internal/application/order"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/interfaces/http/dto"
	"github.com/recordshop/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles order API endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// UpdateStatusRequest moves an order along its fulfilment lifecycle.
// Only the fulfilment statuses are settable here; cancellation and
// payment-driven statuses have their own entry points.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=SHIPPED DELIVERED"`
}

// List returns the signed-in user's orders. Without a user identity
// there is nothing to list; order history is not kept per session.
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.BadRequest(c, "Listing orders requires a signed-in user")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if listReq.Page > 0 {
		filter.Page = listReq.Page
	}
	if listReq.PageSize > 0 {
		filter.PageSize = listReq.PageSize
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	result, err := h.orderService.ListByUser(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// Get returns a single order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, o)
}

// GetByNumber looks an order up by its human-readable order number
func (h *OrderHandler) GetByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" {
		h.BadRequest(c, "Order number is required")
		return
	}

	o, err := h.orderService.GetByNumber(c.Request.Context(), number)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, o)
}

// UpdateStatus advances an order to the requested lifecycle status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	o, err := h.orderService.UpdateStatus(c.Request.Context(), id, order.Status(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, o)
}

// Cancel cancels an order, releasing or restocking its inventory
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, o)
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.GET("/number/:number", h.GetByNumber)
		orders.PUT("/:id/status", h.UpdateStatus)
		orders.POST("/:id/cancel", h.Cancel)
	}
}
