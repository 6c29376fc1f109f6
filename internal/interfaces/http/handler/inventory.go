package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/recordshop/backend/internal/application/inventory"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles stock management API endpoints
type InventoryHandler struct {
	BaseHandler
	inventoryService *inventoryapp.Service
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *inventoryapp.Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// ReceiveStockRequest adds on-hand stock for an item
type ReceiveStockRequest struct {
	ItemID   string `json:"item_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// SetThresholdRequest updates the low-stock alert threshold
type SetThresholdRequest struct {
	Threshold int `json:"threshold" binding:"gte=0"`
}

// Receive books received stock onto an item's inventory record
func (h *InventoryHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	itemID, err := parseUUID(req.ItemID)
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	record, err := h.inventoryService.ReceiveStock(c.Request.Context(), itemID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// GetByItem returns the inventory record for one item
func (h *InventoryHandler) GetByItem(c *gin.Context) {
	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	record, err := h.inventoryService.GetByItem(c.Request.Context(), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// List returns paginated inventory records
func (h *InventoryHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	page, err := h.inventoryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// ListLowStock returns every record at or below its alert threshold
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	records, err := h.inventoryService.ListLowStock(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, records)
}

// SetThreshold updates an item's low-stock threshold
func (h *InventoryHandler) SetThreshold(c *gin.Context) {
	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.inventoryService.SetLowStockThreshold(c.Request.Context(), itemID, req.Threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, record)
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inv := rg.Group("/inventory")
	{
		inv.POST("/receive", h.Receive)
		inv.GET("", h.List)
		inv.GET("/low-stock", h.ListLowStock)
		inv.GET("/items/:itemID", h.GetByItem)
		inv.PUT("/items/:itemID/threshold", h.SetThreshold)
	}
}
