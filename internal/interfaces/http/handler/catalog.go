package handler

import (
	"github.com/gin-gonic/gin"

	catalogapp "github.com/recordshop/backend/internal/application/catalog"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/interfaces/http/dto"
)

// CatalogHandler handles record catalog API endpoints
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.Service
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *catalogapp.Service) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// SetPriceRequest updates an item's list price
type SetPriceRequest struct {
	Price string `json:"price" binding:"required"`
}

// SetSalePriceRequest updates an item's sale price; an empty price
// clears the sale
type SetSalePriceRequest struct {
	Price string `json:"price"`
}

// SetActiveRequest toggles an item's availability
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// Create adds a new record to the catalog
func (h *CatalogHandler) Create(c *gin.Context) {
	var req catalogapp.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.catalogService.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, item)
}

// Get retrieves a single record
func (h *CatalogHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	item, err := h.catalogService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// List returns a paginated catalog listing
func (h *CatalogHandler) List(c *gin.Context) {
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
	if req.OrderBy != "" {
		filter.OrderBy = req.OrderBy
		filter.OrderDir = req.OrderDir
	}
	filter.Search = req.Search
	if active := c.Query("active"); active != "" {
		filter.Filters = map[string]interface{}{"active": active == "true"}
	}

	page, err := h.catalogService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// SetPrice updates the list price
func (h *CatalogHandler) SetPrice(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.catalogService.SetPrice(c.Request.Context(), id, req.Price)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// SetSalePrice updates or clears the sale price
func (h *CatalogHandler) SetSalePrice(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetSalePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.catalogService.SetSalePrice(c.Request.Context(), id, req.Price)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// SetActive toggles whether the record can be sold
func (h *CatalogHandler) SetActive(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.catalogService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, item)
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/items")
	{
		items.POST("", h.Create)
		items.GET("", h.List)
		items.GET("/:id", h.Get)
		items.PUT("/:id/price", h.SetPrice)
		items.PUT("/:id/sale-price", h.SetSalePrice)
		items.PUT("/:id/active", h.SetActive)
	}
}
