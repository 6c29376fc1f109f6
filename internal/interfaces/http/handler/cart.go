package handler

import (
	"github.com/gin-gonic/gin"

	cartapp "github.com/recordshop/backend/internal/application/cart"
	"github.com/recordshop/backend/internal/domain/cart"
	"github.com/recordshop/backend/internal/interfaces/http/middleware"
)

// CartHandler handles shopping cart API endpoints. Cart ownership is
// resolved from the session middleware: guests get a session-owned
// cart, signed-in shoppers a user-owned one.
type CartHandler struct {
	BaseHandler
	cartService *cartapp.Service
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService *cartapp.Service) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// AddItemRequest puts a quantity of an item into the cart
type AddItemRequest struct {
	ItemID   string `json:"item_id" binding:"required,uuid"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// SetQuantityRequest replaces a line's quantity; zero removes the line
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// ApplyCouponRequest attaches a coupon code to the cart
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// respondCart sends the cart priced: subtotal, coupon discount preview
// and total alongside the lines.
func (h *CartHandler) respondCart(c *gin.Context, crt *cart.Cart) {
	view, err := h.cartService.BuildView(c.Request.Context(), crt)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Get returns the caller's cart, creating an empty one on first touch
func (h *CartHandler) Get(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	crt, err := h.cartService.GetOrCreate(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// AddItem adds an item to the cart, summing with any existing line
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	itemID, err := parseUUID(req.ItemID)
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	crt, err := h.cartService.AddItem(c.Request.Context(), owner, itemID, req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// SetQuantity sets a line's quantity; zero removes the line
func (h *CartHandler) SetQuantity(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	crt, err := h.cartService.SetQuantity(c.Request.Context(), owner, itemID, *req.Quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// RemoveItem drops a line from the cart
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	itemID, err := parseIDParam(c, "itemID")
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	crt, err := h.cartService.RemoveItem(c.Request.Context(), owner, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// ApplyCoupon validates and attaches a coupon to the cart
func (h *CartHandler) ApplyCoupon(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	crt, err := h.cartService.ApplyCoupon(c.Request.Context(), owner, req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// RemoveCoupon detaches the cart's coupon
func (h *CartHandler) RemoveCoupon(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	crt, err := h.cartService.RemoveCoupon(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// Sync refreshes price snapshots and reports stock problems, so the
// storefront can warn the shopper before checkout.
func (h *CartHandler) Sync(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	crt, priceChanges, err := h.cartService.SyncPrices(ctx, owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	stockIssues, err := h.cartService.ValidateStock(ctx, owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	view, err := h.cartService.BuildView(ctx, crt)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"cart":          view,
		"price_changes": priceChanges,
		"stock_issues":  stockIssues,
	})
}

// Adopt merges the guest session cart into the signed-in user's cart.
// Called by the storefront right after login.
func (h *CartHandler) Adopt(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		h.BadRequest(c, "Adopting a session cart requires a signed-in user")
		return
	}

	crt, err := h.cartService.AdoptSessionCart(c.Request.Context(), middleware.GetSessionID(c), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// Clear empties the cart in one call
func (h *CartHandler) Clear(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	crt, err := h.cartService.Clear(c.Request.Context(), owner)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.respondCart(c, crt)
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	crt := rg.Group("/cart")
	{
		crt.GET("", h.Get)
		crt.DELETE("", h.Clear)
		crt.POST("/items", h.AddItem)
		crt.PUT("/items/:itemID", h.SetQuantity)
		crt.DELETE("/items/:itemID", h.RemoveItem)
		crt.POST("/coupon", h.ApplyCoupon)
		crt.DELETE("/coupon", h.RemoveCoupon)
		crt.POST("/sync", h.Sync)
		crt.POST("/adopt", h.Adopt)
	}
}
