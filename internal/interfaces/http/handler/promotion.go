package handler

import (
	"github.com/gin-gonic/gin"

	promotionapp "github.com/recordshop/backend/internal/application/promotion"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/interfaces/http/dto"
)

// PromotionHandler handles coupon administration endpoints
type PromotionHandler struct {
	BaseHandler
	promotionService *promotionapp.Service
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(promotionService *promotionapp.Service) *PromotionHandler {
	return &PromotionHandler{promotionService: promotionService}
}

// Create creates a new coupon
func (h *PromotionHandler) Create(c *gin.Context) {
	var req promotionapp.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	coupon, err := h.promotionService.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, coupon)
}

// Get returns a coupon by ID
func (h *PromotionHandler) Get(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID format")
		return
	}

	coupon, err := h.promotionService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, coupon)
}

// List returns coupons with pagination
func (h *PromotionHandler) List(c *gin.Context) {
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
	filter.Search = listReq.Search

	result, err := h.promotionService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}

// Deactivate turns a coupon off
func (h *PromotionHandler) Deactivate(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid coupon ID format")
		return
	}

	coupon, err := h.promotionService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, coupon)
}

// RegisterRoutes registers all coupon routes
func (h *PromotionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	coupons := rg.Group("/coupons")
	{
		coupons.POST("", h.Create)
		coupons.GET("", h.List)
		coupons.GET("/:id", h.Get)
		coupons.POST("/:id/deactivate", h.Deactivate)
	}
}
