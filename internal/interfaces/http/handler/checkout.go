package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	checkoutapp "github.com/recordshop/backend/internal/application/checkout"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
	"github.com/recordshop/backend/internal/interfaces/http/middleware"
)

// CheckoutHandler converts the caller's cart into an order
type CheckoutHandler struct {
	BaseHandler
	checkoutService *checkoutapp.Service
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService *checkoutapp.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// AddressRequest is the wire form of a postal address
type AddressRequest struct {
	Recipient  string `json:"recipient" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

func (r AddressRequest) toAddress() (valueobject.Address, error) {
	return valueobject.NewAddress(r.Recipient, r.Line1, r.Line2, r.City, r.State, r.PostalCode, r.Country)
}

// CheckoutRequest carries the addresses for order creation. The billing
// address is optional and defaults to the shipping address.
type CheckoutRequest struct {
	ShippingAddress AddressRequest  `json:"shipping_address" binding:"required"`
	BillingAddress  *AddressRequest `json:"billing_address"`
}

// Create performs checkout: reserves stock, redeems the coupon, writes
// the order and clears the cart in one transaction.
func (h *CheckoutHandler) Create(c *gin.Context) {
	owner, err := cartOwner(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	shipping, err := req.ShippingAddress.toAddress()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var billing valueobject.Address
	if req.BillingAddress != nil {
		if billing, err = req.BillingAddress.toAddress(); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	userID := uuid.Nil
	if id, ok := middleware.GetUserID(c); ok {
		userID = id
	}

	o, err := h.checkoutService.CreateOrder(c.Request.Context(), checkoutapp.Request{
		Owner:           owner,
		UserID:          userID,
		ShippingAddress: shipping,
		BillingAddress:  billing,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, o)
}

// RegisterRoutes registers the checkout route
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout", h.Create)
}
