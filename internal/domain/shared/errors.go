package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of the error with a more specific message.
// The code is preserved so errors.Is still matches the sentinel.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// Is matches domain errors by code, letting errors.Is compare against
// the sentinels below regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrCartEmpty           = NewDomainError("CART_EMPTY", "Cart has no items")
	ErrCouponNotFound      = NewDomainError("COUPON_NOT_FOUND", "Coupon code not found")
	ErrOrderNotCancellable = NewDomainError("ORDER_NOT_CANCELLABLE", "Order can no longer be cancelled")
	ErrAlreadyPaid         = NewDomainError("ALREADY_PAID", "Order already has a successful payment")
	ErrSignatureInvalid    = NewDomainError("SIGNATURE_INVALID", "Webhook signature verification failed")
)
