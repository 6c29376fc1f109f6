package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/recordshop/backend/internal/domain/inventory"
	"github.com/recordshop/backend/internal/domain/shared"
)

// LowStockAlertHandler surfaces low-stock events in the operational log
// so replenishment can be triggered before an item sells out.
type LowStockAlertHandler struct {
	logger *zap.Logger
}

// NewLowStockAlertHandler creates a new LowStockAlertHandler.
func NewLowStockAlertHandler(logger *zap.Logger) *LowStockAlertHandler {
	return &LowStockAlertHandler{logger: logger.Named("low_stock_alerts")}
}

// EventTypes returns the event types this handler consumes.
func (h *LowStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventLowStock}
}

// Handle logs the alert.
func (h *LowStockAlertHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.LowStockEvent)
	if !ok {
		return nil
	}
	h.logger.Warn("item is running low on stock",
		zap.String("item_id", e.ItemID.String()),
		zap.Int("available", e.Available),
		zap.Int("threshold", e.Threshold),
	)
	return nil
}

var _ shared.EventHandler = (*LowStockAlertHandler)(nil)
