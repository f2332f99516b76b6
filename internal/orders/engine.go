package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sweetshop/api/internal/apperr"
	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/events"
	kafkax "github.com/sweetshop/api/internal/kafka"
	"github.com/sweetshop/api/internal/redisx"
	"github.com/sweetshop/api/internal/stock"
	"github.com/sweetshop/api/internal/sweets"
)

// Engine places orders and manages their lifecycle. It is the only
// component that couples an order row to a stock mutation; the direct
// purchase and restock paths go straight to the ledger.
type Engine struct {
	Orders Store
	Sweets sweets.Store
	Ledger stock.Ledger

	OrderEvents  events.Publisher // sweets.order.placed; may be nil
	StatusEvents events.Publisher // sweets.order.status; may be nil
	StockEvents  events.Publisher // sweets.stock.adjusted; may be nil

	Cache *redis.Client // order status cache; may be nil
	Log   *zap.Logger
	Name  string

	// RestockOnCancel returns stock when an order transitions into
	// CANCELLED. Off by default: cancelled orders forfeit the stock,
	// matching observed behavior.
	RestockOnCancel bool
}

// PlaceOrder creates a PENDING order and decrements stock atomically;
// the store owns the transaction, the engine validates and publishes.
func (e *Engine) PlaceOrder(ctx context.Context, id auth.Identity, sweetID string, quantity int) (Order, error) {
	if quantity <= 0 {
		return Order{}, apperr.New(apperr.CodeInvalidArgument, "quantity must be > 0")
	}
	o, err := e.Orders.Place(ctx, id.UserID, sweetID, quantity)
	if err != nil {
		return Order{}, err
	}

	e.cacheStatus(ctx, o)
	e.publish(e.OrderEvents, events.EventOrderPlaced, o.ID, events.OrderPlacedPayload{
		OrderID:  o.ID,
		UserID:   o.UserID,
		SweetID:  o.SweetID,
		Quantity: o.Quantity,
		Total:    o.Total.String(),
	})
	// the stock stream sees order-driven drains too; remaining is a
	// post-commit read, advisory for consumers like the low-stock set
	if remaining, rerr := e.Ledger.Read(ctx, o.SweetID); rerr == nil {
		e.publish(e.StockEvents, events.EventStockAdjusted, o.SweetID, events.StockAdjustedPayload{
			SweetID: o.SweetID, Delta: -o.Quantity, Remaining: remaining, Reason: events.ReasonOrder,
		})
	}
	if e.Log != nil {
		e.Log.Info("order placed",
			zap.String("orderId", o.ID),
			zap.String("sweetId", o.SweetID),
			zap.Int("quantity", o.Quantity))
	}
	return o, nil
}

// ListOrders scopes by role: admins see the whole store, everyone else
// only their own orders. Newest-first either way.
func (e *Engine) ListOrders(ctx context.Context, id auth.Identity) ([]Order, error) {
	if id.IsAdmin() {
		return e.Orders.ListAll(ctx)
	}
	return e.Orders.ListByUser(ctx, id.UserID)
}

func (e *Engine) UpdateStatus(ctx context.Context, id auth.Identity, orderID string, status Status) (Order, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return Order{}, err
	}
	if !ValidStatus(status) {
		return Order{}, apperr.Newf(apperr.CodeInvalidArgument, "invalid status: %s", status)
	}
	o, err := e.Orders.UpdateStatus(ctx, orderID, status, e.RestockOnCancel)
	if err != nil {
		return Order{}, err
	}

	e.cacheStatus(ctx, o)
	e.publish(e.StatusEvents, events.EventOrderStatusChanged, o.ID, events.OrderStatusChangedPayload{
		OrderID: o.ID,
		Status:  string(o.Status),
	})
	return o, nil
}

// Purchase is the direct decrement path: no order row, just the
// ledger. Both purchase mechanisms share the same reserve-stock
// primitive underneath.
func (e *Engine) Purchase(ctx context.Context, id auth.Identity, sweetID string, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, apperr.New(apperr.CodeInvalidArgument, "quantity must be > 0")
	}
	remaining, err := e.Ledger.Adjust(ctx, sweetID, -quantity)
	if err != nil {
		return 0, err
	}

	e.publish(e.StockEvents, events.EventStockAdjusted, sweetID, events.StockAdjustedPayload{
		SweetID: sweetID, Delta: -quantity, Remaining: remaining, Reason: events.ReasonPurchase,
	})
	return remaining, nil
}

func (e *Engine) Restock(ctx context.Context, id auth.Identity, sweetID string, quantity int) (sweets.SweetItem, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return sweets.SweetItem{}, err
	}
	if quantity <= 0 {
		return sweets.SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "quantity must be > 0")
	}
	remaining, err := e.Ledger.Adjust(ctx, sweetID, quantity)
	if err != nil {
		return sweets.SweetItem{}, err
	}

	e.publish(e.StockEvents, events.EventStockAdjusted, sweetID, events.StockAdjustedPayload{
		SweetID: sweetID, Delta: quantity, Remaining: remaining, Reason: events.ReasonRestock,
	})
	return e.Sweets.Get(ctx, sweetID)
}

func (e *Engine) cacheStatus(ctx context.Context, o Order) {
	if e.Cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	val := fmt.Sprintf(`{"status":%q}`, o.Status)
	_ = e.Cache.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (e *Engine) publish(p events.Publisher, eventType, correlationID string, payload any) {
	if p == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Name,
		CorrelationID: correlationID,
	}
	ev.Payload = kafkax.MustMarshal(payload)
	p.Publish(events.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
