package sweets

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sweetshop/api/internal/apperr"
	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/events"
	kafkax "github.com/sweetshop/api/internal/kafka"
	"github.com/sweetshop/api/internal/stock"
)

// Service is the catalog manager. Quantity never changes through the
// store directly; the ledger is the only writer.
type Service struct {
	Store  Store
	Ledger stock.Ledger
	Stock  events.Publisher // sweets.stock.adjusted; may be nil
	Log    *zap.Logger
	Name   string // producer name on events
}

func (s *Service) Create(ctx context.Context, id auth.Identity, name, category string, price decimal.Decimal, quantity int) (SweetItem, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return SweetItem{}, err
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(category) == "" {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "name and category are required")
	}
	if !price.IsPositive() {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "price must be positive")
	}
	if quantity < 0 {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "quantity must be non-negative")
	}

	now := time.Now().UTC()
	it := SweetItem{
		ID:        uuid.NewString(),
		Name:      name,
		Category:  category,
		Price:     price,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.Insert(ctx, it); err != nil {
		return SweetItem{}, err
	}
	if s.Log != nil {
		s.Log.Info("sweet created", zap.String("sweetId", it.ID), zap.String("name", it.Name))
	}
	return it, nil
}

func (s *Service) Update(ctx context.Context, id auth.Identity, sweetID string, p Patch) (SweetItem, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return SweetItem{}, err
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "name must not be empty")
	}
	if p.Price != nil && !p.Price.IsPositive() {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "price must be positive")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return SweetItem{}, apperr.New(apperr.CodeInvalidArgument, "quantity must be non-negative")
	}

	out, err := s.Store.Update(ctx, sweetID, p)
	if err != nil {
		return SweetItem{}, err
	}
	if p.Quantity != nil {
		if err := s.Ledger.Set(ctx, sweetID, *p.Quantity); err != nil {
			return SweetItem{}, err
		}
		out.Quantity = *p.Quantity
		s.publishAdjusted(sweetID, 0, *p.Quantity, events.ReasonAdminSet)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id auth.Identity, sweetID string) error {
	if err := auth.RequireAdmin(id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, sweetID); err != nil {
		return err
	}
	if s.Log != nil {
		s.Log.Info("sweet deleted", zap.String("sweetId", sweetID))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, sweetID string) (SweetItem, error) {
	return s.Store.Get(ctx, sweetID)
}

// Search materializes all matches eagerly; filters AND together.
func (s *Service) Search(ctx context.Context, f Filter) ([]SweetItem, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, apperr.New(apperr.CodeInvalidArgument, "minPrice exceeds maxPrice")
	}
	return s.Store.Search(ctx, f)
}

func (s *Service) List(ctx context.Context) ([]SweetItem, error) {
	return s.Store.List(ctx)
}

func (s *Service) publishAdjusted(sweetID string, delta, remaining int, reason string) {
	if s.Stock == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventStockAdjusted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Name,
		CorrelationID: sweetID,
	}
	ev.Payload = kafkax.MustMarshal(events.StockAdjustedPayload{
		SweetID: sweetID, Delta: delta, Remaining: remaining, Reason: reason,
	})
	s.Stock.Publish(events.PartitionKey(sweetID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventStockAdjusted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
