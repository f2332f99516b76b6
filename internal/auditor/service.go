// Package auditor consumes the shop's event stream: it keeps per-sweet
// purchase counters and the low-stock set in Redis, deduplicating by
// event id so replays are harmless.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sweetshop/api/internal/events"
	kafkax "github.com/sweetshop/api/internal/kafka"
	"github.com/sweetshop/api/internal/redisx"
)

type Service struct {
	Redis             *redis.Client
	Log               *zap.Logger
	ServiceName       string
	LowStockThreshold int
}

// HandleOrderPlaced records the purchase against the sweet's counter.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventOrderPlaced {
		return nil
	}
	if seen, err := s.dedup(ctx, env.EventID); err != nil || seen {
		return err
	}

	p, err := kafkax.UnwrapPayload[events.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyPurchases, p.SweetID)
	if err := s.Redis.IncrBy(ctx, key, int64(p.Quantity)).Err(); err != nil {
		return err
	}
	s.Log.Info("order recorded",
		zap.String("orderId", p.OrderID),
		zap.String("sweetId", p.SweetID),
		zap.Int("quantity", p.Quantity))
	return nil
}

// HandleStockAdjusted maintains the low-stock set and counts direct
// purchases.
func (s *Service) HandleStockAdjusted(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventStockAdjusted {
		return nil
	}
	if seen, err := s.dedup(ctx, env.EventID); err != nil || seen {
		return err
	}

	p, err := kafkax.UnwrapPayload[events.StockAdjustedPayload](env.Payload)
	if err != nil {
		return err
	}

	if p.Reason == events.ReasonPurchase {
		key := fmt.Sprintf(redisx.KeyPurchases, p.SweetID)
		if err := s.Redis.IncrBy(ctx, key, int64(-p.Delta)).Err(); err != nil {
			return err
		}
	}

	if p.Remaining <= s.LowStockThreshold {
		if err := s.Redis.SAdd(ctx, redisx.KeyLowStock, p.SweetID).Err(); err != nil {
			return err
		}
		s.Log.Warn("low stock",
			zap.String("sweetId", p.SweetID),
			zap.Int("remaining", p.Remaining))
	} else {
		if err := s.Redis.SRem(ctx, redisx.KeyLowStock, p.SweetID).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dedup(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	seen, err := redisx.Exists(ctx, s.Redis, key)
	if err != nil {
		return false, err
	}
	if seen {
		return true, nil
	}
	return false, s.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
}
