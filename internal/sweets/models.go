package sweets

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SweetItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Patch is a partial update; nil means "leave untouched". Quantity is
// routed to the stock ledger by the service, stores must not apply it.
type Patch struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	Quantity *int
}

// Filter combines with logical AND; Text is a case-insensitive
// substring match on name or category.
type Filter struct {
	Text     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Store persists sweet definitions. Quantity writes outside Insert go
// through the stock ledger, never through Update.
type Store interface {
	Insert(ctx context.Context, it SweetItem) error
	Get(ctx context.Context, id string) (SweetItem, error)
	Update(ctx context.Context, id string, p Patch) (SweetItem, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f Filter) ([]SweetItem, error)
	List(ctx context.Context) ([]SweetItem, error)
}
