package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ValidStatus is set membership only; admins may write any of the
// three states in any order.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	SweetID  string `json:"sweetId"`
	Quantity int    `json:"quantity"`
	// Total = price × quantity captured at creation; never recomputed.
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store owns the order rows and the atomicity contract of Place: the
// order insert and the stock decrement commit together or not at all.
type Store interface {
	Place(ctx context.Context, userID, sweetID string, quantity int) (Order, error)

	// ListByUser and ListAll return newest-first (created_at desc,
	// insertion sequence desc as tie-break).
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context) ([]Order, error)

	// UpdateStatus writes the status; when restock is true and the
	// order transitions into CANCELLED, the reserved quantity returns
	// to stock in the same transaction.
	UpdateStatus(ctx context.Context, id string, status Status, restock bool) (Order, error)
}
