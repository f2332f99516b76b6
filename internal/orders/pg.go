package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sweetshop/api/internal/apperr"
	"github.com/sweetshop/api/internal/stock"
)

type PGStore struct{ DB *pgxpool.Pool }

const orderCols = `id, user_id, sweet_id, quantity, total, status, created_at, updated_at`

// Place locks the sweet row, checks stock, inserts the order with the
// price captured under the lock and decrements through the shared
// stock primitive. Shortfall rolls everything back.
func (s *PGStore) Place(ctx context.Context, userID, sweetID string, quantity int) (Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price decimal.Decimal
	var available int
	err = tx.QueryRow(ctx, `SELECT price, quantity FROM sweets WHERE id = $1 FOR UPDATE`, sweetID).
		Scan(&price, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	if err != nil {
		return Order{}, err
	}
	if available < quantity {
		return Order{}, apperr.New(apperr.CodeInsufficientStock, "not enough stock")
	}

	o := Order{
		ID:       uuid.NewString(),
		UserID:   userID,
		SweetID:  sweetID,
		Quantity: quantity,
		Total:    price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:   StatusPending,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, sweet_id, quantity, total, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, o.SweetID, o.Quantity, o.Total, string(o.Status))
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}

	if _, err := stock.Adjust(ctx, tx, sweetID, -quantity); err != nil {
		return Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *PGStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *PGStore) ListAll(ctx context.Context) ([]Order, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, status Status, restock bool) (Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var prior string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&prior)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.CodeNotFound, "order not found")
	}
	if err != nil {
		return Order{}, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+orderCols, id, string(status))
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}

	// Restock exactly once, on the transition into CANCELLED.
	if restock && status == StatusCancelled && Status(prior) != StatusCancelled {
		if _, err := stock.Adjust(ctx, tx, o.SweetID, o.Quantity); err != nil &&
			!apperr.Is(err, apperr.CodeNotFound) { // sweet may have been hard-deleted
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.UserID, &o.SweetID, &o.Quantity, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.New(apperr.CodeNotFound, "order not found")
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	out := []Order{}
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.SweetID, &o.Quantity, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
