package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweetshop/api/internal/apperr"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so the same
// reserve-stock statement serves the ledger and the order transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Adjust is the one reserve-stock primitive. The guard in the WHERE
// clause keeps quantity non-negative; under row locking the first
// committer wins and the loser observes insufficient stock.
func Adjust(ctx context.Context, db DBTX, sweetID string, delta int) (int, error) {
	var remaining int
	err := db.QueryRow(ctx, `
		UPDATE sweets
		SET quantity = quantity + $2, updated_at = now()
		WHERE id = $1 AND quantity + $2 >= 0
		RETURNING quantity`, sweetID, delta).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// Zero rows: missing sweet or guard rejection.
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sweets WHERE id = $1)`, sweetID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	return 0, apperr.New(apperr.CodeInsufficientStock, "not enough stock")
}

type PGLedger struct{ DB *pgxpool.Pool }

func (l *PGLedger) Adjust(ctx context.Context, sweetID string, delta int) (int, error) {
	return Adjust(ctx, l.DB, sweetID, delta)
}

func (l *PGLedger) Read(ctx context.Context, sweetID string) (int, error) {
	var q int
	err := l.DB.QueryRow(ctx, `SELECT quantity FROM sweets WHERE id = $1`, sweetID).Scan(&q)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	if err != nil {
		return 0, err
	}
	return q, nil
}

func (l *PGLedger) Set(ctx context.Context, sweetID string, quantity int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE sweets SET quantity = $2, updated_at = now() WHERE id = $1`,
		sweetID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	return nil
}
