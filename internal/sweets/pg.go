package sweets

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweetshop/api/internal/apperr"
)

type PGStore struct{ DB *pgxpool.Pool }

const sweetCols = `id, name, category, price, quantity, created_at, updated_at`

func (s *PGStore) Insert(ctx context.Context, it SweetItem) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO sweets(id, name, category, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		it.ID, it.Name, it.Category, it.Price, it.Quantity, it.CreatedAt, it.UpdatedAt)
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (SweetItem, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+sweetCols+` FROM sweets WHERE id = $1`, id)
	return scanSweet(row)
}

// Update applies the catalog fields only; quantity belongs to the
// stock ledger.
func (s *PGStore) Update(ctx context.Context, id string, p Patch) (SweetItem, error) {
	set := ""
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", col, len(args))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if set == "" {
		// nothing to write, still NOT_FOUND when id is unresolved
		return s.Get(ctx, id)
	}
	set += ", updated_at = now()"

	row := s.DB.QueryRow(ctx, `UPDATE sweets SET `+set+` WHERE id = $1 RETURNING `+sweetCols, args...)
	return scanSweet(row)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM sweets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, f Filter) ([]SweetItem, error) {
	where := "TRUE"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Text != "" {
		p := arg("%" + f.Text + "%")
		where += fmt.Sprintf(" AND (name ILIKE %s OR category ILIKE %s)", p, p)
	}
	if f.Category != "" {
		where += fmt.Sprintf(" AND category ILIKE %s", arg(f.Category))
	}
	if f.MinPrice != nil {
		where += fmt.Sprintf(" AND price >= %s", arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where += fmt.Sprintf(" AND price <= %s", arg(*f.MaxPrice))
	}

	rows, err := s.DB.Query(ctx, `SELECT `+sweetCols+` FROM sweets WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSweets(rows)
}

func (s *PGStore) List(ctx context.Context) ([]SweetItem, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+sweetCols+` FROM sweets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSweets(rows)
}

func scanSweet(row pgx.Row) (SweetItem, error) {
	var it SweetItem
	err := row.Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SweetItem{}, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	if err != nil {
		return SweetItem{}, err
	}
	return it, nil
}

func collectSweets(rows pgx.Rows) ([]SweetItem, error) {
	out := []SweetItem{}
	for rows.Next() {
		var it SweetItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Quantity, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
