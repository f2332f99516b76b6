package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sweetshop/api/internal/apperr"
)

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Create(ctx context.Context, u User) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO users(id, email, name, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.PasswordHash, string(u.Role), u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return apperr.New(apperr.CodeConflict, "user exists")
	}
	return err
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, role, created_at FROM users WHERE email = $1`, email)
}

func (s *PGStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.get(ctx, `SELECT id, email, name, password_hash, role, created_at FROM users WHERE id = $1`, id)
}

func (s *PGStore) get(ctx context.Context, query, arg string) (User, error) {
	var u User
	var role string
	err := s.DB.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}
