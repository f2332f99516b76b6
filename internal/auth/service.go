package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/api/internal/apperr"
)

type Service struct {
	Store      Store
	Secret     []byte
	TokenTTL   time.Duration
	BcryptCost int
	Log        *zap.Logger
}

func (s *Service) cost() int {
	if s.BcryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BcryptCost
}

func (s *Service) ttl() time.Duration {
	if s.TokenTTL == 0 {
		return 168 * time.Hour
	}
	return s.TokenTTL
}

// Register creates a USER account and returns it with a signed token.
func (s *Service) Register(ctx context.Context, email, password, name string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, "", apperr.New(apperr.CodeInvalidArgument, "invalid email")
	}
	if len(password) < 6 {
		return User{}, "", apperr.New(apperr.CodeInvalidArgument, "password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return User{}, "", err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         RoleUser,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Store.Create(ctx, u); err != nil {
		return User{}, "", err
	}

	tok, err := s.sign(u)
	if err != nil {
		return User{}, "", err
	}
	if s.Log != nil {
		s.Log.Info("user registered", zap.String("userId", u.ID))
	}
	return u, tok, nil
}

// Login verifies credentials. Unknown email and wrong password surface
// the same UNAUTHORIZED message.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Store.GetByEmail(ctx, email)
	if err != nil {
		return User{}, "", apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, "", apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}
	tok, err := s.sign(u)
	if err != nil {
		return User{}, "", err
	}
	return u, tok, nil
}

// Verify resolves a bearer token into an Identity.
func (s *Service) Verify(tokenStr string) (Identity, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid token")
		}
		return s.Secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Identity{}, apperr.New(apperr.CodeUnauthorized, "invalid token")
	}
	return Identity{UserID: sub, Email: email, Role: Role(role)}, nil
}

func (s *Service) sign(u User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl()).Unix(),
	})
	return tok.SignedString(s.Secret)
}
