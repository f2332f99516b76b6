package sweets_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetshop/api/internal/apperr"
	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/memstore"
	"github.com/sweetshop/api/internal/sweets"
)

var (
	admin = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	user  = auth.Identity{UserID: "user-1", Role: auth.RoleUser}
)

func newCatalog() (*sweets.Service, *memstore.Store) {
	ms := memstore.New()
	return &sweets.Service{Store: ms, Ledger: ms}, ms
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()

	it, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 12)
	require.NoError(t, err)
	assert.NotEmpty(t, it.ID)
	assert.Equal(t, 12, it.Quantity)
	assert.True(t, it.Price.Equal(price("3.20")))

	// duplicate names are allowed
	dup, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 3)
	require.NoError(t, err)
	assert.NotEqual(t, it.ID, dup.ID)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()

	cases := []struct {
		name     string
		itemName string
		category string
		price    decimal.Decimal
		qty      int
	}{
		{"empty name", "", "chocolate", price("1.00"), 1},
		{"empty category", "Fudge", "", price("1.00"), 1},
		{"zero price", "Fudge", "chocolate", decimal.Zero, 1},
		{"negative price", "Fudge", "chocolate", price("-0.50"), 1},
		{"negative quantity", "Fudge", "chocolate", price("1.00"), -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, tc.itemName, tc.category, tc.price, tc.qty)
			assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
		})
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()

	_, err := svc.Create(ctx, user, "Fudge", "chocolate", price("3.20"), 12)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdatePartialFields(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	it, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 12)
	require.NoError(t, err)

	newPrice := price("4.00")
	out, err := svc.Update(ctx, admin, it.ID, sweets.Patch{Price: &newPrice})
	require.NoError(t, err)

	// only the supplied field changes
	assert.True(t, out.Price.Equal(newPrice))
	assert.Equal(t, "Fudge", out.Name)
	assert.Equal(t, "chocolate", out.Category)
	assert.Equal(t, 12, out.Quantity)
}

func TestUpdateQuantityGoesThroughLedger(t *testing.T) {
	ctx := context.Background()
	svc, ms := newCatalog()
	it, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 12)
	require.NoError(t, err)

	qty := 40
	out, err := svc.Update(ctx, admin, it.ID, sweets.Patch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 40, out.Quantity)

	q, err := ms.Read(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, q)
}

func TestUpdateValidationAndNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	it, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 12)
	require.NoError(t, err)

	bad := decimal.Zero
	_, err = svc.Update(ctx, admin, it.ID, sweets.Patch{Price: &bad})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	name := "Toffee"
	_, err = svc.Update(ctx, admin, "missing-id", sweets.Patch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = svc.Update(ctx, user, it.ID, sweets.Patch{Name: &name})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()
	it, err := svc.Create(ctx, admin, "Fudge", "chocolate", price("3.20"), 12)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, admin, it.ID))
	_, err = svc.Get(ctx, it.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	err = svc.Delete(ctx, admin, it.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	err = svc.Delete(ctx, user, it.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestSearchRejectsInvertedRange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newCatalog()

	min := price("5.00")
	max := price("1.00")
	_, err := svc.Search(ctx, sweets.Filter{MinPrice: &min, MaxPrice: &max})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
}
