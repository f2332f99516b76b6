package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/httpx"
	"github.com/sweetshop/api/internal/memstore"
	"github.com/sweetshop/api/internal/orders"
	"github.com/sweetshop/api/internal/sweets"
)

type testAPI struct {
	router *chi.Mux
	store  *memstore.Store
	auth   *auth.Service
}

func newAPI(t *testing.T) *testAPI {
	t.Helper()
	ms := memstore.New()
	authSvc := &auth.Service{
		Store:      ms,
		Secret:     []byte("test-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	catalog := &sweets.Service{Store: ms, Ledger: ms}
	engine := &orders.Engine{Orders: ms, Sweets: ms, Ledger: ms}

	r := httpx.NewRouter()
	(&httpx.AuthHandler{Auth: authSvc}).Register(r)
	(&httpx.SweetsHandler{Catalog: catalog, Engine: engine, Auth: authSvc}).Register(r)
	(&httpx.OrdersHandler{Engine: engine, Auth: authSvc}).Register(r)

	return &testAPI{router: r, store: ms, auth: authSvc}
}

// adminToken seeds an ADMIN account directly in the store and logs in.
func (a *testAPI) adminToken(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rootpass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.store.Create(context.Background(), auth.User{
		ID:           "admin-1",
		Email:        "admin@shop.test",
		PasswordHash: string(hash),
		Role:         auth.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	}))
	_, tok, err := a.auth.Login(context.Background(), "admin@shop.test", "rootpass")
	require.NoError(t, err)
	return tok
}

func (a *testAPI) userToken(t *testing.T, email string) string {
	t.Helper()
	_, tok, err := a.auth.Register(context.Background(), email, "sugarplum", "")
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{"/sweets", "/orders"} {
		rec := api.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := api.do(t, http.MethodGet, "/sweets", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSweetLifecycle(t *testing.T) {
	api := newAPI(t)
	adminTok := api.adminToken(t)
	userTok := api.userToken(t, "alice@shop.test")

	// non-admin cannot create
	rec := api.do(t, http.MethodPost, "/sweets", userTok, map[string]any{
		"name": "Fudge", "category": "chocolate", "price": 3.2, "quantity": 10,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/sweets", adminTok, map[string]any{
		"name": "Fudge", "category": "chocolate", "price": 3.2, "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[sweets.SweetItem](t, rec)
	require.NotEmpty(t, created.ID)

	// everyone authenticated can list
	rec = api.do(t, http.MethodGet, "/sweets", userTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]sweets.SweetItem](t, rec)
	require.Len(t, list, 1)

	// partial update
	rec = api.do(t, http.MethodPatch, "/sweets/"+created.ID, adminTok, map[string]any{"name": "Dark Fudge"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[sweets.SweetItem](t, rec)
	assert.Equal(t, "Dark Fudge", updated.Name)
	assert.Equal(t, "chocolate", updated.Category)
	assert.Equal(t, 10, updated.Quantity)

	// invalid price rejected
	rec = api.do(t, http.MethodPatch, "/sweets/"+created.ID, adminTok, map[string]any{"price": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// delete, then 404 on repeat
	rec = api.do(t, http.MethodDelete, "/sweets/"+created.ID, adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(t, http.MethodDelete, "/sweets/"+created.ID, adminTok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	api := newAPI(t)
	adminTok := api.adminToken(t)

	for _, s := range []map[string]any{
		{"name": "Dark Chocolate", "category": "chocolate", "price": 4.0, "quantity": 5},
		{"name": "Milk Chocolate", "category": "chocolate", "price": 3.0, "quantity": 5},
		{"name": "Lemon Drop", "category": "hard candy", "price": 1.25, "quantity": 5},
	} {
		rec := api.do(t, http.MethodPost, "/sweets", adminTok, s)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/sweets/search?text=choco", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]sweets.SweetItem](t, rec), 2)

	rec = api.do(t, http.MethodGet, "/sweets/search?minPrice=1&maxPrice=3", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]sweets.SweetItem](t, rec), 2)

	rec = api.do(t, http.MethodGet, "/sweets/search?minPrice=banana", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPurchaseAndRestockEndpoints(t *testing.T) {
	api := newAPI(t)
	adminTok := api.adminToken(t)
	userTok := api.userToken(t, "alice@shop.test")

	rec := api.do(t, http.MethodPost, "/sweets", adminTok, map[string]any{
		"name": "Ladoo", "category": "indian", "price": 1.5, "quantity": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sweet := decode[sweets.SweetItem](t, rec)

	rec = api.do(t, http.MethodPost, "/sweets/"+sweet.ID+"/purchase", userTok, map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.EqualValues(t, 0, resp["remaining"])

	// over stock: 400, quantity unchanged
	rec = api.do(t, http.MethodPost, "/sweets/"+sweet.ID+"/purchase", userTok, map[string]any{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	q, err := api.store.Read(context.Background(), sweet.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, q)

	// restock is admin-only
	rec = api.do(t, http.MethodPost, "/sweets/"+sweet.ID+"/restock", userTok, map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodPost, "/sweets/"+sweet.ID+"/restock", adminTok, map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[sweets.SweetItem](t, rec).Quantity)

	rec = api.do(t, http.MethodPost, "/sweets/missing/restock", adminTok, map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEndpoints(t *testing.T) {
	api := newAPI(t)
	adminTok := api.adminToken(t)
	aliceTok := api.userToken(t, "alice@shop.test")
	bobTok := api.userToken(t, "bob@shop.test")

	rec := api.do(t, http.MethodPost, "/sweets", adminTok, map[string]any{
		"name": "Toffee", "category": "caramel", "price": 2.0, "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	sweet := decode[sweets.SweetItem](t, rec)

	rec = api.do(t, http.MethodPost, "/orders", aliceTok, map[string]any{"sweetId": sweet.ID, "quantity": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decode[orders.Order](t, rec)
	assert.Equal(t, orders.StatusPending, order.Status)
	assert.Equal(t, "6", order.Total.String())

	rec = api.do(t, http.MethodPost, "/orders", bobTok, map[string]any{"sweetId": sweet.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, rec.Code)

	// each user sees only their own orders
	rec = api.do(t, http.MethodGet, "/orders", aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]orders.Order](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, order.ID, mine[0].ID)

	// admin sees all, newest first
	rec = api.do(t, http.MethodGet, "/orders", adminTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]orders.Order](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, order.ID, all[1].ID)

	// status transitions are admin-only
	rec = api.do(t, http.MethodPatch, "/orders/"+order.ID+"/status", aliceTok, map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(t, http.MethodPatch, "/orders/"+order.ID+"/status", adminTok, map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, orders.StatusConfirmed, decode[orders.Order](t, rec).Status)

	rec = api.do(t, http.MethodPatch, "/orders/"+order.ID+"/status", adminTok, map[string]any{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// insufficient stock surfaces as 400 with no order persisted
	rec = api.do(t, http.MethodPost, "/orders", aliceTok, map[string]any{"sweetId": sweet.ID, "quantity": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = api.do(t, http.MethodPost, "/orders", aliceTok, map[string]any{"sweetId": "missing", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthEndpoints(t *testing.T) {
	api := newAPI(t)

	rec := api.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "carol@shop.test", "password": "sugarplum", "name": "Carol",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[map[string]json.RawMessage](t, rec)
	require.Contains(t, reg, "token")

	// duplicate registration conflicts
	rec = api.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "carol@shop.test", "password": "sugarplum",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "carol@shop.test", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "carol@shop.test", "password": "sugarplum",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[map[string]json.RawMessage](t, rec)
	var token string
	require.NoError(t, json.Unmarshal(login["token"], &token))

	rec = api.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]auth.User](t, rec)
	assert.Equal(t, "carol@shop.test", me["user"].Email)
}
