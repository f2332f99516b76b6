package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/orders"
	"github.com/sweetshop/api/internal/redisx"
	"github.com/sweetshop/api/internal/sweets"
)

type SweetsHandler struct {
	Catalog *sweets.Service
	Engine  *orders.Engine
	Auth    *auth.Service
	Redis   *redis.Client // list cache; may be nil
}

type createSweetReq struct {
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type updateSweetReq struct {
	Name     *string          `json:"name"`
	Category *string          `json:"category"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int             `json:"quantity"`
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *SweetsHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(h.Auth))

		r.Post("/sweets", h.create)
		r.Get("/sweets", h.list)
		r.Get("/sweets/search", h.search)
		r.Put("/sweets/{id}", h.update)
		r.Patch("/sweets/{id}", h.update)
		r.Delete("/sweets/{id}", h.delete)
		r.Post("/sweets/{id}/purchase", h.purchase)
		r.Post("/sweets/{id}/restock", h.restock)
	})
}

func (h *SweetsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSweetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Catalog.Create(ctx, identityFrom(r), req.Name, req.Category, req.Price, req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateList(ctx)
	writeJSON(w, http.StatusCreated, it)
}

func (h *SweetsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache-aside with a short TTL; the DB stays the source of truth
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, redisx.KeySweetsList).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	items, err := h.Catalog.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		if b, err := json.Marshal(items); err == nil {
			_ = h.Redis.Set(ctx, redisx.KeySweetsList, b, redisx.TTLSweetsList).Err()
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *SweetsHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := sweets.Filter{
		Text:     q.Get("text"),
		Category: q.Get("category"),
	}
	if v := q.Get("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid minPrice"})
			return
		}
		f.MinPrice = &d
	}
	if v := q.Get("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid maxPrice"})
			return
		}
		f.MaxPrice = &d
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Catalog.Search(ctx, f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *SweetsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSweetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Catalog.Update(ctx, identityFrom(r), chi.URLParam(r, "id"), sweets.Patch{
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateList(ctx)
	writeJSON(w, http.StatusOK, it)
}

func (h *SweetsHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, identityFrom(r), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateList(ctx)
	writeJSON(w, http.StatusOK, map[string]string{"message": "sweet deleted"})
}

func (h *SweetsHandler) purchase(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	remaining, err := h.Engine.Purchase(ctx, identityFrom(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateList(ctx)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "purchase complete",
		"remaining": remaining,
	})
}

func (h *SweetsHandler) restock(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := h.Engine.Restock(ctx, identityFrom(r), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.invalidateList(ctx)
	writeJSON(w, http.StatusOK, it)
}

func (h *SweetsHandler) invalidateList(ctx context.Context) {
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, redisx.KeySweetsList).Err()
	}
}
