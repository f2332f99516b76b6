// Package memstore is a mutex-guarded in-memory implementation of the
// store interfaces. It backs the test suite and STORE_BACKEND=memory;
// it carries the same atomicity contracts as the Postgres stores.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sweetshop/api/internal/apperr"
	"github.com/sweetshop/api/internal/auth"
	"github.com/sweetshop/api/internal/orders"
	"github.com/sweetshop/api/internal/sweets"
)

type Store struct {
	mu      sync.Mutex
	sweets  map[string]sweets.SweetItem
	orders  map[string]orders.Order
	seqs    map[string]int64 // order id -> insertion sequence
	users   map[string]auth.User
	byEmail map[string]string
	seq     int64
}

func New() *Store {
	return &Store{
		sweets:  make(map[string]sweets.SweetItem),
		orders:  make(map[string]orders.Order),
		seqs:    make(map[string]int64),
		users:   make(map[string]auth.User),
		byEmail: make(map[string]string),
	}
}

// ---- stock.Ledger ----

func (s *Store) Adjust(ctx context.Context, sweetID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustLocked(sweetID, delta)
}

// adjustLocked is the one reserve-stock primitive; Place reuses it so
// the invariant check lives in a single place.
func (s *Store) adjustLocked(sweetID string, delta int) (int, error) {
	it, ok := s.sweets[sweetID]
	if !ok {
		return 0, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	next := it.Quantity + delta
	if next < 0 {
		return 0, apperr.New(apperr.CodeInsufficientStock, "not enough stock")
	}
	it.Quantity = next
	it.UpdatedAt = time.Now().UTC()
	s.sweets[sweetID] = it
	return next, nil
}

func (s *Store) Read(ctx context.Context, sweetID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.sweets[sweetID]
	if !ok {
		return 0, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	return it.Quantity, nil
}

func (s *Store) Set(ctx context.Context, sweetID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.sweets[sweetID]
	if !ok {
		return apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	it.Quantity = quantity
	it.UpdatedAt = time.Now().UTC()
	s.sweets[sweetID] = it
	return nil
}

// ---- sweets.Store ----

func (s *Store) Insert(ctx context.Context, it sweets.SweetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweets[it.ID] = it
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (sweets.SweetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.sweets[id]
	if !ok {
		return sweets.SweetItem{}, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	return it, nil
}

func (s *Store) Update(ctx context.Context, id string, p sweets.Patch) (sweets.SweetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.sweets[id]
	if !ok {
		return sweets.SweetItem{}, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	// Quantity is the ledger's; Update never touches it.
	it.UpdatedAt = time.Now().UTC()
	s.sweets[id] = it
	return it, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sweets[id]; !ok {
		return apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	delete(s.sweets, id)
	return nil
}

func (s *Store) Search(ctx context.Context, f sweets.Filter) ([]sweets.SweetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []sweets.SweetItem{}
	text := strings.ToLower(f.Text)
	for _, it := range s.sweets {
		if text != "" &&
			!strings.Contains(strings.ToLower(it.Name), text) &&
			!strings.Contains(strings.ToLower(it.Category), text) {
			continue
		}
		if f.Category != "" && !strings.EqualFold(it.Category, f.Category) {
			continue
		}
		if f.MinPrice != nil && it.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && it.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *Store) List(ctx context.Context) ([]sweets.SweetItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sweets.SweetItem, 0, len(s.sweets))
	for _, it := range s.sweets {
		out = append(out, it)
	}
	return out, nil
}

// ---- orders.Store ----

func (s *Store) Place(ctx context.Context, userID, sweetID string, quantity int) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.sweets[sweetID]
	if !ok {
		return orders.Order{}, apperr.New(apperr.CodeNotFound, "sweet not found")
	}
	if it.Quantity < quantity {
		return orders.Order{}, apperr.New(apperr.CodeInsufficientStock, "not enough stock")
	}

	now := time.Now().UTC()
	o := orders.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		SweetID:   sweetID,
		Quantity:  quantity,
		Total:     it.Price.Mul(decimal.NewFromInt(int64(quantity))),
		Status:    orders.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.adjustLocked(sweetID, -quantity); err != nil {
		return orders.Order{}, err
	}
	s.seq++
	s.seqs[o.ID] = s.seq
	s.orders[o.ID] = o
	return o, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []orders.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	s.sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	s.sortNewestFirst(out)
	return out, nil
}

func (s *Store) sortNewestFirst(out []orders.Order) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seqs[out[i].ID] > s.seqs[out[j].ID]
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.New(apperr.CodeNotFound, "order not found")
	}
	return o, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status orders.Status, restock bool) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, apperr.New(apperr.CodeNotFound, "order not found")
	}
	prior := o.Status
	o.Status = status
	o.UpdatedAt = time.Now().UTC()

	if restock && status == orders.StatusCancelled && prior != orders.StatusCancelled {
		if _, err := s.adjustLocked(o.SweetID, o.Quantity); err != nil &&
			!apperr.Is(err, apperr.CodeNotFound) { // sweet may have been deleted
			return orders.Order{}, err
		}
	}
	s.orders[id] = o
	return o, nil
}

// ---- auth.Store ----

func (s *Store) Create(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return apperr.New(apperr.CodeConflict, "user exists")
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return auth.User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	return s.users[id], nil
}

func (s *Store) GetByID(ctx context.Context, id string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, apperr.New(apperr.CodeNotFound, "user not found")
	}
	return u, nil
}
