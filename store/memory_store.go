package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopping-cart/model"

	"github.com/shopspring/decimal"
)

type memItem struct {
	productID int64
	quantity  int
}

type memCart struct {
	total             decimal.Decimal
	lastInteractionAt time.Time
	abandonedAt       *time.Time
	items             []memItem
}

// MemoryStore implements Store in process memory. A single mutex serialises
// writers, which gives UpdateCart the same all-or-nothing behaviour as the
// Postgres transaction.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]model.Product
	carts    map[int64]*memCart
	nextProd int64
	nextCart int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]model.Product),
		carts:    make(map[int64]*memCart),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateProduct(_ context.Context, name string, price decimal.Decimal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextProd++
	s.products[s.nextProd] = model.Product{ID: s.nextProd, Name: name, Price: price}
	return s.nextProd, nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id int64) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, ErrProductNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateCart(_ context.Context, now time.Time) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCart++
	s.carts[s.nextCart] = &memCart{total: decimal.Zero, lastInteractionAt: now}
	return model.Cart{ID: s.nextCart, TotalPrice: decimal.Zero, LastInteractionAt: now}, nil
}

func (s *MemoryStore) GetCart(_ context.Context, id int64) (model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *MemoryStore) UpdateCart(_ context.Context, id int64, fn MutateFunc) (model.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(id)
	if err != nil {
		return model.Cart{}, err
	}
	if cart.IsAbandoned() {
		return model.Cart{}, ErrCartAbandoned
	}
	change, err := fn(&cart)
	if err != nil {
		return model.Cart{}, err
	}

	mc := s.carts[id]
	switch change.Op {
	case model.ItemNone:
		return cart, nil
	case model.ItemUpsert:
		if _, ok := s.products[change.ProductID]; !ok {
			return model.Cart{}, ErrProductNotFound
		}
		found := false
		for i := range mc.items {
			if mc.items[i].productID == change.ProductID {
				mc.items[i].quantity = change.Quantity
				found = true
			}
		}
		if !found {
			mc.items = append(mc.items, memItem{productID: change.ProductID, quantity: change.Quantity})
		}
	case model.ItemDelete:
		for i := range mc.items {
			if mc.items[i].productID == change.ProductID {
				mc.items = append(mc.items[:i], mc.items[i+1:]...)
				break
			}
		}
	default:
		return model.Cart{}, fmt.Errorf("unknown item op %d", change.Op)
	}
	mc.total = cart.TotalPrice
	mc.lastInteractionAt = cart.LastInteractionAt
	return cart, nil
}

func (s *MemoryStore) ListIdleCarts(_ context.Context, before time.Time) ([]int64, error) {
	return s.filter(func(c model.Cart) bool { return c.IdleBefore(before) }), nil
}

func (s *MemoryStore) ListReapableCarts(_ context.Context, before time.Time) ([]int64, error) {
	return s.filter(func(c model.Cart) bool { return c.AbandonedBefore(before) }), nil
}

func (s *MemoryStore) MarkAbandoned(_ context.Context, id int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.load(id)
	if err != nil || !cart.MarkAbandoned(at) {
		return false, nil
	}
	s.carts[id].abandonedAt = &cart.AbandonedAt
	return true, nil
}

func (s *MemoryStore) DeleteAbandonedCart(_ context.Context, id int64, before time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.load(id)
	if err != nil || !cart.AbandonedBefore(before) {
		return false, nil
	}
	delete(s.carts, id)
	return true, nil
}

// SetLastInteraction overwrites a cart's interaction time without touching
// anything else. Used to age carts in tests and fixtures.
func (s *MemoryStore) SetLastInteraction(id int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[id]; ok {
		c.lastInteractionAt = at
	}
}

// SetAbandonedAt overwrites a cart's abandonment time.
func (s *MemoryStore) SetAbandonedAt(id int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[id]; ok {
		c.abandonedAt = &at
	}
}

func (s *MemoryStore) filter(match func(model.Cart) bool) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for id := range s.carts {
		if c, err := s.load(id); err == nil && match(c) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// load must be called with s.mu held.
func (s *MemoryStore) load(id int64) (model.Cart, error) {
	mc, ok := s.carts[id]
	if !ok {
		return model.Cart{}, ErrCartNotFound
	}
	c := model.Cart{ID: id, TotalPrice: mc.total, LastInteractionAt: mc.lastInteractionAt}
	if mc.abandonedAt != nil {
		c.State = model.CartAbandoned
		c.AbandonedAt = *mc.abandonedAt
	}
	for _, it := range mc.items {
		c.Items = append(c.Items, model.CartItem{Product: s.products[it.productID], Quantity: it.quantity})
	}
	return c, nil
}
