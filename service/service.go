package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopping-cart/model"
	"shopping-cart/store"

	"github.com/shopspring/decimal"
)

// ErrProductNotInCart signals a remove or update of a product the cart does
// not hold. The service itself reports that case as a false result.
var ErrProductNotInCart = errors.New("product not found in cart")

type Service struct {
	store  store.Store
	binder Binder
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, b Binder, opts ...Option) *Service {
	s := &Service{store: st, binder: b, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

var _ CartService = (*Service)(nil)

// GetOrCreate resolves the cart bound to token. A missing, reaped or
// abandoned cart is replaced by a fresh one bound to the same token.
func (s *Service) GetOrCreate(ctx context.Context, token string) (model.Cart, error) {
	if token == "" {
		return model.Cart{}, errors.New("session token required")
	}
	id, ok, err := s.binder.Lookup(ctx, token)
	if err != nil {
		return model.Cart{}, err
	}
	if ok {
		cart, err := s.store.GetCart(ctx, id)
		if err == nil && !cart.IsAbandoned() {
			return cart, nil
		}
		if err != nil && !errors.Is(err, store.ErrCartNotFound) {
			return model.Cart{}, err
		}
	}

	cart, err := s.store.CreateCart(ctx, s.now())
	if err != nil {
		return model.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	if err := s.binder.Bind(ctx, token, cart.ID); err != nil {
		return model.Cart{}, fmt.Errorf("bind cart %d: %w", cart.ID, err)
	}
	return cart, nil
}

// CheckItem resolves productID and validates qty as an addition, without
// touching any cart. An unknown product is reported before a bad quantity.
func (s *Service) CheckItem(ctx context.Context, productID int64, qty int) (model.Product, error) {
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return model.Product{}, err
	}
	if qty <= 0 {
		return model.Product{}, model.ErrInvalidQuantity
	}
	if qty > model.MaxQuantity {
		return model.Product{}, model.ErrQuantityTooLarge
	}
	return p, nil
}

// AddProduct increments productID by qty, creating the line if needed.
func (s *Service) AddProduct(ctx context.Context, cartID, productID int64, qty int) (model.Cart, error) {
	p, err := s.CheckItem(ctx, productID, qty)
	if err != nil {
		return model.Cart{}, err
	}
	return s.store.UpdateCart(ctx, cartID, func(c *model.Cart) (model.ItemChange, error) {
		change, err := c.Add(p, qty)
		if err != nil {
			return change, err
		}
		c.Recalculate(s.now())
		return change, nil
	})
}

// RemoveProduct drops productID from the cart. It reports false and writes
// nothing when the cart does not hold the product.
func (s *Service) RemoveProduct(ctx context.Context, cartID, productID int64) (model.Cart, bool, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return model.Cart{}, false, err
	}
	removed := false
	cart, err := s.store.UpdateCart(ctx, cartID, func(c *model.Cart) (model.ItemChange, error) {
		change, ok := c.Remove(productID)
		if !ok {
			return change, nil
		}
		removed = true
		c.Recalculate(s.now())
		return change, nil
	})
	return cart, removed, err
}

// UpdateQuantity sets an absolute quantity; qty <= 0 removes the product.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID int64, qty int) (model.Cart, bool, error) {
	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return model.Cart{}, false, err
	}
	if qty > model.MaxQuantity {
		return model.Cart{}, false, model.ErrQuantityTooLarge
	}
	updated := false
	cart, err := s.store.UpdateCart(ctx, cartID, func(c *model.Cart) (model.ItemChange, error) {
		change, ok := c.SetQuantity(productID, qty)
		if !ok {
			return change, nil
		}
		updated = true
		c.Recalculate(s.now())
		return change, nil
	})
	return cart, updated, err
}

func (s *Service) IsEmpty(ctx context.Context, cartID int64) (bool, error) {
	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return false, err
	}
	return cart.IsEmpty(), nil
}

func (s *Service) CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error) {
	if name == "" {
		return 0, errors.New("name required")
	}
	if price.IsNegative() {
		return 0, errors.New("price must be >= 0")
	}
	return s.store.CreateProduct(ctx, name, price)
}

func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.store.ListProducts(ctx)
}
