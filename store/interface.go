package store

// Products: create, get, list.
// Carts: create, get, locked read-modify-write via UpdateCart.
// Sweeper: list idle carts, mark abandoned, list reapable carts, delete abandoned.

import (
	"context"
	"errors"
	"time"

	"shopping-cart/model"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("cart not found")
	// ErrCartAbandoned is returned by UpdateCart when the sweeper marked the
	// cart abandoned before the update took its lock.
	ErrCartAbandoned = errors.New("cart is abandoned")
)

// MutateFunc edits a locked cart in memory and returns the item write that
// persists the edit. Returning an error or an ItemNone change aborts the
// update without writing anything.
type MutateFunc func(cart *model.Cart) (model.ItemChange, error)

type Store interface {
	CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)

	CreateCart(ctx context.Context, now time.Time) (model.Cart, error)
	GetCart(ctx context.Context, id int64) (model.Cart, error)
	UpdateCart(ctx context.Context, id int64, fn MutateFunc) (model.Cart, error)

	ListIdleCarts(ctx context.Context, before time.Time) ([]int64, error)
	MarkAbandoned(ctx context.Context, id int64, at time.Time) (bool, error)
	ListReapableCarts(ctx context.Context, before time.Time) ([]int64, error)
	DeleteAbandonedCart(ctx context.Context, id int64, before time.Time) (bool, error)

	Close() error
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
