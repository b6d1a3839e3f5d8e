package service

import (
	"context"

	"shopping-cart/model"

	"github.com/shopspring/decimal"
)

// CartService is what the HTTP layer depends on.
type CartService interface {
	GetOrCreate(ctx context.Context, token string) (model.Cart, error)
	CheckItem(ctx context.Context, productID int64, qty int) (model.Product, error)
	AddProduct(ctx context.Context, cartID, productID int64, qty int) (model.Cart, error)
	RemoveProduct(ctx context.Context, cartID, productID int64) (model.Cart, bool, error)
	UpdateQuantity(ctx context.Context, cartID, productID int64, qty int) (model.Cart, bool, error)
	IsEmpty(ctx context.Context, cartID int64) (bool, error)

	CreateProduct(ctx context.Context, name string, price decimal.Decimal) (int64, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// Binder keeps the session token -> cart id mapping.
type Binder interface {
	Lookup(ctx context.Context, token string) (cartID int64, ok bool, err error)
	Bind(ctx context.Context, token string, cartID int64) error
}
