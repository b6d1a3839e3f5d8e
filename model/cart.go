package model

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when a non-positive quantity is added to a cart.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrQuantityTooLarge is returned when a line would exceed MaxQuantity.
	ErrQuantityTooLarge = errors.New("quantity is too large")
)

// MaxQuantity is the largest quantity a single cart line can hold. It matches
// the INTEGER column the quantity is stored in.
const MaxQuantity = math.MaxInt32

// Product is owned by the catalogue; carts only reference it.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// CartItem is one product line of a cart. Quantity is always > 0.
type CartItem struct {
	Product  Product
	Quantity int
}

// LineTotal returns quantity * unit price.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartState int

const (
	CartActive CartState = iota
	CartAbandoned
)

// ItemOp says which item row write persists a cart mutation.
type ItemOp int

const (
	ItemNone ItemOp = iota
	ItemUpsert
	ItemDelete
)

// ItemChange describes the single cart_items write produced by a mutation.
// For ItemUpsert, Quantity is the absolute quantity to store.
type ItemChange struct {
	Op        ItemOp
	ProductID int64
	Quantity  int
}

type Cart struct {
	ID                int64
	Items             []CartItem
	TotalPrice        decimal.Decimal
	LastInteractionAt time.Time
	State             CartState
	// AbandonedAt is zero while the cart is active.
	AbandonedAt time.Time
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) IsAbandoned() bool { return c.State == CartAbandoned }

// Item returns the line for productID and its index, or -1 if absent.
func (c *Cart) Item(productID int64) (CartItem, int) {
	for i, it := range c.Items {
		if it.Product.ID == productID {
			return it, i
		}
	}
	return CartItem{}, -1
}

// Add increments the quantity of product by qty, creating the line if needed.
// The cart is left untouched when qty is not positive or the line would grow
// past MaxQuantity.
func (c *Cart) Add(p Product, qty int) (ItemChange, error) {
	if qty <= 0 {
		return ItemChange{}, ErrInvalidQuantity
	}
	cur, i := c.Item(p.ID)
	if qty > MaxQuantity-cur.Quantity {
		return ItemChange{}, ErrQuantityTooLarge
	}
	if i >= 0 {
		c.Items[i].Quantity += qty
		c.Items[i].Product = p
		return ItemChange{Op: ItemUpsert, ProductID: p.ID, Quantity: c.Items[i].Quantity}, nil
	}
	c.Items = append(c.Items, CartItem{Product: p, Quantity: qty})
	return ItemChange{Op: ItemUpsert, ProductID: p.ID, Quantity: qty}, nil
}

// Remove drops the line for productID. It reports false if there was none.
func (c *Cart) Remove(productID int64) (ItemChange, bool) {
	_, i := c.Item(productID)
	if i < 0 {
		return ItemChange{}, false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return ItemChange{Op: ItemDelete, ProductID: productID}, true
}

// SetQuantity sets an absolute quantity for productID; qty <= 0 removes the line.
// Callers bound qty by MaxQuantity.
func (c *Cart) SetQuantity(productID int64, qty int) (ItemChange, bool) {
	_, i := c.Item(productID)
	if i < 0 {
		return ItemChange{}, false
	}
	if qty <= 0 {
		return c.Remove(productID)
	}
	c.Items[i].Quantity = qty
	return ItemChange{Op: ItemUpsert, ProductID: productID, Quantity: qty}, true
}

// Recalculate derives TotalPrice from the current items and records now as
// the last interaction. Every mutation must call it before being persisted.
func (c *Cart) Recalculate(now time.Time) {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.LineTotal())
	}
	c.TotalPrice = total
	c.LastInteractionAt = now
}

// IdleBefore reports whether an active cart was last touched before cutoff.
func (c *Cart) IdleBefore(cutoff time.Time) bool {
	return c.State == CartActive && c.LastInteractionAt.Before(cutoff)
}

// MarkAbandoned moves an active cart to CartAbandoned. An already abandoned
// cart keeps its original timestamp.
func (c *Cart) MarkAbandoned(now time.Time) bool {
	if c.IsAbandoned() {
		return false
	}
	c.State = CartAbandoned
	c.AbandonedAt = now
	return true
}

// AbandonedBefore reports whether the cart was abandoned before cutoff and is
// due to be reaped.
func (c *Cart) AbandonedBefore(cutoff time.Time) bool {
	return c.IsAbandoned() && c.AbandonedAt.Before(cutoff)
}
