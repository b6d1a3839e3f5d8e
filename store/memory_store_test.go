package store

import (
	"context"
	"testing"
	"time"

	"shopping-cart/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpdateCartPersistsChange(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	pid, err := s.CreateProduct(ctx, "widget", decimal.RequireFromString("2.50"))
	require.NoError(t, err)
	p, err := s.GetProduct(ctx, pid)
	require.NoError(t, err)

	cart, err := s.CreateCart(ctx, now)
	require.NoError(t, err)

	_, err = s.UpdateCart(ctx, cart.ID, func(c *model.Cart) (model.ItemChange, error) {
		ch, err := c.Add(p, 4)
		c.Recalculate(now)
		return ch, err
	})
	require.NoError(t, err)

	got, err := s.GetCart(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 4, got.Items[0].Quantity)
	assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(10)))
}

func TestMemoryStore_FailedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cart, _ := s.CreateCart(ctx, time.Now())

	_, err := s.UpdateCart(ctx, cart.ID, func(c *model.Cart) (model.ItemChange, error) {
		return c.Add(model.Product{ID: 1}, -3)
	})
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)

	got, _ := s.GetCart(ctx, cart.ID)
	assert.True(t, got.IsEmpty())

	_, err = s.UpdateCart(ctx, 404, func(c *model.Cart) (model.ItemChange, error) {
		return model.ItemChange{}, nil
	})
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestMemoryStore_SweepQueries(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()

	fresh, _ := s.CreateCart(ctx, now.Add(-time.Hour))
	idle, _ := s.CreateCart(ctx, now.Add(-5*time.Hour))

	ids, err := s.ListIdleCarts(ctx, now.Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{idle.ID}, ids)

	ok, _ := s.MarkAbandoned(ctx, idle.ID, now)
	assert.True(t, ok)
	ok, _ = s.MarkAbandoned(ctx, idle.ID, now.Add(time.Minute))
	assert.False(t, ok)

	got, _ := s.GetCart(ctx, idle.ID)
	assert.Equal(t, now, got.AbandonedAt)

	cutoff := now.Add(-7 * 24 * time.Hour)
	ok, _ = s.DeleteAbandonedCart(ctx, idle.ID, cutoff)
	assert.False(t, ok, "recently abandoned cart must survive")

	s.SetAbandonedAt(idle.ID, now.Add(-8*24*time.Hour))
	ids, _ = s.ListReapableCarts(ctx, cutoff)
	assert.Equal(t, []int64{idle.ID}, ids)
	ok, _ = s.DeleteAbandonedCart(ctx, idle.ID, cutoff)
	assert.True(t, ok)

	_, err = s.GetCart(ctx, idle.ID)
	assert.ErrorIs(t, err, ErrCartNotFound)
	_, err = s.GetCart(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryStore_UpdateCartRefusesAbandonedCart(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	pid, _ := s.CreateProduct(ctx, "p", decimal.NewFromInt(2))
	cart, _ := s.CreateCart(ctx, time.Now().Add(-4*time.Hour))
	ok, _ := s.MarkAbandoned(ctx, cart.ID, time.Now())
	require.True(t, ok)

	called := false
	_, err := s.UpdateCart(ctx, cart.ID, func(c *model.Cart) (model.ItemChange, error) {
		called = true
		return c.Add(model.Product{ID: pid, Price: decimal.NewFromInt(2)}, 1)
	})
	assert.ErrorIs(t, err, ErrCartAbandoned)
	assert.False(t, called)

	got, _ := s.GetCart(ctx, cart.ID)
	assert.True(t, got.IsEmpty())
	assert.True(t, got.TotalPrice.IsZero())
}
