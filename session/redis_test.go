package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBinder(t *testing.T) (*RedisBinder, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBinder(client, time.Hour), mr
}

func TestLookup_Unbound(t *testing.T) {
	b, _ := setupBinder(t)

	_, ok, err := b.Lookup(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBindThenLookup(t *testing.T) {
	b, mr := setupBinder(t)
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "tok", 42))
	assert.Equal(t, "42", mustGet(t, mr, "cart:session:tok"))

	id, ok, err := b.Lookup(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	// rebinding replaces the previous cart
	require.NoError(t, b.Bind(ctx, "tok", 43))
	id, _, _ = b.Lookup(ctx, "tok")
	assert.Equal(t, int64(43), id)
}

func TestBindingExpires(t *testing.T) {
	b, mr := setupBinder(t)
	ctx := context.Background()

	require.NoError(t, b.Bind(ctx, "tok", 1))
	mr.FastForward(30 * time.Minute)
	_, ok, _ := b.Lookup(ctx, "tok")
	require.True(t, ok)

	// the lookup above refreshed the TTL
	mr.FastForward(45 * time.Minute)
	_, ok, _ = b.Lookup(ctx, "tok")
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)
	_, ok, _ = b.Lookup(ctx, "tok")
	assert.False(t, ok)
}

func TestLookup_CorruptValue(t *testing.T) {
	b, mr := setupBinder(t)
	require.NoError(t, mr.Set("cart:session:bad", "not-a-number"))

	_, _, err := b.Lookup(context.Background(), "bad")
	assert.Error(t, err)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
