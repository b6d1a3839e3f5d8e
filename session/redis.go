package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBinder maps opaque session tokens to cart ids. Each successful lookup
// slides the binding's expiry forward.
type RedisBinder struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBinder(client *redis.Client, ttl time.Duration) *RedisBinder {
	return &RedisBinder{client: client, ttl: ttl}
}

func (b *RedisBinder) Lookup(ctx context.Context, token string) (int64, bool, error) {
	val, err := b.client.GetEx(ctx, bindingKey(token), b.ttl).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get failed: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cart binding for session: %w", err)
	}
	return id, true, nil
}

func (b *RedisBinder) Bind(ctx context.Context, token string, cartID int64) error {
	if err := b.client.Set(ctx, bindingKey(token), strconv.FormatInt(cartID, 10), b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func bindingKey(token string) string {
	return fmt.Sprintf("cart:session:%s", token)
}
