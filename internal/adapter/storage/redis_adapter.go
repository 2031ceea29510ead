package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

const (
	cartKeyPrefix        = "cart:"
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	cartTTL              = 30 * 24 * time.Hour
)

// addItemScript increments a cart line and refreshes the cart expiry in one
// round trip. Returns the new quantity.
var addItemScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local quantity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = redis.call('HINCRBY', key, field, quantity)
redis.call('EXPIRE', key, ttl)

return current
`)

// setItemScript overwrites a cart line; a quantity below 1 removes it.
var setItemScript = redis.NewScript(`
local key = KEYS[1]
local field = ARGV[1]
local quantity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

if quantity < 1 then
	return redis.call('HDEL', key, field)
end

redis.call('HSET', key, field, quantity)
redis.call('EXPIRE', key, ttl)

return 1
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID + ":items"
}

func (r *RedisAdapter) GetCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	fields, err := r.client.HGetAll(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, 0, len(fields))
	for productID, raw := range fields {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("cart item %s: %w", productID, err)
		}
		if qty < 1 {
			continue
		}
		items = append(items, domain.CartItem{ProductID: productID, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	return items, nil
}

func (r *RedisAdapter) AddItem(ctx context.Context, userID, productID string, quantity int) (int, error) {
	ttl := int64(cartTTL / time.Second)
	result, err := addItemScript.Run(ctx, r.client, []string{cartKey(userID)}, productID, quantity, ttl).Int()
	if err != nil {
		return 0, err
	}

	return result, nil
}

func (r *RedisAdapter) SetItem(ctx context.Context, userID, productID string, quantity int) error {
	ttl := int64(cartTTL / time.Second)
	return setItemScript.Run(ctx, r.client, []string{cartKey(userID)}, productID, quantity, ttl).Err()
}

func (r *RedisAdapter) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	n, err := r.client.HDel(ctx, cartKey(userID), productID).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (r *RedisAdapter) ClearCart(ctx context.Context, userID string) error {
	return r.client.Del(ctx, cartKey(userID)).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	err := r.client.Del(ctx, idempotencyKeyPrefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
