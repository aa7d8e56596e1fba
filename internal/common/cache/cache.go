package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"exchange-marketplace-backend/internal/platform/redis"
)

// ErrMiss возвращается, когда ключа нет в кэше.
var ErrMiss = goredis.Nil

type Service struct {
	client *redis.Client
}

func NewService(client *redis.Client) *Service {
	return &Service{client: client}
}

// Get получает значение из кэша
func (c *Service) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Set сохраняет значение в кэш
func (c *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.client.Set(ctx, key, string(data), ttl).Err()
}

// Delete удаляет значение из кэша
func (c *Service) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// DeletePattern удаляет все ключи по паттерну
func (c *Service) DeletePattern(ctx context.Context, pattern string) error {
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return c.client.Del(ctx, keys...).Err()
	}

	return nil
}

// InvalidateOrders инвалидирует кэш публичного списка ордеров
func (c *Service) InvalidateOrders(ctx context.Context) error {
	if err := c.DeletePattern(ctx, "orders:*"); err != nil {
		return fmt.Errorf("failed to invalidate orders cache: %w", err)
	}
	return nil
}
