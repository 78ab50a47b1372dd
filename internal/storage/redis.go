package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// compareAndSwapScript 内容一致时覆盖写入
var compareAndSwapScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if current == false or current ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2])
return 1
`)

// RedisSlot 基于 Redis 的槽位
type RedisSlot struct {
	client *redis.Client
	prefix string
}

// NewRedisSlot 创建 Redis 槽位
func NewRedisSlot(client *redis.Client, prefix string) *RedisSlot {
	return &RedisSlot{client: client, prefix: strings.TrimSpace(prefix)}
}

// Get 读取槽位
func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	fullKey, err := s.key(key)
	if err != nil {
		return nil, false, err
	}
	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis slot get failed: %w", err)
	}
	return raw, true, nil
}

// Set 写入槽位（不过期）
func (s *RedisSlot) Set(ctx context.Context, key string, value []byte) error {
	fullKey, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, fullKey, value, 0).Err(); err != nil {
		return fmt.Errorf("redis slot set failed: %w", err)
	}
	return nil
}

// Delete 删除槽位
func (s *RedisSlot) Delete(ctx context.Context, key string) error {
	fullKey, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("redis slot delete failed: %w", err)
	}
	return nil
}

// CompareAndSwap 当前内容等于 old 时写入 value，返回是否写入
func (s *RedisSlot) CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error) {
	fullKey, err := s.key(key)
	if err != nil {
		return false, err
	}
	swapped, err := compareAndSwapScript.Run(ctx, s.client, []string{fullKey}, old, value).Int()
	if err != nil {
		return false, fmt.Errorf("redis slot compare and swap failed: %w", err)
	}
	return swapped == 1, nil
}

func (s *RedisSlot) key(key string) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrUnavailable
	}
	key, err := normalizeKey(key)
	if err != nil {
		return "", err
	}
	if s.prefix == "" {
		return "slot:" + key, nil
	}
	return fmt.Sprintf("%s:slot:%s", s.prefix, key), nil
}
