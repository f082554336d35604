package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"teamTracker/internal/models/user"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "tracker:principal:"
	genPrefix = "tracker:principal-gen:"
)

// setIfGeneration writes the principal only while the uid's generation
// still equals the one the caller loaded under. A missing counter is 0.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisCache shares resolved principals between API instances, so a role
// change invalidated on one instance is seen by all of them.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, uid string) (user.Principal, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+uid).Bytes()
	if errors.Is(err, redis.Nil) {
		return user.Principal{}, false, nil
	}
	if err != nil {
		return user.Principal{}, false, fmt.Errorf("redis get: %w", err)
	}

	var p user.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return user.Principal{}, false, fmt.Errorf("decode cached principal: %w", err)
	}
	return p, true, nil
}

func (c *RedisCache) Generation(ctx context.Context, uid string) (uint64, error) {
	gen, err := c.client.Get(ctx, genPrefix+uid).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) Set(ctx context.Context, p user.Principal, gen uint64) (bool, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("encode principal: %w", err)
	}

	keys := []string{genPrefix + p.UID, keyPrefix + p.UID}
	stored, err := setIfGeneration.Run(ctx, c.client, keys,
		strconv.FormatUint(gen, 10), raw, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis set: %w", err)
	}
	return stored == 1, nil
}

// Delete drops the cached principal and advances the generation in one
// transaction. The counter has no expiry.
func (c *RedisCache) Delete(ctx context.Context, uid string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genPrefix+uid)
		pipe.Del(ctx, keyPrefix+uid)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
