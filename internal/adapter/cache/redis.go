package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/moazamadrees/Local-Embeddings-with-vLLM/internal/domain"
)

// RedisCache shares answers between server replicas. Entries live under
// "<prefix><generation>:<key>"; Invalidate increments the generation and
// lets the old entries expire.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zerolog.Logger
}

// Connect pings addr a few times with backoff before giving up.
func Connect(ctx context.Context, addr, password string, maxRetries int, logger *zerolog.Logger) (*redis.Client, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              0,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	var err error
	for i := range maxRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			logger.Info().Dur("backoff", backoff).Msg("waiting before redis retry")
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		err = client.Ping(ctx).Err()
		if err == nil {
			logger.Debug().Str("addr", addr).Int("attempts", i+1).Msg("redis connected")
			return client, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("redis ping failed")
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, err)
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = "deptqa:answer:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisCache) genKey() string {
	return c.prefix + "gen"
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) entryKey(ctx context.Context, key string) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", c.prefix, gen, key), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.Answer, bool) {
	k, err := c.entryKey(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("answer cache unavailable")
		return domain.Answer{}, false
	}

	data, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("answer cache read failed")
		}
		return domain.Answer{}, false
	}

	var answer domain.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.Warn().Err(err).Str("key", k).Msg("dropping corrupt cache entry")
		c.client.Del(ctx, k)
		return domain.Answer{}, false
	}
	return answer, true
}

func (c *RedisCache) Put(ctx context.Context, key string, answer domain.Answer) {
	k, err := c.entryKey(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Msg("answer cache unavailable")
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode answer")
		return
	}
	if err := c.client.Set(ctx, k, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("answer cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("answer cache invalidation failed")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
