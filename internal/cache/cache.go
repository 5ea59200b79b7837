// cache — кэш состояния refresh-токенов поверх Redis.
// Кэш вторичен: источник истины — таблица refresh_tokens.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "snapfood:rt:"

// RefreshEntry — состояние refresh-токена, закэшированное по его хэшу.
type RefreshEntry struct {
	UserID    uuid.UUID
	Revoked   bool
	ExpiresAt time.Time
}

//go:generate mockgen -destination=../../mocks/mock_cache.go -package=mocks github.com/pribylovaa/snapfood/internal/cache RefreshCache

// RefreshCache — контракт кэша refresh-токенов.
type RefreshCache interface {
	// Get возвращает запись и признак её наличия.
	Get(ctx context.Context, hash string) (*RefreshEntry, bool, error)
	// Set сохраняет запись на ttl. Неположительный ttl игнорируется.
	Set(ctx context.Context, hash string, e *RefreshEntry, ttl time.Duration) error
	// MarkRevoked помечает существующую запись отозванной, не трогая TTL.
	MarkRevoked(ctx context.Context, hash string) error
	Close() error
}

// markRevoked меняет поле rev только у существующего ключа,
// иначе HSET создал бы хэш без TTL.
var markRevoked = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HSET", KEYS[1], "rev", "1")
end
return 0
`)

// RedisCache хранит записи как Redis Hash с полями uid, rev (0/1), exp (unix).
type RedisCache struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisCache подключается к Redis по URL (redis://:pass@host:6379/0) и проверяет соединение.
func NewRedisCache(ctx context.Context, redisURL, prefix string) (*RedisCache, error) {
	const op = "cache.NewRedisCache"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newRedisCache(rdb, prefix), nil
}

func newRedisCache(rdb redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) key(hash string) string { return c.prefix + hash }

func (c *RedisCache) Get(ctx context.Context, hash string) (*RefreshEntry, bool, error) {
	const op = "cache.Get"

	m, err := c.rdb.HGetAll(ctx, c.key(hash)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	if len(m) == 0 {
		return nil, false, nil
	}

	uid, err := uuid.Parse(m["uid"])
	if err != nil {
		return nil, false, fmt.Errorf("%s: bad uid: %w", op, err)
	}

	exp, err := strconv.ParseInt(m["exp"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("%s: bad exp: %w", op, err)
	}

	return &RefreshEntry{
		UserID:    uid,
		Revoked:   m["rev"] == "1",
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, true, nil
}

func (c *RedisCache) Set(ctx context.Context, hash string, e *RefreshEntry, ttl time.Duration) error {
	const op = "cache.Set"

	if ttl <= 0 {
		return nil
	}

	rev := "0"
	if e.Revoked {
		rev = "1"
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, c.key(hash), "uid", e.UserID.String(), "rev", rev, "exp", strconv.FormatInt(e.ExpiresAt.Unix(), 10))
	pipe.Expire(ctx, c.key(hash), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *RedisCache) MarkRevoked(ctx context.Context, hash string) error {
	const op = "cache.MarkRevoked"

	err := markRevoked.Run(ctx, c.rdb, []string{c.key(hash)}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

var _ RefreshCache = (*RedisCache)(nil)
