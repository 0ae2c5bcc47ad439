package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV guarda os blobs do histórico e do log de erros no Redis,
// sob prefix:<chave>.
type RedisKV struct {
	rdb redis.UniversalClient

	prefix string
	// ttl 0 = sem expiração (padrão): o histórico é limitado pelo próprio log.
	ttl time.Duration
}

type RedisKVOption func(*RedisKV)

func WithKVPrefix(prefix string) RedisKVOption {
	return func(s *RedisKV) { s.prefix = strings.Trim(prefix, ":") }
}

func WithKVTTL(d time.Duration) RedisKVOption {
	return func(s *RedisKV) { s.ttl = d }
}

func NewRedisKV(rdb redis.UniversalClient, opts ...RedisKVOption) *RedisKV {
	s := &RedisKV{rdb: rdb, prefix: "serprank"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisKV) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return s.rdb.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Ping confirma que o Redis responde.
func (s *RedisKV) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
