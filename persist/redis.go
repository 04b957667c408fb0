package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/krisalay/memo-cache/types"
)

// RedisAPI is the slice of *redis.Client the backend uses.
type RedisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis keeps the snapshot under one key. TTL of zero keeps it forever.
type Redis struct {
	client RedisAPI
	key    string
	ttl    time.Duration
}

func NewRedis(client RedisAPI, key string, ttl time.Duration) (*Redis, error) {
	if client == nil || key == "" {
		return nil, types.Errorf(types.ErrInvalidOption, "redis backend needs a client and a key")
	}
	return &Redis{client: client, key: key, ttl: ttl}, nil
}

func (r *Redis) Location() string { return "redis:" + r.key }

func (r *Redis) Load(ctx context.Context) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.IOError(err, "get "+r.Location())
	}
	return b, true, nil
}

func (r *Redis) Save(ctx context.Context, blob []byte) error {
	if err := r.client.Set(ctx, r.key, blob, r.ttl).Err(); err != nil {
		return types.IOError(err, "set "+r.Location())
	}
	return nil
}

// RedisConfig is what NewRedisClient needs to dial a server.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient dials cfg and pings it before returning.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s:%d", cfg.Host, cfg.Port)
	}
	return client, nil
}
