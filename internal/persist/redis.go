package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisOptions configures DialRedis.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	Namespace string

	// MaxRetries bounds the connection attempts made by DialRedis.
	// Zero means a single attempt.
	MaxRetries int
}

// Redis is a Backend on a Redis server. Keys are stored as plain strings
// under "<namespace>:<key>".
type Redis struct {
	rdb       *redis.Client
	namespace string
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, namespace string) *Redis {
	return &Redis{rdb: rdb, namespace: namespace}
}

// DialRedis connects to opts.Addr and pings it, retrying with exponential
// backoff capped at 30s.
func DialRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	attempts := max(opts.MaxRetries, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			backoff := min(time.Duration(1<<(i-1))*time.Second, 30*time.Second)
			slog.Warn("redis not ready, retrying", "addr", opts.Addr, "backoff", backoff, "attempt", i+1)
			select {
			case <-ctx.Done():
				rdb.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			slog.Debug("connected to redis", "addr", opts.Addr, "db", opts.DB)
			return NewRedis(rdb, opts.Namespace), nil
		}
	}

	rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis at %s after %d attempts: %w", opts.Addr, attempts, err)
}

func (r *Redis) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

// Get returns the value stored under key, or ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", r.key(key), err)
	}
	return v, nil
}

// Put stores value under key without expiry.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("put %q: %w", r.key(key), err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("delete %q: %w", r.key(key), err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
