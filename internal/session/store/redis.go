// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/voxdesk/voxdesk/internal/log"
	"github.com/voxdesk/voxdesk/internal/session"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string
	DB       int
}

// RedisStore persists sessions in Redis with a native key TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

const redisKeyPrefix = "voxdesk:session:"

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session store: redis connection failed: %w", err)
	}

	logger := log.WithComponent("store")
	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis session store")

	return &RedisStore{client: client, ttl: session.TTL}, nil
}

// NewRedisStoreWithClient wraps an existing client (tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ttl: session.TTL}
}

// Get loads a session; expiry is handled by Redis itself.
func (r *RedisStore) Get(ctx context.Context, id string) (*session.Session, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session store: redis get: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session store: decode session: %w", err)
	}
	return &s, nil
}

// Save upserts the session with a refreshed TTL.
func (r *RedisStore) Save(ctx context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session store: encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+s.ConvID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("session store: redis set: %w", err)
	}
	return nil
}

// Delete removes the session key.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session store: redis del: %w", err)
	}
	return nil
}

// Close releases the client pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
