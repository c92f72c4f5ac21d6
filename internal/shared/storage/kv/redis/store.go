package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"signaware-client/internal/shared/storage/kv"
	"signaware-client/internal/shared/util"
)

const keyPrefix = "signaware"

// Store implements kv.Store on a Redis instance shared by several client profiles.
type Store struct {
	client    *goredis.Client
	namespace string
}

// New wraps an existing client. Keys are namespaced by a hash of the profile.
func New(client *goredis.Client, profile string) *Store {
	return &Store{
		client:    client,
		namespace: keyPrefix + ":" + util.HashProfileKey(profile)[:16],
	}
}

// Dial opens a client and verifies connectivity.
func Dial(ctx context.Context, addr, password string, db int, profile string) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, profile), nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", kv.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) key(k string) string {
	return s.namespace + ":" + k
}

var _ kv.Store = (*Store)(nil)
