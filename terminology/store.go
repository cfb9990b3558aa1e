package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists resolved lookups between runs.
// Fallback displays are never written to a Store.
type Store interface {
	GetDisplay(ctx context.Context, key Key) (string, bool, error)
	PutDisplay(ctx context.Context, key Key, display string) error
	GetProperties(ctx context.Context, key Key) ([]Property, bool, error)
	PutProperties(ctx context.Context, key Key, props []Property) error
}

const (
	// DefaultStorePrefix namespaces lookup keys in Redis.
	DefaultStorePrefix = "labcodeset:lookup:"

	// DefaultStoreTTL is how long a stored lookup stays valid.
	DefaultStoreTTL = 7 * 24 * time.Hour
)

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets the expiry of stored entries. Zero keeps entries forever.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultStorePrefix,
		ttl:    DefaultStoreTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedisStore connects to the Redis server at url (redis://host:port/db)
// and checks the connection.
func OpenRedisStore(ctx context.Context, url string, opts ...RedisStoreOption) (*RedisStore, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(o)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, opts...), nil
}

// GetDisplay implements Store.
func (s *RedisStore) GetDisplay(ctx context.Context, key Key) (string, bool, error) {
	v, err := s.client.Get(ctx, s.displayKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// PutDisplay implements Store.
func (s *RedisStore) PutDisplay(ctx context.Context, key Key, display string) error {
	return s.client.Set(ctx, s.displayKey(key), display, s.ttl).Err()
}

// GetProperties implements Store.
func (s *RedisStore) GetProperties(ctx context.Context, key Key) ([]Property, bool, error) {
	raw, err := s.client.Get(ctx, s.propertiesKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var props []Property
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, false, fmt.Errorf("corrupt stored properties for %s: %w", key, err)
	}
	return props, true, nil
}

// PutProperties implements Store.
func (s *RedisStore) PutProperties(ctx context.Context, key Key, props []Property) error {
	if props == nil {
		props = []Property{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.propertiesKey(key), raw, s.ttl).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) displayKey(key Key) string {
	return s.prefix + "display:" + key.String()
}

func (s *RedisStore) propertiesKey(key Key) string {
	return s.prefix + "properties:" + key.String()
}

var _ Store = (*RedisStore)(nil)
