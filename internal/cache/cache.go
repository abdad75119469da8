package cache

import (
	"context"
	"errors"
	"log"
	"time"

	"relief-backend/internal/config"

	"github.com/redis/go-redis/v9"
)

// Store wraps the process-wide Redis client. The cache is best-effort:
// callers log failures and fall through to the database, they never
// surface cache errors to the client.
type Store struct {
	client *redis.Client
}

func Connect(cfg *config.Config) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Could not connect to redis: %v", err)
	}

	log.Println("Redis connection established.")
	return &Store{client: client}
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the cached payload for key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// DeletePattern removes every key matching pattern using SCAN, so list
// caches can be invalidated without tracking individual keys.
func (s *Store) DeletePattern(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}
