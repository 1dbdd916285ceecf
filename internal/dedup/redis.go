package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/oncallops/mailtriage/internal/config"
	"github.com/redis/go-redis/v9"
)

// redisSetKey is the set holding all processed identifiers.
const redisSetKey = "mailtriage:processed_ids"

// RedisStore keeps processed identifiers in a Redis set, for deployments
// that already run Redis and want shared, durable dedup state.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to the Redis instance named by cfg.
func NewRedis(cfg config.DedupConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis dedup store at %s: %w", cfg.RedisAddr, err)
	}
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, redisSetKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("dedup/redis: looking up %q: %w", id, err)
	}
	return ok, nil
}

func (s *RedisStore) Record(ctx context.Context, id string) error {
	if err := s.client.SAdd(ctx, redisSetKey, id).Err(); err != nil {
		return fmt.Errorf("dedup/redis: recording %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
