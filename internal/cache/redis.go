package cache

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the Redis client used as a read cache for canvas
// documents. The cache is best-effort: every caller must work with a nil
// client and a cache miss the same way.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

func documentKey(projectID int64) string {
	return "project:" + strconv.FormatInt(projectID, 10) + ":canvas"
}

// SetDocument caches the serialized canvas document for a project.
func (r *RedisClient) SetDocument(ctx context.Context, projectID int64, data []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, documentKey(projectID), data, ttl).Err(); err != nil {
		log.Printf("[Redis] Failed to cache document for project %d: %v", projectID, err)
		return err
	}
	return nil
}

// GetDocument returns the cached document, nil on a miss.
func (r *RedisClient) GetDocument(ctx context.Context, projectID int64) ([]byte, error) {
	data, err := r.client.Get(ctx, documentKey(projectID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// InvalidateDocument drops the cached document, called on save and delete.
func (r *RedisClient) InvalidateDocument(ctx context.Context, projectID int64) error {
	return r.client.Del(ctx, documentKey(projectID)).Err()
}

// Health checks if Redis is reachable.
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
