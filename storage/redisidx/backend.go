package redisidx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Backend wraps a Redis client and provides low-level operations shared by
// the repositories: generation pointer resolution and pipelined batch writes.
type Backend struct {
	client *redis.Client
	logger *slog.Logger
}

// Open connects to Redis and verifies the connection with a ping.
func Open(addr, password string, db int) (*Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Backend{
		client: client,
		logger: slog.Default(),
	}, nil
}

// AttachClient wraps an existing client. Used by tests and callers that
// manage the client lifecycle themselves.
func AttachClient(client *redis.Client) *Backend {
	return &Backend{
		client: client,
		logger: slog.Default(),
	}
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}

// currentGeneration resolves a generation pointer key.
// An absent pointer means generation zero (nothing indexed yet).
func (b *Backend) currentGeneration(ctx context.Context, pointerKey string) (uint64, error) {
	val, err := b.client.Get(ctx, pointerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	gen, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt generation pointer %s: %w", pointerKey, err)
	}
	return gen, nil
}

// setGeneration repoints a generation alias. This is the atomic step of a
// rebuild commit: readers resolving the pointer afterwards see only the new
// generation's keys.
func (b *Backend) setGeneration(ctx context.Context, pointerKey string, gen uint64) error {
	return b.client.Set(ctx, pointerKey, strconv.FormatUint(gen, 10), 0).Err()
}

// deleteTracked removes every key registered in a generation's key registry,
// then the registry itself. Deletes are chunked through pipelines.
func (b *Backend) deleteTracked(ctx context.Context, registryKey string, chunkSize int) error {
	keys, err := b.client.SMembers(ctx, registryKey).Result()
	if err != nil {
		return err
	}
	if chunkSize <= 0 {
		chunkSize = defaultBatchSize
	}
	for start := 0; start < len(keys); start += chunkSize {
		end := start + chunkSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := b.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return err
		}
	}
	return b.client.Del(ctx, registryKey).Err()
}
