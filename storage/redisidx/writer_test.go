package redisidx

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchWriterFlushesOnBoundary(t *testing.T) {
	backend := NewTestBackend(t)
	ctx := context.Background()

	writer := newBatchWriter(backend.client, 2)
	for i := 0; i < 3; i++ {
		require.NoError(t, writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.SAdd(ctx, "boundary", i)
		}))
	}

	// Two operations flushed when the third was queued; the third is
	// still buffered.
	count, err := backend.client.SCard(ctx, "boundary").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, writer.flush(ctx))
	count, err = backend.client.SCard(ctx, "boundary").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestBatchWriterFlushEmpty(t *testing.T) {
	backend := NewTestBackend(t)
	writer := newBatchWriter(backend.client, 0)
	assert.Equal(t, defaultBatchSize, writer.batchSize)
	require.NoError(t, writer.flush(context.Background()))
}

func TestBatchWriterDiscard(t *testing.T) {
	backend := NewTestBackend(t)
	ctx := context.Background()

	writer := newBatchWriter(backend.client, 10)
	require.NoError(t, writer.add(ctx, func(pipe redis.Pipeliner) {
		pipe.Set(ctx, "discarded", "1", 0)
	}))
	writer.discard()
	require.NoError(t, writer.flush(ctx))

	exists, err := backend.client.Exists(ctx, "discarded").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
