package redisidx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// defaultBatchSize bounds how many buffered operations a single pipelined
// round trip carries. Chunk boundaries are the only safe cancellation points
// during a rebuild.
const defaultBatchSize = 2000

// batchWriter is a bounded write buffer over a Redis pipeline. Operations
// are queued and flushed as one round trip when the buffer fills or on an
// explicit Flush. A flush error poisons the writer; the whole run must be
// retried (there is no partial-success contract).
type batchWriter struct {
	client    *redis.Client
	batchSize int
	pending   []func(redis.Pipeliner)
	failed    error
}

func newBatchWriter(client *redis.Client, batchSize int) *batchWriter {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &batchWriter{
		client:    client,
		batchSize: batchSize,
	}
}

// add queues one operation, flushing first if the buffer is full.
func (w *batchWriter) add(ctx context.Context, op func(redis.Pipeliner)) error {
	if w.failed != nil {
		return w.failed
	}
	if len(w.pending) >= w.batchSize {
		if err := w.flush(ctx); err != nil {
			return err
		}
	}
	w.pending = append(w.pending, op)
	return nil
}

// flush executes all buffered operations as a single pipelined round trip.
func (w *batchWriter) flush(ctx context.Context) error {
	if w.failed != nil {
		return w.failed
	}
	if len(w.pending) == 0 {
		return nil
	}
	ops := w.pending
	w.pending = nil

	_, err := w.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range ops {
			op(pipe)
		}
		return nil
	})
	if err != nil {
		w.failed = err
		return err
	}
	return nil
}

// discard drops buffered operations without executing them.
func (w *batchWriter) discard() {
	w.pending = nil
}
