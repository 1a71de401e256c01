package redisidx

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/poiesic/typeahead/storage"
	"github.com/redis/go-redis/v9"
)

// WatermarkRepository implements storage.WatermarkRepository, persisting the
// "last synced" timestamp per logical index as a plain key.
type WatermarkRepository struct {
	backend *Backend
}

var _ storage.WatermarkRepository = (*WatermarkRepository)(nil)

// NewWatermarkRepository creates a new WatermarkRepository.
func NewWatermarkRepository(backend *Backend) (*WatermarkRepository, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &WatermarkRepository{backend: backend}, nil
}

// Save persists the watermark for a named index.
func (r *WatermarkRepository) Save(ctx context.Context, name string, t time.Time) error {
	return r.backend.client.Set(ctx, watermarkKey(name), strconv.FormatInt(t.Unix(), 10), 0).Err()
}

// Load retrieves the watermark for a named index.
// Returns the zero time when no watermark has been saved.
func (r *WatermarkRepository) Load(ctx context.Context, name string) (time.Time, error) {
	val, err := r.backend.client.Get(ctx, watermarkKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
