package redisidx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermarkRoundTrip(t *testing.T) {
	backend := NewTestBackend(t)
	ctx := context.Background()

	repo, err := NewWatermarkRepository(backend)
	require.NoError(t, err)

	// Absent watermark is the zero time.
	got, err := repo.Load(ctx, "schools")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	mark := time.Unix(1700000000, 0).UTC()
	require.NoError(t, repo.Save(ctx, "schools", mark))

	got, err = repo.Load(ctx, "schools")
	require.NoError(t, err)
	assert.Equal(t, mark, got)

	// Watermarks are per logical index.
	got, err = repo.Load(ctx, "places")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
