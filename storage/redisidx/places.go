package redisidx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/storage"
	"github.com/redis/go-redis/v9"
)

// PlaceRepository implements storage.PlaceRepository over Redis sorted sets.
// Prefix entries are weighted by population so hot prefixes can be truncated
// to the heaviest members without resolving every record.
type PlaceRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.PlaceRepository = (*PlaceRepository)(nil)

// NewPlaceRepository creates a new PlaceRepository.
func NewPlaceRepository(backend *Backend) (storage.PlaceRepository, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &PlaceRepository{
		backend: backend,
		logger:  backend.logger,
	}, nil
}

// Close releases the repository. The shared backend stays open.
func (r *PlaceRepository) Close() error {
	return nil
}

// TopByPrefix returns up to limit prefix-set members ordered by weight
// descending. A zero scope reads the global entry.
func (r *PlaceRepository) TopByPrefix(ctx context.Context, scope core.ID, prefix string, limit int) ([]core.ScoredID, error) {
	if prefix == "" {
		return nil, storage.ErrEmptyPrefix
	}

	gen, err := r.backend.currentGeneration(ctx, placesGenKey())
	if err != nil {
		return nil, err
	}

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	key := placePrefixKey(gen, scope, prefix)
	members, err := r.backend.client.ZRevRangeWithScores(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, err
	}

	out := make([]core.ScoredID, 0, len(members))
	for _, member := range members {
		raw, ok := member.Member.(string)
		if !ok {
			continue
		}
		id, err := parseIDField(raw)
		if err != nil {
			r.logger.Warn("skipping unparsable prefix member", "key", key, "member", raw)
			continue
		}
		out = append(out, core.ScoredID{ID: id, Weight: member.Score})
	}
	return out, nil
}

// GetPlaces resolves ids against the record cache. Stale ids resolve to
// nothing and are skipped silently; malformed records are skipped and logged.
func (r *PlaceRepository) GetPlaces(ctx context.Context, ids ...core.ID) ([]*core.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	gen, err := r.backend.currentGeneration(ctx, placesGenKey())
	if err != nil {
		return nil, err
	}

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = idField(id)
	}

	values, err := r.backend.client.HMGet(ctx, placeRecordKey(gen), fields...).Result()
	if err != nil {
		return nil, err
	}

	places := make([]*core.Place, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue // stale id, no record
		}
		place, err := storage.UnmarshalPlace([]byte(raw))
		if err != nil {
			r.logger.Warn("dropping malformed place record", "id", ids[i], "err", err)
			continue
		}
		places = append(places, place)
	}
	return places, nil
}

// NewRebuild stages a rebuild against the next generation of place keys.
func (r *PlaceRepository) NewRebuild(ctx context.Context) (storage.PlaceRebuild, error) {
	current, err := r.backend.currentGeneration(ctx, placesGenKey())
	if err != nil {
		return nil, err
	}
	return &placeRebuild{
		repo:    r,
		current: current,
		staged:  current + 1,
		writer:  newBatchWriter(r.backend.client, defaultBatchSize),
		tracked: make(map[string]bool),
	}, nil
}

// placeRebuild writes into generation staged = current+1 and commits by
// repointing the generation alias. Every key it creates is registered in the
// generation's key registry so the superseded generation can be dropped
// exactly, without scanning the keyspace.
type placeRebuild struct {
	repo     *PlaceRepository
	current  uint64
	staged   uint64
	writer   *batchWriter
	tracked  map[string]bool
	finished bool
}

// track registers a staged key in the generation registry, once per key.
// The registry entry is queued before any operation on the key, so an abort
// after a partial flush still finds everything it has to delete.
func (pr *placeRebuild) track(ctx context.Context, key string) error {
	if pr.tracked[key] {
		return nil
	}
	pr.tracked[key] = true
	registry := placeRegistryKey(pr.staged)
	return pr.writer.add(ctx, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, registry, key)
	})
}

func (pr *placeRebuild) Add(ctx context.Context, places ...*core.Place) error {
	if pr.finished {
		return storage.ErrRebuildFinished
	}

	recordKey := placeRecordKey(pr.staged)
	for _, place := range places {
		data, err := storage.MarshalPlace(place)
		if err != nil {
			return err
		}

		field := idField(place.ID)
		weight := float64(place.Population)

		if err := pr.track(ctx, recordKey); err != nil {
			return err
		}
		if err := pr.writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, recordKey, field, data)
		}); err != nil {
			return err
		}

		for _, prefix := range core.Prefixes(place.Name) {
			keys := []string{placePrefixKey(pr.staged, 0, prefix)}
			if len(prefix) <= core.CountryPrefixLen {
				keys = append(keys, placePrefixKey(pr.staged, place.CountryID, prefix))
			}
			for _, key := range keys {
				if err := pr.track(ctx, key); err != nil {
					return err
				}
				if err := pr.writer.add(ctx, func(pipe redis.Pipeliner) {
					pipe.ZAdd(ctx, key, redis.Z{Score: weight, Member: field})
				}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (pr *placeRebuild) Commit(ctx context.Context) error {
	if pr.finished {
		return storage.ErrRebuildFinished
	}

	if err := pr.writer.flush(ctx); err != nil {
		return fmt.Errorf("flushing staged place index: %w", err)
	}
	if err := pr.repo.backend.setGeneration(ctx, placesGenKey(), pr.staged); err != nil {
		return fmt.Errorf("repointing places generation: %w", err)
	}
	pr.finished = true

	// The new generation is live. Residual keys from the old one are
	// garbage, not incorrectness, so a cleanup failure is logged rather
	// than failing the commit.
	if err := pr.repo.backend.deleteTracked(ctx, placeRegistryKey(pr.current), defaultBatchSize); err != nil {
		pr.repo.logger.Warn("failed to drop superseded places generation", "generation", pr.current, "err", err)
	}
	return nil
}

func (pr *placeRebuild) Abort(ctx context.Context) error {
	if pr.finished {
		return storage.ErrRebuildFinished
	}
	pr.finished = true

	pr.writer.discard()
	return pr.repo.backend.deleteTracked(ctx, placeRegistryKey(pr.staged), defaultBatchSize)
}
