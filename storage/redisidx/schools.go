package redisidx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/storage"
	"github.com/redis/go-redis/v9"
)

// SchoolRepository implements storage.SchoolRepository over Redis sets and
// hashes, one index namespace per country. Alongside each school's record it
// persists the set of prefixes the school occupies, so soft-delete removal
// and renames never re-derive memberships from a possibly stale name.
type SchoolRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.SchoolRepository = (*SchoolRepository)(nil)

// NewSchoolRepository creates a new SchoolRepository.
func NewSchoolRepository(backend *Backend) (storage.SchoolRepository, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &SchoolRepository{
		backend: backend,
		logger:  backend.logger,
	}, nil
}

// Close releases the repository. The shared backend stays open.
func (r *SchoolRepository) Close() error {
	return nil
}

// IDsByPrefix returns the members of a country-scoped prefix set, sorted by
// id ascending for deterministic downstream ordering.
func (r *SchoolRepository) IDsByPrefix(ctx context.Context, countryID core.ID, prefix string) ([]core.ID, error) {
	if prefix == "" {
		return nil, storage.ErrEmptyPrefix
	}

	gen, err := r.backend.currentGeneration(ctx, schoolGenKey(countryID))
	if err != nil {
		return nil, err
	}

	key := schoolPrefixKey(gen, countryID, prefix)
	members, err := r.backend.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]core.ID, 0, len(members))
	for _, member := range members {
		id, err := parseIDField(member)
		if err != nil {
			r.logger.Warn("skipping unparsable prefix member", "key", key, "member", member)
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// GetSchools resolves ids against a country's record cache. Stale ids are
// skipped silently; malformed records are skipped and logged.
func (r *SchoolRepository) GetSchools(ctx context.Context, countryID core.ID, ids ...core.ID) ([]*core.School, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	gen, err := r.backend.currentGeneration(ctx, schoolGenKey(countryID))
	if err != nil {
		return nil, err
	}

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = idField(id)
	}

	values, err := r.backend.client.HMGet(ctx, schoolRecordKey(gen, countryID), fields...).Result()
	if err != nil {
		return nil, err
	}

	schools := make([]*core.School, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		school, err := storage.UnmarshalSchool([]byte(raw))
		if err != nil {
			r.logger.Warn("dropping malformed school record", "id", ids[i], "err", err)
			continue
		}
		schools = append(schools, school)
	}
	return schools, nil
}

// CityNames resolves city ids to display names in one batched lookup.
func (r *SchoolRepository) CityNames(ctx context.Context, ids ...core.ID) (map[core.ID]string, error) {
	return r.names(ctx, cityNameKey(), ids)
}

// StateNames resolves state ids to display names in one batched lookup.
func (r *SchoolRepository) StateNames(ctx context.Context, ids ...core.ID) (map[core.ID]string, error) {
	return r.names(ctx, stateNameKey(), ids)
}

func (r *SchoolRepository) names(ctx context.Context, key string, ids []core.ID) (map[core.ID]string, error) {
	if len(ids) == 0 {
		return map[core.ID]string{}, nil
	}

	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = idField(id)
	}

	values, err := r.backend.client.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}

	names := make(map[core.ID]string, len(ids))
	for i, value := range values {
		if name, ok := value.(string); ok {
			names[ids[i]] = name
		}
	}
	return names, nil
}

// PutCityNames stores city display names.
func (r *SchoolRepository) PutCityNames(ctx context.Context, names map[core.ID]string) error {
	return r.putNames(ctx, cityNameKey(), names)
}

// PutStateNames stores state display names.
func (r *SchoolRepository) PutStateNames(ctx context.Context, names map[core.ID]string) error {
	return r.putNames(ctx, stateNameKey(), names)
}

func (r *SchoolRepository) putNames(ctx context.Context, key string, names map[core.ID]string) error {
	if len(names) == 0 {
		return nil
	}
	writer := newBatchWriter(r.backend.client, defaultBatchSize)
	for id, name := range names {
		field := idField(id)
		if err := writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, key, field, name)
		}); err != nil {
			return err
		}
	}
	return writer.flush(ctx)
}

// seenPrefixes fetches the persisted prefix memberships for a batch of
// school ids in one pipelined round trip.
func (r *SchoolRepository) seenPrefixes(ctx context.Context, gen uint64, countryID core.ID, ids []core.ID) ([][]string, error) {
	pipe := r.backend.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.SMembers(ctx, schoolSeenKey(gen, countryID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := make([][]string, len(ids))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

// UpsertSchools writes schools into the current generation in place. Stale
// prefix memberships left over from a rename are removed before the new ones
// are written. Used by the incremental patch path; full rebuilds go through
// NewRebuild instead.
func (r *SchoolRepository) UpsertSchools(ctx context.Context, schools ...*core.School) error {
	byCountry := make(map[core.ID][]*core.School)
	for _, school := range schools {
		byCountry[school.CountryID] = append(byCountry[school.CountryID], school)
	}

	for countryID, group := range byCountry {
		if err := r.upsertCountry(ctx, countryID, group); err != nil {
			return fmt.Errorf("upserting schools for country %d: %w", countryID, err)
		}
	}
	return nil
}

func (r *SchoolRepository) upsertCountry(ctx context.Context, countryID core.ID, schools []*core.School) error {
	gen, err := r.backend.currentGeneration(ctx, schoolGenKey(countryID))
	if err != nil {
		return err
	}

	ids := make([]core.ID, len(schools))
	for i, school := range schools {
		ids[i] = school.ID
	}
	previous, err := r.seenPrefixes(ctx, gen, countryID, ids)
	if err != nil {
		return err
	}

	writer := newBatchWriter(r.backend.client, defaultBatchSize)
	registry := schoolRegistryKey(gen, countryID)
	recordKey := schoolRecordKey(gen, countryID)

	for i, school := range schools {
		data, err := storage.MarshalSchool(school)
		if err != nil {
			return err
		}

		field := idField(school.ID)
		prefixes := core.Prefixes(school.Name)
		current := make(map[string]bool, len(prefixes))
		for _, p := range prefixes {
			current[p] = true
		}

		// Drop memberships the new name no longer produces.
		for _, stale := range previous[i] {
			if current[stale] {
				continue
			}
			staleKey := schoolPrefixKey(gen, countryID, stale)
			if err := writer.add(ctx, func(pipe redis.Pipeliner) {
				pipe.SRem(ctx, staleKey, field)
			}); err != nil {
				return err
			}
		}

		seenKey := schoolSeenKey(gen, countryID, school.ID)
		if err := writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.Del(ctx, seenKey)
			pipe.SAdd(ctx, registry, seenKey, recordKey)
		}); err != nil {
			return err
		}

		for _, prefix := range prefixes {
			prefixKey := schoolPrefixKey(gen, countryID, prefix)
			if err := writer.add(ctx, func(pipe redis.Pipeliner) {
				pipe.SAdd(ctx, prefixKey, field)
				pipe.SAdd(ctx, seenKey, prefix)
				pipe.SAdd(ctx, registry, prefixKey)
			}); err != nil {
				return err
			}
		}

		if err := writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, recordKey, field, data)
		}); err != nil {
			return err
		}
	}
	return writer.flush(ctx)
}

// RemoveSchools removes soft-deleted schools from every prefix set they
// occupy, using the persisted membership sets for exact removal, then drops
// their cached records.
func (r *SchoolRepository) RemoveSchools(ctx context.Context, countryID core.ID, ids ...core.ID) error {
	if len(ids) == 0 {
		return nil
	}

	gen, err := r.backend.currentGeneration(ctx, schoolGenKey(countryID))
	if err != nil {
		return err
	}

	occupied, err := r.seenPrefixes(ctx, gen, countryID, ids)
	if err != nil {
		return err
	}

	writer := newBatchWriter(r.backend.client, defaultBatchSize)
	recordKey := schoolRecordKey(gen, countryID)

	for i, id := range ids {
		field := idField(id)
		for _, prefix := range occupied[i] {
			prefixKey := schoolPrefixKey(gen, countryID, prefix)
			if err := writer.add(ctx, func(pipe redis.Pipeliner) {
				pipe.SRem(ctx, prefixKey, field)
			}); err != nil {
				return err
			}
		}

		seenKey := schoolSeenKey(gen, countryID, id)
		if err := writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.Del(ctx, seenKey)
			pipe.HDel(ctx, recordKey, field)
		}); err != nil {
			return err
		}
	}
	return writer.flush(ctx)
}

// NewRebuild stages a rebuild of one country's school index against the next
// generation of keys.
func (r *SchoolRepository) NewRebuild(ctx context.Context, countryID core.ID) (storage.SchoolRebuild, error) {
	current, err := r.backend.currentGeneration(ctx, schoolGenKey(countryID))
	if err != nil {
		return nil, err
	}
	return &schoolRebuild{
		repo:      r,
		countryID: countryID,
		current:   current,
		staged:    current + 1,
		writer:    newBatchWriter(r.backend.client, defaultBatchSize),
		tracked:   make(map[string]bool),
	}, nil
}

// schoolRebuild mirrors placeRebuild for a single country's namespace.
type schoolRebuild struct {
	repo      *SchoolRepository
	countryID core.ID
	current   uint64
	staged    uint64
	writer    *batchWriter
	tracked   map[string]bool
	finished  bool
}

func (sr *schoolRebuild) track(ctx context.Context, key string) error {
	if sr.tracked[key] {
		return nil
	}
	sr.tracked[key] = true
	registry := schoolRegistryKey(sr.staged, sr.countryID)
	return sr.writer.add(ctx, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, registry, key)
	})
}

func (sr *schoolRebuild) Add(ctx context.Context, schools ...*core.School) error {
	if sr.finished {
		return storage.ErrRebuildFinished
	}

	recordKey := schoolRecordKey(sr.staged, sr.countryID)
	for _, school := range schools {
		data, err := storage.MarshalSchool(school)
		if err != nil {
			return err
		}

		field := idField(school.ID)
		seenKey := schoolSeenKey(sr.staged, sr.countryID, school.ID)

		for _, key := range []string{recordKey, seenKey} {
			if err := sr.track(ctx, key); err != nil {
				return err
			}
		}
		if err := sr.writer.add(ctx, func(pipe redis.Pipeliner) {
			pipe.HSet(ctx, recordKey, field, data)
		}); err != nil {
			return err
		}

		for _, prefix := range core.Prefixes(school.Name) {
			prefixKey := schoolPrefixKey(sr.staged, sr.countryID, prefix)
			if err := sr.track(ctx, prefixKey); err != nil {
				return err
			}
			if err := sr.writer.add(ctx, func(pipe redis.Pipeliner) {
				pipe.SAdd(ctx, prefixKey, field)
				pipe.SAdd(ctx, seenKey, prefix)
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (sr *schoolRebuild) Commit(ctx context.Context) error {
	if sr.finished {
		return storage.ErrRebuildFinished
	}

	if err := sr.writer.flush(ctx); err != nil {
		return fmt.Errorf("flushing staged school index: %w", err)
	}
	if err := sr.repo.backend.setGeneration(ctx, schoolGenKey(sr.countryID), sr.staged); err != nil {
		return fmt.Errorf("repointing school generation: %w", err)
	}
	sr.finished = true

	if err := sr.repo.backend.deleteTracked(ctx, schoolRegistryKey(sr.current, sr.countryID), defaultBatchSize); err != nil {
		sr.repo.logger.Warn("failed to drop superseded school generation",
			"country", sr.countryID, "generation", sr.current, "err", err)
	}
	return nil
}

func (sr *schoolRebuild) Abort(ctx context.Context) error {
	if sr.finished {
		return storage.ErrRebuildFinished
	}
	sr.finished = true

	sr.writer.discard()
	return sr.repo.backend.deleteTracked(ctx, schoolRegistryKey(sr.staged, sr.countryID), defaultBatchSize)
}
