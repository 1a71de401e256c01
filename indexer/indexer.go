// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/storage"
)

// WatermarkSchools names the watermark driving incremental school patches.
const WatermarkSchools = "schools"

// EntitySource reads entity batches from the canonical store.
// The production implementation is catalog.Store.
type EntitySource interface {
	FetchPlaces(ctx context.Context) ([]*core.Place, error)
	FetchSchools(ctx context.Context, countryID core.ID) ([]*core.School, error)
	FetchSchoolsUpdatedSince(ctx context.Context, since time.Time) ([]*core.School, error)
	FetchCountryIDs(ctx context.Context) ([]core.ID, error)
	FetchCityNames(ctx context.Context) (map[core.ID]string, error)
	FetchStateNames(ctx context.Context) (map[core.ID]string, error)
}

// Lookups holds the parent-resolution dictionaries for one indexing run.
// They are threaded explicitly through Indexer calls rather than living in
// package state, so repeated or concurrent runs never share mutable globals.
type Lookups struct {
	Countries map[core.ID]bool
	Cities    map[core.ID]string
	States    map[core.ID]string
}

// LoadLookups builds fresh lookup dictionaries from the canonical store.
func LoadLookups(ctx context.Context, source EntitySource) (*Lookups, error) {
	countryIDs, err := source.FetchCountryIDs(ctx)
	if err != nil {
		return nil, err
	}
	cities, err := source.FetchCityNames(ctx)
	if err != nil {
		return nil, err
	}
	states, err := source.FetchStateNames(ctx)
	if err != nil {
		return nil, err
	}

	countries := make(map[core.ID]bool, len(countryIDs))
	for _, id := range countryIDs {
		countries[id] = true
	}
	return &Lookups{
		Countries: countries,
		Cities:    cities,
		States:    states,
	}, nil
}

// Indexer populates the prefix index from the canonical store.
// It is the sole writer of index structures.
type Indexer struct {
	source     EntitySource
	places     storage.PlaceRepository
	schools    storage.SchoolRepository
	watermarks storage.WatermarkRepository
	pool       *ants.Pool
	logger     *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// WithPoolSize sets the worker pool size for per-country school rebuilds.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.pool = pool
		return nil
	}
}

// NewIndexer creates a new indexer.
func NewIndexer(
	source EntitySource,
	places storage.PlaceRepository,
	schools storage.SchoolRepository,
	watermarks storage.WatermarkRepository,
	opts ...Option,
) (*Indexer, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if places == nil {
		return nil, ErrPlaceIndexRequired
	}
	if schools == nil {
		return nil, ErrSchoolIndexRequired
	}
	if watermarks == nil {
		return nil, ErrWatermarksRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	ix := &Indexer{
		source:     source,
		places:     places,
		schools:    schools,
		watermarks: watermarks,
		pool:       pool,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(ix); optErr != nil {
			ix.Release()
			return nil, optErr
		}
	}

	return ix, nil
}

// Release releases the worker pool.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

// RebuildPlaces rebuilds the whole place index from the canonical store.
// The new generation becomes visible atomically on completion.
func (ix *Indexer) RebuildPlaces(ctx context.Context, lookups *Lookups) error {
	if lookups == nil {
		return ErrLookupsRequired
	}

	entities, err := ix.source.FetchPlaces(ctx)
	if err != nil {
		return fmt.Errorf("reading places from canonical store: %w", err)
	}

	rebuild, err := ix.places.NewRebuild(ctx)
	if err != nil {
		return err
	}

	indexed, skipped := 0, 0
	for _, place := range entities {
		if err := core.ValidatePlace(place); err != nil {
			ix.logger.Warn("skipping invalid place", "id", place.ID, "err", err)
			skipped++
			continue
		}
		if !lookups.Countries[place.CountryID] {
			ix.logger.Warn("skipping place with unknown country",
				"id", place.ID, "country", place.CountryID)
			skipped++
			continue
		}
		if err := rebuild.Add(ctx, place); err != nil {
			ix.abort(ctx, rebuild.Abort)
			return fmt.Errorf("staging place index: %w", err)
		}
		indexed++
	}

	if err := rebuild.Commit(ctx); err != nil {
		ix.abort(ctx, rebuild.Abort)
		return fmt.Errorf("committing place index: %w", err)
	}

	ix.logger.Info("place index rebuilt", "indexed", indexed, "skipped", skipped)
	return nil
}

// RebuildSchools rebuilds the school index for the given countries, or for
// every known country when none are given. Countries rebuild concurrently on
// the worker pool; each country's swap is independent. The first error is
// returned after all jobs drain.
func (ix *Indexer) RebuildSchools(ctx context.Context, lookups *Lookups, countryIDs ...core.ID) error {
	if lookups == nil {
		return ErrLookupsRequired
	}

	if len(countryIDs) == 0 {
		for id := range lookups.Countries {
			countryIDs = append(countryIDs, id)
		}
	}

	// Refresh the display-name dictionaries the grouper annotates from.
	if err := ix.schools.PutCityNames(ctx, lookups.Cities); err != nil {
		return fmt.Errorf("writing city names: %w", err)
	}
	if err := ix.schools.PutStateNames(ctx, lookups.States); err != nil {
		return fmt.Errorf("writing state names: %w", err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	for _, countryID := range countryIDs {
		if !lookups.Countries[countryID] {
			ix.logger.Warn("skipping rebuild for unknown country", "country", countryID)
			continue
		}

		wg.Add(1)
		if err := ix.pool.Submit(func() {
			defer wg.Done()
			if err := ix.rebuildCountry(ctx, lookups, countryID); err != nil {
				fail(fmt.Errorf("rebuilding schools for country %d: %w", countryID, err))
			}
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	return firstErr
}

func (ix *Indexer) rebuildCountry(ctx context.Context, lookups *Lookups, countryID core.ID) error {
	entities, err := ix.source.FetchSchools(ctx, countryID)
	if err != nil {
		return fmt.Errorf("reading schools from canonical store: %w", err)
	}

	rebuild, err := ix.schools.NewRebuild(ctx, countryID)
	if err != nil {
		return err
	}

	indexed, skipped := 0, 0
	for _, school := range entities {
		if school.Deleted() {
			continue
		}
		if !ix.resolvable(school, lookups) {
			skipped++
			continue
		}
		if err := rebuild.Add(ctx, school); err != nil {
			ix.abort(ctx, rebuild.Abort)
			return fmt.Errorf("staging school index: %w", err)
		}
		indexed++
	}

	if err := rebuild.Commit(ctx); err != nil {
		ix.abort(ctx, rebuild.Abort)
		return fmt.Errorf("committing school index: %w", err)
	}

	ix.logger.Info("school index rebuilt",
		"country", countryID, "indexed", indexed, "skipped", skipped)
	return nil
}

// PatchSchools applies every school change since the last watermark:
// soft-deleted schools leave the index, live ones are re-indexed. The
// watermark advances only after the whole run succeeds.
func (ix *Indexer) PatchSchools(ctx context.Context, lookups *Lookups) error {
	if lookups == nil {
		return ErrLookupsRequired
	}

	since, err := ix.watermarks.Load(ctx, WatermarkSchools)
	if err != nil {
		return fmt.Errorf("loading schools watermark: %w", err)
	}

	changed, err := ix.source.FetchSchoolsUpdatedSince(ctx, since)
	if err != nil {
		return fmt.Errorf("reading changed schools: %w", err)
	}
	if len(changed) == 0 {
		ix.logger.Debug("no school changes since watermark", "watermark", since)
		return nil
	}

	var (
		upserts []*core.School
		removed = make(map[core.ID][]core.ID)
		mark    = since
	)
	for _, school := range changed {
		if school.UpdatedAt.After(mark) {
			mark = school.UpdatedAt
		}
		if school.Deleted() {
			removed[school.CountryID] = append(removed[school.CountryID], school.ID)
			continue
		}
		if !ix.resolvable(school, lookups) {
			continue
		}
		upserts = append(upserts, school)
	}

	for countryID, ids := range removed {
		if err := ix.schools.RemoveSchools(ctx, countryID, ids...); err != nil {
			return fmt.Errorf("removing deleted schools: %w", err)
		}
	}
	if len(upserts) > 0 {
		if err := ix.schools.UpsertSchools(ctx, upserts...); err != nil {
			return fmt.Errorf("upserting changed schools: %w", err)
		}
	}

	if err := ix.watermarks.Save(ctx, WatermarkSchools, mark); err != nil {
		return fmt.Errorf("saving schools watermark: %w", err)
	}

	ix.logger.Info("school index patched",
		"upserted", len(upserts), "removedCountries", len(removed), "watermark", mark)
	return nil
}

// resolvable checks a school's parent references against the run's lookup
// dictionaries and validates it, logging a data-quality warning when it has
// to be skipped.
func (ix *Indexer) resolvable(school *core.School, lookups *Lookups) bool {
	if err := core.ValidateSchool(school); err != nil {
		ix.logger.Warn("skipping invalid school", "id", school.ID, "err", err)
		return false
	}
	if !lookups.Countries[school.CountryID] {
		ix.logger.Warn("skipping school with unknown country",
			"id", school.ID, "country", school.CountryID)
		return false
	}
	if _, ok := lookups.Cities[school.CityID]; !ok {
		ix.logger.Warn("skipping school with unknown city",
			"id", school.ID, "city", school.CityID)
		return false
	}
	if school.StateID != 0 {
		if _, ok := lookups.States[school.StateID]; !ok {
			ix.logger.Warn("skipping school with unknown state",
				"id", school.ID, "state", school.StateID)
			return false
		}
	}
	return true
}

// abort best-effort rolls back a staged rebuild after a write failure.
func (ix *Indexer) abort(ctx context.Context, abort func(context.Context) error) {
	if err := abort(ctx); err != nil {
		ix.logger.Warn("failed to abort staged rebuild", "err", err)
	}
}
