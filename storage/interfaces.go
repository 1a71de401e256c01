package storage

import (
	"context"
	"time"

	"github.com/poiesic/typeahead/core"
)

// PlaceIndex provides read access to the place prefix index.
// Implementations must be thread-safe and support concurrent access.
type PlaceIndex interface {
	// TopByPrefix returns up to limit members of the prefix set for the
	// given scope, ordered by indexed weight descending. Scope zero is the
	// global index; a non-zero scope selects a country-scoped entry, which
	// only exists for prefixes up to core.CountryPrefixLen bytes.
	TopByPrefix(ctx context.Context, scope core.ID, prefix string, limit int) ([]core.ScoredID, error)

	// GetPlaces resolves ids to place records. Missing ids are skipped
	// silently (stale prefix members); malformed records are skipped and
	// logged. Result order follows the input ids.
	GetPlaces(ctx context.Context, ids ...core.ID) ([]*core.Place, error)

	// Close releases the repository.
	Close() error
}

// PlaceIndexWriter provides the write side of the place index.
// The indexer is the sole user; see the mutation discipline in the package doc.
type PlaceIndexWriter interface {
	// NewRebuild stages a full rebuild against a fresh generation of index
	// keys. Readers keep seeing the current generation until Commit.
	NewRebuild(ctx context.Context) (PlaceRebuild, error)
}

// PlaceRebuild is a staged full rebuild of the place index.
// Add buffers writes; Commit flushes, atomically repoints the generation
// alias and drops the previous generation's keys. Abort drops the staged keys.
// A handle is single-use and not safe for concurrent use.
type PlaceRebuild interface {
	Add(ctx context.Context, places ...*core.Place) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// SchoolIndex provides read access to the per-country school prefix index.
// Implementations must be thread-safe and support concurrent access.
type SchoolIndex interface {
	// IDsByPrefix returns the members of a country-scoped prefix set.
	IDsByPrefix(ctx context.Context, countryID core.ID, prefix string) ([]core.ID, error)

	// GetSchools resolves ids to school records within a country. Missing
	// ids are skipped silently; malformed records are skipped and logged.
	GetSchools(ctx context.Context, countryID core.ID, ids ...core.ID) ([]*core.School, error)

	// CityNames resolves city ids to display names in one batched lookup.
	// Unknown ids are absent from the result map.
	CityNames(ctx context.Context, ids ...core.ID) (map[core.ID]string, error)

	// StateNames resolves state ids to display names in one batched lookup.
	StateNames(ctx context.Context, ids ...core.ID) (map[core.ID]string, error)

	// Close releases the repository.
	Close() error
}

// SchoolIndexWriter provides the write side of the school index.
type SchoolIndexWriter interface {
	// NewRebuild stages a full rebuild of one country's school index.
	// Rebuilds of distinct countries are independent and may run concurrently.
	NewRebuild(ctx context.Context, countryID core.ID) (SchoolRebuild, error)

	// UpsertSchools writes schools into the current generation in place.
	// Prefix memberships from a previous name are removed before the new
	// ones are written, so renames leave no stale entries.
	UpsertSchools(ctx context.Context, schools ...*core.School) error

	// RemoveSchools removes soft-deleted schools from every prefix set they
	// occupy, and drops their cached records. Removal uses the persisted
	// membership sets, not a re-derivation from the current name.
	RemoveSchools(ctx context.Context, countryID core.ID, ids ...core.ID) error

	// PutCityNames stores city display names for query-time annotation.
	PutCityNames(ctx context.Context, names map[core.ID]string) error

	// PutStateNames stores state display names for query-time annotation.
	PutStateNames(ctx context.Context, names map[core.ID]string) error
}

// SchoolRebuild is a staged full rebuild of one country's school index,
// with the same lifecycle as PlaceRebuild.
type SchoolRebuild interface {
	Add(ctx context.Context, schools ...*core.School) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

// PlaceRepository combines the read and write sides of the place index.
type PlaceRepository interface {
	PlaceIndex
	PlaceIndexWriter
}

// SchoolRepository combines the read and write sides of the school index.
type SchoolRepository interface {
	SchoolIndex
	SchoolIndexWriter
}

// WatermarkRepository tracks the "last synced" timestamp per logical index,
// used to drive incremental patches.
type WatermarkRepository interface {
	// Save persists the watermark for a named index.
	Save(ctx context.Context, name string, t time.Time) error

	// Load retrieves the watermark for a named index.
	// Returns the zero time when no watermark exists.
	Load(ctx context.Context, name string) (time.Time, error)
}
