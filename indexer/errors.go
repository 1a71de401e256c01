package indexer

import "errors"

var (
	// ErrSourceRequired is returned when an entity source is not provided.
	ErrSourceRequired = errors.New("entity source required")

	// ErrPlaceIndexRequired is returned when a place repository is not provided.
	ErrPlaceIndexRequired = errors.New("place repository required")

	// ErrSchoolIndexRequired is returned when a school repository is not provided.
	ErrSchoolIndexRequired = errors.New("school repository required")

	// ErrWatermarksRequired is returned when a watermark repository is not provided.
	ErrWatermarksRequired = errors.New("watermark repository required")

	// ErrLookupsRequired is returned when parent lookup dictionaries are not provided.
	ErrLookupsRequired = errors.New("parent lookups required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
