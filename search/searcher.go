package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/storage"
)

const (
	// DefaultPlaceLimit is the result count for place searches when the
	// query does not specify one.
	DefaultPlaceLimit = 10

	// defaultCandidateLimit caps how many members of a weighted prefix
	// set are pulled for ranking. Very hot prefixes ("s", "sa") can hold
	// far more members than any result page needs; the cap keeps fan-in
	// bounded while the weight ordering keeps the heaviest candidates in.
	defaultCandidateLimit = 500
)

// PlaceQuery describes one place search.
type PlaceQuery struct {
	Query             string
	Lat, Lon          float64
	HasLocation       bool
	CountryID         core.ID // optional scope; zero searches globally
	MaxDistanceMeters float64 // hard filter; zero means unbounded
	Limit             int     // defaults to DefaultPlaceLimit
}

// PlaceResult is one ranked place. Distance is set only when the query
// carried a requester location.
type PlaceResult struct {
	Place    *core.Place
	Distance *float64
	Score    float64
}

// SchoolQuery describes one school search. Schools are always scoped to a
// country.
type SchoolQuery struct {
	CountryID   core.ID
	Query       string
	Lat, Lon    float64
	HasLocation bool
}

// SchoolResult is one ranked school, annotated with display names resolved
// from the index's city/state dictionaries.
type SchoolResult struct {
	School   *core.School
	City     string
	State    string
	Distance *float64
	Score    float64
}

// Searcher answers autocomplete queries against the prefix index.
type Searcher struct {
	places         storage.PlaceIndex
	schools        storage.SchoolIndex
	candidateLimit int
	logger         *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithCandidateLimit caps prefix-set fan-in per query.
// Default is 500; zero or negative lifts the cap.
func WithCandidateLimit(limit int) Option {
	return func(s *Searcher) error {
		s.candidateLimit = limit
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(places storage.PlaceIndex, schools storage.SchoolIndex, opts ...Option) (*Searcher, error) {
	if places == nil {
		return nil, ErrPlaceIndexRequired
	}
	if schools == nil {
		return nil, ErrSchoolIndexRequired
	}

	s := &Searcher{
		places:         places,
		schools:        schools,
		candidateLimit: defaultCandidateLimit,
		logger:         slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// SearchPlaces returns places matching the query prefix, ranked by the
// blended population/proximity score.
func (s *Searcher) SearchPlaces(ctx context.Context, query PlaceQuery) ([]*PlaceResult, error) {
	return s.SearchPlacesWithMonitor(ctx, query, nil)
}

// SearchPlacesWithMonitor runs a place search with monitoring.
// The monitor receives callbacks at each stage of the query path.
func (s *Searcher) SearchPlacesWithMonitor(ctx context.Context, query PlaceQuery, monitor SearchMonitor) ([]*PlaceResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	normalized := core.Normalize(query.Query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	monitor.Start(normalized)

	// The index key is the truncated query; longer queries are re-checked
	// with a substring filter once records are materialized.
	key := core.PrefixKey(normalized)
	needSubstringFilter := len(normalized) > len(key)

	// Country-scoped prefix entries exist only for short prefixes; longer
	// keys search the global entry and post-filter on country.
	scope := core.ID(0)
	filterCountry := query.CountryID != 0
	if query.CountryID != 0 && len(key) <= core.CountryPrefixLen {
		scope = query.CountryID
		filterCountry = false
	}

	candidates, err := s.places.TopByPrefix(ctx, scope, key, s.candidateLimit)
	if err != nil {
		s.logger.Error("error fetching place prefix set", "prefix", key, "err", err)
		return nil, err
	}

	ids := make([]core.ID, len(candidates))
	for i, candidate := range candidates {
		ids[i] = candidate.ID
	}
	monitor.AfterPrefixFetch(key, ids)

	places, err := s.places.GetPlaces(ctx, ids...)
	if err != nil {
		s.logger.Error("error resolving place records", "count", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterResolve(len(places))

	results := make([]*PlaceResult, 0, len(places))
	for _, place := range places {
		if filterCountry && place.CountryID != query.CountryID {
			monitor.CandidateDropped(place.ID, DropCountryMiss)
			continue
		}
		if needSubstringFilter && !strings.Contains(core.Normalize(place.Name), normalized) {
			monitor.CandidateDropped(place.ID, DropSubstringMiss)
			continue
		}

		result := &PlaceResult{Place: place}
		if query.HasLocation {
			distance := haversineMeters(query.Lat, query.Lon, place.Lat, place.Lon)
			if query.MaxDistanceMeters > 0 && distance > query.MaxDistanceMeters {
				monitor.CandidateDropped(place.ID, DropBeyondDistance)
				continue
			}
			result.Distance = &distance
			result.Score = placeScore(place.Population, distance, true)
		} else {
			result.Score = placeScore(place.Population, 0, false)
		}
		results = append(results, result)
	}

	slices.SortFunc(results, func(a, b *PlaceResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		// Stable tie-break by id ascending for deterministic ordering.
		switch {
		case a.Place.ID < b.Place.ID:
			return -1
		case a.Place.ID > b.Place.ID:
			return 1
		}
		return 0
	})

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultPlaceLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	monitor.Finish(len(results))

	return results, nil
}

// SearchSchools returns schools matching the query prefix within a country,
// ranked by the blended distance/size/type score and grouped by type.
func (s *Searcher) SearchSchools(ctx context.Context, query SchoolQuery) (*SchoolGroups, error) {
	return s.SearchSchoolsWithMonitor(ctx, query, nil)
}

// SearchSchoolsWithMonitor runs a school search with monitoring.
func (s *Searcher) SearchSchoolsWithMonitor(ctx context.Context, query SchoolQuery, monitor SearchMonitor) (*SchoolGroups, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if query.CountryID == 0 {
		return nil, ErrCountryRequired
	}

	normalized := core.Normalize(query.Query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	monitor.Start(normalized)

	key := core.PrefixKey(normalized)
	needSubstringFilter := len(normalized) > len(key)

	// An unknown or unindexed country simply has empty prefix sets; the
	// result is the empty grouping, not an error.
	ids, err := s.schools.IDsByPrefix(ctx, query.CountryID, key)
	if err != nil {
		s.logger.Error("error fetching school prefix set", "prefix", key, "err", err)
		return nil, err
	}
	monitor.AfterPrefixFetch(key, ids)

	schools, err := s.schools.GetSchools(ctx, query.CountryID, ids...)
	if err != nil {
		s.logger.Error("error resolving school records", "count", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterResolve(len(schools))

	results := make([]*SchoolResult, 0, len(schools))
	for _, school := range schools {
		if needSubstringFilter && !strings.Contains(core.Normalize(school.Name), normalized) {
			monitor.CandidateDropped(school.ID, DropSubstringMiss)
			continue
		}

		result := &SchoolResult{School: school}
		if query.HasLocation && school.HasLocation {
			distance := haversineMeters(query.Lat, query.Lon, school.Lat, school.Lon)
			result.Distance = &distance
			result.Score = schoolScore(school, distance, true)
		} else if query.HasLocation {
			// Requester located but the school is not: the distance
			// signal defaults to its full value.
			result.Score = schoolScore(school, -1, true)
		} else {
			result.Score = schoolScore(school, 0, false)
		}
		results = append(results, result)
	}

	slices.SortFunc(results, func(a, b *SchoolResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		switch {
		case a.School.ID < b.School.ID:
			return -1
		case a.School.ID > b.School.ID:
			return 1
		}
		return 0
	})

	groups := groupSchools(results, GroupLimit)
	if err := s.annotate(ctx, groups); err != nil {
		s.logger.Error("error annotating school results", "err", err)
		return nil, err
	}
	monitor.Finish(groups.Len())

	return groups, nil
}
