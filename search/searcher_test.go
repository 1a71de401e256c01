package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/storage"
	"github.com/poiesic/typeahead/storage/redisidx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCountryUS = core.ID(840)
	testCountryCA = core.ID(124)
	testStateCA   = core.ID(6)
)

func newTestSearcher(t *testing.T) (*Searcher, storage.PlaceRepository, storage.SchoolRepository) {
	t.Helper()

	placeRepo, schoolRepo, _ := redisidx.NewTestRepositories(t)
	searcher, err := NewSearcher(placeRepo, schoolRepo)
	require.NoError(t, err)

	return searcher, placeRepo, schoolRepo
}

func seedPlaces(t *testing.T, repo storage.PlaceRepository, places ...*core.Place) {
	t.Helper()

	ctx := context.Background()
	rebuild, err := repo.NewRebuild(ctx)
	require.NoError(t, err)
	require.NoError(t, rebuild.Add(ctx, places...))
	require.NoError(t, rebuild.Commit(ctx))
}

func seedSchools(t *testing.T, repo storage.SchoolRepository, countryID core.ID, schools ...*core.School) {
	t.Helper()

	ctx := context.Background()
	rebuild, err := repo.NewRebuild(ctx, countryID)
	require.NoError(t, err)
	require.NoError(t, rebuild.Add(ctx, schools...))
	require.NoError(t, rebuild.Commit(ctx))
}

func sanJose() *core.Place {
	return &core.Place{
		ID: 1, Name: "San Jose", Population: 1_000_000,
		Lat: 37.3382, Lon: -121.8863,
		CountryID: testCountryUS, StateID: testStateCA,
	}
}

func sanFrancisco() *core.Place {
	return &core.Place{
		ID: 2, Name: "San Francisco", Population: 800_000,
		Lat: 37.7749, Lon: -122.4194,
		CountryID: testCountryUS, StateID: testStateCA,
	}
}

func TestNewSearcherValidation(t *testing.T) {
	placeRepo, schoolRepo, _ := redisidx.NewTestRepositories(t)

	_, err := NewSearcher(nil, schoolRepo)
	assert.ErrorIs(t, err, ErrPlaceIndexRequired)

	_, err = NewSearcher(placeRepo, nil)
	assert.ErrorIs(t, err, ErrSchoolIndexRequired)
}

func TestSearchPlacesEmptyQuery(t *testing.T) {
	searcher, _, _ := newTestSearcher(t)

	_, err := searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearchPlacesPopulationOrdering(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo, sanJose(), sanFrancisco())

	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "san"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Without a requester location the score is population alone:
	// 1,000,000/500,000 = 2.0 beats 800,000/500,000 = 1.6.
	assert.Equal(t, "San Jose", results[0].Place.Name)
	assert.InDelta(t, 2.0, results[0].Score, 1e-9)
	assert.Equal(t, "San Francisco", results[1].Place.Name)
	assert.InDelta(t, 1.6, results[1].Score, 1e-9)
	assert.Nil(t, results[0].Distance)
}

func TestSearchPlacesProximityCanOutrankPopulation(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo, sanJose(), sanFrancisco())

	// Requester standing in San Francisco.
	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{
		Query: "san", Lat: 37.7749, Lon: -122.4194, HasLocation: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "San Francisco", results[0].Place.Name)
	require.NotNil(t, results[0].Distance)
	assert.InDelta(t, 0, *results[0].Distance, 1)
}

func TestSearchPlacesPrefixOnly(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo, sanJose(), sanFrancisco())

	// "fran" is a token prefix of San Francisco, not of San Jose.
	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "fran"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "San Francisco", results[0].Place.Name)

	// No entries exist past a mid-token miss.
	results, err = searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "sanj"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchPlacesDefaultLimit(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)

	places := make([]*core.Place, 15)
	for i := range places {
		places[i] = &core.Place{
			ID:         core.ID(i + 1),
			Name:       fmt.Sprintf("Springfield %c", 'A'+i),
			Population: uint64((i + 1) * 10_000),
			CountryID:  testCountryUS,
		}
	}
	seedPlaces(t, placeRepo, places...)

	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "spring"})
	require.NoError(t, err)
	assert.Len(t, results, DefaultPlaceLimit)

	results, err = searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "spring", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchPlacesCountryScope(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	vancouverCA := &core.Place{
		ID: 10, Name: "Vancouver", Population: 675_000,
		Lat: 49.2827, Lon: -123.1207, CountryID: testCountryCA,
	}
	vancouverUS := &core.Place{
		ID: 11, Name: "Vancouver", Population: 190_000,
		Lat: 45.6387, Lon: -122.6615, CountryID: testCountryUS,
	}
	seedPlaces(t, placeRepo, vancouverCA, vancouverUS)

	// Short prefix hits the country-scoped index entry directly.
	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{
		Query: "va", CountryID: testCountryCA,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(10), results[0].Place.ID)

	// Long prefix has no scoped entry; the country is applied as a
	// post-filter over the global candidates.
	results, err = searcher.SearchPlaces(context.Background(), PlaceQuery{
		Query: "vancou", CountryID: testCountryUS,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(11), results[0].Place.ID)
}

func TestSearchPlacesMaxDistanceFilter(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo, sanJose(), sanFrancisco())

	// From San Francisco, San Jose is ~67 km away; a 10 km cap is a hard
	// filter regardless of how well San Jose would have scored.
	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{
		Query: "san", Lat: 37.7749, Lon: -122.4194, HasLocation: true,
		MaxDistanceMeters: 10_000,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "San Francisco", results[0].Place.Name)
}

func TestSearchPlacesLongQuerySubstringFilter(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo,
		&core.Place{ID: 20, Name: "South Lake Tahoe", Population: 22_000, CountryID: testCountryUS},
		&core.Place{ID: 21, Name: "South Lake Terrace", Population: 40_000, CountryID: testCountryUS},
	)

	// The query exceeds the indexed prefix length; both places share the
	// truncated index entry, so the tail is applied as a substring filter.
	results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{
		Query: "South Lake Tahoe",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(20), results[0].Place.ID)
}

func TestSearchPlacesDeterministicTieBreak(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo,
		&core.Place{ID: 33, Name: "Milton", Population: 50_000, CountryID: testCountryUS},
		&core.Place{ID: 7, Name: "Milford", Population: 50_000, CountryID: testCountryUS},
	)

	for i := 0; i < 5; i++ {
		results, err := searcher.SearchPlaces(context.Background(), PlaceQuery{Query: "mil"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, core.ID(7), results[0].Place.ID)
		assert.Equal(t, core.ID(33), results[1].Place.ID)
	}
}

func TestSearchSchoolsRequiresCountry(t *testing.T) {
	searcher, _, _ := newTestSearcher(t)

	_, err := searcher.SearchSchools(context.Background(), SchoolQuery{Query: "lincoln"})
	assert.ErrorIs(t, err, ErrCountryRequired)
}

func TestSearchSchoolsGroupsByType(t *testing.T) {
	searcher, _, schoolRepo := newTestSearcher(t)
	ctx := context.Background()

	lincolnHigh := &core.School{
		ID: 1, Name: "Lincoln High School", Type: core.SchoolTypeHigh,
		CountryID: testCountryUS, CityID: 500, StateID: testStateCA,
		SizeMetric: 2_000,
	}
	lincolnElem := &core.School{
		ID: 2, Name: "Lincoln Elementary", Type: core.SchoolTypeGrade,
		CountryID: testCountryUS, CityID: 500, StateID: testStateCA,
		SizeMetric: 400,
	}
	lincolnCollege := &core.School{
		ID: 3, Name: "Lincoln College", Type: core.SchoolTypeCollege,
		CountryID: testCountryUS, CityID: 501, StateID: testStateCA,
		SizeMetric: 12_000,
	}
	seedSchools(t, schoolRepo, testCountryUS, lincolnHigh, lincolnElem, lincolnCollege)

	require.NoError(t, schoolRepo.PutCityNames(ctx, map[core.ID]string{
		500: "Portland", 501: "Eugene",
	}))
	require.NoError(t, schoolRepo.PutStateNames(ctx, map[core.ID]string{
		testStateCA: "California",
	}))

	groups, err := searcher.SearchSchools(ctx, SchoolQuery{
		CountryID: testCountryUS, Query: "lincoln",
	})
	require.NoError(t, err)

	require.Len(t, groups.High, 1)
	require.Len(t, groups.Grade, 1)
	require.Len(t, groups.College, 1)
	assert.Empty(t, groups.Other)

	assert.Equal(t, "Lincoln High School", groups.High[0].School.Name)
	assert.Equal(t, "Portland", groups.High[0].City)
	assert.Equal(t, "California", groups.High[0].State)
	assert.Equal(t, "Eugene", groups.College[0].City)
}

func TestSearchSchoolsScopedToCountry(t *testing.T) {
	searcher, _, schoolRepo := newTestSearcher(t)

	seedSchools(t, schoolRepo, testCountryUS, &core.School{
		ID: 1, Name: "Kennedy High School", Type: core.SchoolTypeHigh, CountryID: testCountryUS,
	})
	seedSchools(t, schoolRepo, testCountryCA, &core.School{
		ID: 2, Name: "Kennedy Collegiate", Type: core.SchoolTypeHigh, CountryID: testCountryCA,
	})

	groups, err := searcher.SearchSchools(context.Background(), SchoolQuery{
		CountryID: testCountryCA, Query: "kennedy",
	})
	require.NoError(t, err)
	require.Len(t, groups.High, 1)
	assert.Equal(t, core.ID(2), groups.High[0].School.ID)

	// A country with no index yields an empty grouping, not an error.
	groups, err = searcher.SearchSchools(context.Background(), SchoolQuery{
		CountryID: 999, Query: "kennedy",
	})
	require.NoError(t, err)
	assert.Zero(t, groups.Len())
}

func TestSearchSchoolsProximityOrdering(t *testing.T) {
	searcher, _, schoolRepo := newTestSearcher(t)

	near := &core.School{
		ID: 1, Name: "Washington Academy", Type: core.SchoolTypeHigh,
		CountryID: testCountryUS, Lat: 37.78, Lon: -122.42, HasLocation: true,
		SizeMetric: 1_000,
	}
	far := &core.School{
		ID: 2, Name: "Washington Prep", Type: core.SchoolTypeHigh,
		CountryID: testCountryUS, Lat: 40.71, Lon: -74.00, HasLocation: true,
		SizeMetric: 1_000,
	}
	seedSchools(t, schoolRepo, testCountryUS, near, far)

	groups, err := searcher.SearchSchools(context.Background(), SchoolQuery{
		CountryID: testCountryUS, Query: "washington",
		Lat: 37.7749, Lon: -122.4194, HasLocation: true,
	})
	require.NoError(t, err)
	require.Len(t, groups.High, 2)

	assert.Equal(t, core.ID(1), groups.High[0].School.ID)
	assert.Greater(t, groups.High[0].Score, groups.High[1].Score)
	require.NotNil(t, groups.High[0].Distance)
}

func TestSearchSchoolsUnlocatedSchoolStillRanked(t *testing.T) {
	searcher, _, schoolRepo := newTestSearcher(t)

	located := &core.School{
		ID: 1, Name: "Riverside High", Type: core.SchoolTypeHigh,
		CountryID: testCountryUS, Lat: 37.78, Lon: -122.42, HasLocation: true,
	}
	unlocated := &core.School{
		ID: 2, Name: "Riverside Academy", Type: core.SchoolTypeHigh,
		CountryID: testCountryUS,
	}
	seedSchools(t, schoolRepo, testCountryUS, located, unlocated)

	groups, err := searcher.SearchSchools(context.Background(), SchoolQuery{
		CountryID: testCountryUS, Query: "riverside",
		Lat: 37.7749, Lon: -122.4194, HasLocation: true,
	})
	require.NoError(t, err)
	require.Len(t, groups.High, 2)

	// The unlocated school still appears; its distance signal takes the
	// full value, it just carries no Distance annotation.
	for _, result := range groups.High {
		if result.School.ID == 2 {
			assert.Nil(t, result.Distance)
			assert.Greater(t, result.Score, 0.0)
		}
	}
}

type recordingMonitor struct {
	started  string
	fetched  int
	resolved int
	dropped  map[string]int
	finished int
}

func (m *recordingMonitor) Start(query string)                    { m.started = query }
func (m *recordingMonitor) AfterPrefixFetch(_ string, ids []core.ID) { m.fetched = len(ids) }
func (m *recordingMonitor) AfterResolve(resolved int)             { m.resolved = resolved }
func (m *recordingMonitor) CandidateDropped(_ core.ID, reason string) {
	if m.dropped == nil {
		m.dropped = make(map[string]int)
	}
	m.dropped[reason]++
}
func (m *recordingMonitor) Finish(results int) { m.finished = results }

func TestSearchPlacesMonitorCallbacks(t *testing.T) {
	searcher, placeRepo, _ := newTestSearcher(t)
	seedPlaces(t, placeRepo, sanJose(), sanFrancisco())

	monitor := &recordingMonitor{}
	results, err := searcher.SearchPlacesWithMonitor(context.Background(), PlaceQuery{
		Query: "San ", Lat: 37.7749, Lon: -122.4194, HasLocation: true,
		MaxDistanceMeters: 10_000,
	}, monitor)
	require.NoError(t, err)

	assert.Equal(t, "san", monitor.started)
	assert.Equal(t, 2, monitor.fetched)
	assert.Equal(t, 2, monitor.resolved)
	assert.Equal(t, 1, monitor.dropped[DropBeyondDistance])
	assert.Equal(t, len(results), monitor.finished)
}
