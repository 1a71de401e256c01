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


// Package catalog provides read-only access to the canonical entity store.
//
// The canonical store owns entity lifecycle (create, update, soft-delete);
// this package only reads batches for the indexer. The prefix index is an
// eventually-consistent derived view of what lives here.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/poiesic/typeahead/core"

	_ "github.com/lib/pq"
)

// Store is the canonical-store client, holding a Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open opens a connection pool against the canonical database.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// AttachDB wraps an existing database handle. Used by tests and callers that
// manage the pool themselves.
func AttachDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchPlaces returns every place in the canonical store.
func (s *Store) FetchPlaces(ctx context.Context) ([]*core.Place, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, population, lat, lon, country_id, state_id
		FROM places
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetching places: %w", err)
	}
	defer rows.Close()

	var places []*core.Place
	for rows.Next() {
		var (
			place   core.Place
			stateID sql.NullInt64
		)
		if err := rows.Scan(&place.ID, &place.Name, &place.Population,
			&place.Lat, &place.Lon, &place.CountryID, &stateID); err != nil {
			return nil, err
		}
		if stateID.Valid {
			place.StateID = core.ID(stateID.Int64)
		}
		places = append(places, &place)
	}
	return places, rows.Err()
}

const schoolColumns = `id, token, name, city_id, state_id, country_id,
	lat, lon, size_metric, type, updated, deleted`

// FetchSchools returns every live school of one country.
func (s *Store) FetchSchools(ctx context.Context, countryID core.ID) ([]*core.School, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+schoolColumns+`
		FROM schools
		WHERE country_id = $1 AND deleted IS NULL
		ORDER BY id`, int64(countryID))
	if err != nil {
		return nil, fmt.Errorf("fetching schools for country %d: %w", countryID, err)
	}
	defer rows.Close()
	return scanSchools(rows)
}

// FetchSchoolsUpdatedSince returns schools, deleted ones included, whose
// updated timestamp advanced past the watermark. This is the incremental
// sync query shape.
func (s *Store) FetchSchoolsUpdatedSince(ctx context.Context, since time.Time) ([]*core.School, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+schoolColumns+`
		FROM schools
		WHERE updated > $1
		ORDER BY updated, id`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("fetching schools updated since %v: %w", since, err)
	}
	defer rows.Close()
	return scanSchools(rows)
}

func scanSchools(rows *sql.Rows) ([]*core.School, error) {
	var schools []*core.School
	for rows.Next() {
		var (
			school   core.School
			id       sql.NullInt64
			stateID  sql.NullInt64
			lat, lon sql.NullFloat64
			size     sql.NullInt64
			typeName string
			updated  int64
			deleted  sql.NullInt64
		)
		if err := rows.Scan(&id, &school.Token, &school.Name, &school.CityID,
			&stateID, &school.CountryID, &lat, &lon, &size, &typeName,
			&updated, &deleted); err != nil {
			return nil, err
		}

		if id.Valid {
			school.ID = core.ID(id.Int64)
		} else {
			// Federated rows carry only the external token.
			school.ID = core.IDFromToken(school.Token)
		}
		if stateID.Valid {
			school.StateID = core.ID(stateID.Int64)
		}
		if lat.Valid && lon.Valid {
			school.Lat = lat.Float64
			school.Lon = lon.Float64
			school.HasLocation = true
		}
		school.SizeMetric = -1
		if size.Valid {
			school.SizeMetric = size.Int64
		}
		school.Type = core.SchoolTypeFromString(typeName)
		school.UpdatedAt = time.Unix(updated, 0).UTC()
		if deleted.Valid {
			t := time.Unix(deleted.Int64, 0).UTC()
			school.DeletedAt = &t
		}

		schools = append(schools, &school)
	}
	return schools, rows.Err()
}

// FetchCountryIDs returns the ids of every known country.
func (s *Store) FetchCountryIDs(ctx context.Context) ([]core.ID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM countries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("fetching countries: %w", err)
	}
	defer rows.Close()

	var ids []core.ID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, core.ID(id))
	}
	return ids, rows.Err()
}

// FetchCityNames returns the id-to-name dictionary for cities.
func (s *Store) FetchCityNames(ctx context.Context) (map[core.ID]string, error) {
	return s.fetchNames(ctx, "cities")
}

// FetchStateNames returns the id-to-name dictionary for states.
func (s *Store) FetchStateNames(ctx context.Context) (map[core.ID]string, error) {
	return s.fetchNames(ctx, "states")
}

func (s *Store) fetchNames(ctx context.Context, table string) (map[core.ID]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM `+table)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}
	defer rows.Close()

	names := make(map[core.ID]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[core.ID(id)] = name
	}
	return names, rows.Err()
}
