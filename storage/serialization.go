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


package storage

import (
	"fmt"
	"time"

	"github.com/poiesic/typeahead/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Records are stored as msgpack-encoded hash values. The wire structs below
// pin the field tags so the cached form stays stable across refactors of the
// core models.

type placeRecord struct {
	ID         uint64  `msgpack:"i"`
	Name       string  `msgpack:"n"`
	Population uint64  `msgpack:"p"`
	Lat        float64 `msgpack:"la"`
	Lon        float64 `msgpack:"lo"`
	CountryID  uint64  `msgpack:"c"`
	StateID    uint64  `msgpack:"s,omitempty"`
}

type schoolRecord struct {
	ID          uint64  `msgpack:"i"`
	Token       string  `msgpack:"tk"`
	Name        string  `msgpack:"n"`
	CityID      uint64  `msgpack:"ci"`
	StateID     uint64  `msgpack:"st,omitempty"`
	CountryID   uint64  `msgpack:"co"`
	Lat         float64 `msgpack:"la,omitempty"`
	Lon         float64 `msgpack:"lo,omitempty"`
	HasLocation bool    `msgpack:"hl,omitempty"`
	SizeMetric  int64   `msgpack:"sz"`
	Type        string  `msgpack:"ty"`
	UpdatedAt   int64   `msgpack:"up,omitempty"`
}

// MarshalPlace serializes a Place to bytes.
func MarshalPlace(place *core.Place) ([]byte, error) {
	rec := placeRecord{
		ID:         uint64(place.ID),
		Name:       place.Name,
		Population: place.Population,
		Lat:        place.Lat,
		Lon:        place.Lon,
		CountryID:  uint64(place.CountryID),
		StateID:    uint64(place.StateID),
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalPlace deserializes a Place from bytes.
// Parse failures are reported as ErrMalformedRecord so the query path can
// drop the single candidate and continue.
func UnmarshalPlace(data []byte) (*core.Place, error) {
	var rec placeRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	return &core.Place{
		ID:         core.ID(rec.ID),
		Name:       rec.Name,
		Population: rec.Population,
		Lat:        rec.Lat,
		Lon:        rec.Lon,
		CountryID:  core.ID(rec.CountryID),
		StateID:    core.ID(rec.StateID),
	}, nil
}

// MarshalSchool serializes a School to bytes. The soft-delete timestamp is
// not cached: deleted schools never reach the index.
func MarshalSchool(school *core.School) ([]byte, error) {
	rec := schoolRecord{
		ID:          uint64(school.ID),
		Token:       school.Token,
		Name:        school.Name,
		CityID:      uint64(school.CityID),
		StateID:     uint64(school.StateID),
		CountryID:   uint64(school.CountryID),
		Lat:         school.Lat,
		Lon:         school.Lon,
		HasLocation: school.HasLocation,
		SizeMetric:  school.SizeMetric,
		Type:        school.Type.String(),
	}
	if !school.UpdatedAt.IsZero() {
		rec.UpdatedAt = school.UpdatedAt.Unix()
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalSchool deserializes a School from bytes.
func UnmarshalSchool(data []byte) (*core.School, error) {
	var rec schoolRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	school := &core.School{
		ID:          core.ID(rec.ID),
		Token:       rec.Token,
		Name:        rec.Name,
		CityID:      core.ID(rec.CityID),
		StateID:     core.ID(rec.StateID),
		CountryID:   core.ID(rec.CountryID),
		Lat:         rec.Lat,
		Lon:         rec.Lon,
		HasLocation: rec.HasLocation,
		SizeMetric:  rec.SizeMetric,
		Type:        core.SchoolTypeFromString(rec.Type),
	}
	if rec.UpdatedAt != 0 {
		school.UpdatedAt = time.Unix(rec.UpdatedAt, 0).UTC()
	}
	return school, nil
}
