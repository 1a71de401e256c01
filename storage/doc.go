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


// Package storage provides the index-store abstraction layer for typeahead.
//
// This package defines repository interfaces that decouple the prefix index
// substrate from the indexing and search logic. The production backend is
// Redis (see storage/redisidx); tests run against an in-process miniredis.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interfaces defined here:
//
//	idx, err := redisidx.NewPlaceRepository(backend)  // returns storage.PlaceIndex + writer
//
// so consumers never couple to backend specifics and alternative substrates
// can be added without touching indexer or search code.
//
// # Architecture
//
//   - PlaceIndex / PlaceIndexWriter: weighted prefix sets and records for places
//   - SchoolIndex / SchoolIndexWriter: per-country prefix sets, records and
//     display-name lookups for schools
//   - Rebuild handles: staged full rebuilds committed with an atomic
//     generation swap
//   - WatermarkRepository: "last synced" timestamps driving incremental patches
//
// # Mutation Discipline
//
// The indexer is the sole writer of index structures; any number of readers
// may query concurrently. This is a deployment convention, not a lock.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. A cancelled context aborts in-flight store calls; there is no
// partial-result contract.
package storage
