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


// Package search answers as-you-type queries against the prefix index.
//
// The Searcher type implements a multi-stage query path:
//   - Resolve the normalized query prefix to a candidate set
//   - Materialize candidate records from the cache, dropping stale ids
//   - Score each candidate from distance, size/popularity and type signals
//   - Order, truncate and (for schools) group the results by type
//
// The query path is read-only and side-effect-free; any number of searches
// may run concurrently against the index store.
package search
