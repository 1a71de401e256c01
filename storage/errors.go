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

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrMalformedRecord indicates a cached serialized record failed to parse.
	// Callers on the query path drop the single candidate and continue.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrEmptyPrefix indicates a prefix lookup with an empty key.
	ErrEmptyPrefix = errors.New("prefix cannot be empty")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrRebuildFinished indicates use of a rebuild handle after Commit or Abort.
	ErrRebuildFinished = errors.New("rebuild already committed or aborted")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
