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


package redisidx

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/typeahead/storage"
	"github.com/redis/go-redis/v9"
)

// NewTestBackend creates a Backend over an in-process miniredis instance.
// The server and client are torn down automatically with the test.
func NewTestBackend(t *testing.T) *Backend {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })

	return AttachClient(client)
}

// NewTestRepositories creates miniredis-backed place and school repositories
// for testing. Caller cleanup is handled by the test lifecycle.
func NewTestRepositories(t *testing.T) (storage.PlaceRepository, storage.SchoolRepository, *Backend) {
	t.Helper()

	backend := NewTestBackend(t)

	placeRepo, err := NewPlaceRepository(backend)
	if err != nil {
		t.Fatalf("failed to create place repository: %v", err)
	}
	schoolRepo, err := NewSchoolRepository(backend)
	if err != nil {
		t.Fatalf("failed to create school repository: %v", err)
	}

	return placeRepo, schoolRepo, backend
}
