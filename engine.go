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


package typeahead

import (
	"log/slog"

	"github.com/poiesic/typeahead/catalog"
	"github.com/poiesic/typeahead/indexer"
	"github.com/poiesic/typeahead/search"
	"github.com/poiesic/typeahead/storage"
	"github.com/poiesic/typeahead/storage/redisidx"
)

// Config holds the connection settings for an Engine.
type Config struct {
	// RedisAddr is the host:port of the index store.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgresDSN connects the canonical entity store. Optional: query-only
	// deployments leave it empty and get no catalog or indexer.
	PostgresDSN string
}

// Engine wires the index store, the canonical catalog and the query path
// together. Query-serving processes and index-maintenance processes share it.
type Engine struct {
	backend    *redisidx.Backend
	placeRepo  storage.PlaceRepository
	schoolRepo storage.SchoolRepository
	watermarks storage.WatermarkRepository
	store      *catalog.Store
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	logger *slog.Logger
}

// WithEngineLogger sets a custom logger.
// Default is slog.Default().
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	// Apply options
	options := &engineOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := redisidx.Open(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}

	// Create place repository
	placeRepo, err := redisidx.NewPlaceRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create school repository
	schoolRepo, err := redisidx.NewSchoolRepository(backend)
	if err != nil {
		placeRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create watermark repository
	watermarks, err := redisidx.NewWatermarkRepository(backend)
	if err != nil {
		schoolRepo.Close()
		placeRepo.Close()
		backend.Close()
		return nil, err
	}

	// Open the catalog when a DSN is configured
	var store *catalog.Store
	if cfg.PostgresDSN != "" {
		store, err = catalog.Open(cfg.PostgresDSN)
		if err != nil {
			schoolRepo.Close()
			placeRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	return &Engine{
		backend:    backend,
		placeRepo:  placeRepo,
		schoolRepo: schoolRepo,
		watermarks: watermarks,
		store:      store,
		logger:     options.logger,
	}, nil
}

func (e *Engine) Close() error {
	// Close the catalog first
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Error("error closing catalog store", "err", err)
		}
	}

	// Close repositories
	if err := e.schoolRepo.Close(); err != nil {
		e.logger.Error("error closing school repository", "err", err)
		return err
	}
	if err := e.placeRepo.Close(); err != nil {
		e.logger.Error("error closing place repository", "err", err)
		return err
	}

	// Close backend
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing index backend", "err", err)
		return err
	}
	return nil
}

func (e *Engine) PlaceRepository() storage.PlaceRepository {
	return e.placeRepo
}

func (e *Engine) SchoolRepository() storage.SchoolRepository {
	return e.schoolRepo
}

func (e *Engine) WatermarkRepository() storage.WatermarkRepository {
	return e.watermarks
}

// Catalog returns the canonical entity store, or nil when the engine was
// opened without a Postgres DSN.
func (e *Engine) Catalog() *catalog.Store {
	return e.store
}

// NewIndexer creates an indexer over the engine's catalog and index store.
// Returns indexer.ErrSourceRequired when the engine has no catalog.
func (e *Engine) NewIndexer(opts ...indexer.Option) (*indexer.Indexer, error) {
	if e.store == nil {
		return nil, indexer.ErrSourceRequired
	}
	return indexer.NewIndexer(e.store, e.placeRepo, e.schoolRepo, e.watermarks, opts...)
}

func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.placeRepo, e.schoolRepo, opts...)
}
