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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/typeahead"
	"github.com/poiesic/typeahead/core"
	"github.com/poiesic/typeahead/indexer"
	"github.com/poiesic/typeahead/search"
	"github.com/urfave/cli/v2"
)

func main() {
	// A local .env supplies connection settings during development; its
	// absence is not an error. Loaded before flag parsing so EnvVars
	// defaults pick the values up.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "err", err)
	}

	app := &cli.App{
		Name:  "typeahead",
		Usage: "Prefix-indexed autocomplete for cities and schools",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis host:port for the prefix index",
				Value:   "localhost:6379",
				EnvVars: []string{"TYPEAHEAD_REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{"TYPEAHEAD_REDIS_PASSWORD"},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{"TYPEAHEAD_REDIS_DB"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "Postgres DSN of the canonical entity store",
				EnvVars: []string{"TYPEAHEAD_POSTGRES_DSN"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "rebuild",
				Usage:  "Rebuild the place and school indexes from the canonical store",
				Action: rebuildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "Which indexes to rebuild (all, places, schools)",
						Value: "all",
					},
					&cli.Uint64SliceFlag{
						Name:  "country",
						Usage: "Restrict a school rebuild to these country ids (repeatable)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Worker pool size for per-country school rebuilds",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "patch",
				Usage:  "Apply school changes since the last sync watermark",
				Action: patchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:      "places",
				Usage:     "Query the place index",
				ArgsUsage: "<query>",
				Action:    placesCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Usage: "Requester latitude"},
					&cli.Float64Flag{Name: "lon", Usage: "Requester longitude"},
					&cli.Uint64Flag{Name: "country", Usage: "Country id scope"},
					&cli.Float64Flag{Name: "max-distance", Usage: "Hard distance cutoff in meters"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: search.DefaultPlaceLimit},
				},
			},
			{
				Name:      "schools",
				Usage:     "Query the school index for one country",
				ArgsUsage: "<query>",
				Action:    schoolsCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "country", Usage: "Country id scope", Required: true},
					&cli.Float64Flag{Name: "lat", Usage: "Requester latitude"},
					&cli.Float64Flag{Name: "lon", Usage: "Requester longitude"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func rebuildCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []indexer.Option
	if c.Int("pool-size") > 0 {
		opts = append(opts, indexer.WithPoolSize(c.Int("pool-size")))
	}
	ix, err := engine.NewIndexer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer ix.Release()

	lookups, err := indexer.LoadLookups(ctx, engine.Catalog())
	if err != nil {
		return fmt.Errorf("failed to load parent lookups: %w", err)
	}

	scope := c.String("scope")
	if scope != "all" && scope != "places" && scope != "schools" {
		return fmt.Errorf("invalid scope %q: must be one of all, places, schools", scope)
	}

	maxRetries := c.Int("max-retries")
	retryDelay := c.Duration("retry-delay")

	if scope == "all" || scope == "places" {
		start := time.Now()
		if err := indexer.RetryWithBackoff(ctx, func() error {
			return ix.RebuildPlaces(ctx, lookups)
		}, maxRetries, retryDelay); err != nil {
			return fmt.Errorf("place rebuild failed: %w", err)
		}
		slog.Info("place index rebuilt", "elapsed", time.Since(start))
	}

	if scope == "all" || scope == "schools" {
		var countryIDs []core.ID
		for _, id := range c.Uint64Slice("country") {
			countryIDs = append(countryIDs, core.ID(id))
		}

		start := time.Now()
		if err := indexer.RetryWithBackoff(ctx, func() error {
			return ix.RebuildSchools(ctx, lookups, countryIDs...)
		}, maxRetries, retryDelay); err != nil {
			return fmt.Errorf("school rebuild failed: %w", err)
		}
		slog.Info("school indexes rebuilt", "elapsed", time.Since(start))
	}

	return nil
}

func patchCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	ix, err := engine.NewIndexer()
	if err != nil {
		return fmt.Errorf("failed to create indexer: %w", err)
	}
	defer ix.Release()

	lookups, err := indexer.LoadLookups(ctx, engine.Catalog())
	if err != nil {
		return fmt.Errorf("failed to load parent lookups: %w", err)
	}

	start := time.Now()
	if err := indexer.RetryWithBackoff(ctx, func() error {
		return ix.PatchSchools(ctx, lookups)
	}, c.Int("max-retries"), c.Duration("retry-delay")); err != nil {
		return fmt.Errorf("school patch failed: %w", err)
	}
	slog.Info("school indexes patched", "elapsed", time.Since(start))

	return nil
}

func placesCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	engine, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.SearchPlaces(ctx, search.PlaceQuery{
		Query:             query,
		Lat:               c.Float64("lat"),
		Lon:               c.Float64("lon"),
		HasLocation:       c.IsSet("lat") && c.IsSet("lon"),
		CountryID:         core.ID(c.Uint64("country")),
		MaxDistanceMeters: c.Float64("max-distance"),
		Limit:             c.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("place search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		if hit.Distance != nil {
			fmt.Printf("%d: '%s' (%d)[%0.3f] %.1fkm\n", i, hit.Place.Name, hit.Place.ID, hit.Score, *hit.Distance/1000)
		} else {
			fmt.Printf("%d: '%s' (%d)[%0.3f]\n", i, hit.Place.Name, hit.Place.ID, hit.Score)
		}
	}
	return nil
}

func schoolsCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("query argument is required")
	}

	engine, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	searcher, err := engine.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	groups, err := searcher.SearchSchools(ctx, search.SchoolQuery{
		CountryID:   core.ID(c.Uint64("country")),
		Query:       query,
		Lat:         c.Float64("lat"),
		Lon:         c.Float64("lon"),
		HasLocation: c.IsSet("lat") && c.IsSet("lon"),
	})
	if err != nil {
		return fmt.Errorf("school search failed: %w", err)
	}

	fmt.Printf("Found %d hits\n", groups.Len())
	printGroup("Colleges", groups.College)
	printGroup("High schools", groups.High)
	printGroup("Grade schools", groups.Grade)
	printGroup("Other", groups.Other)
	return nil
}

func printGroup(label string, results []*search.SchoolResult) {
	if len(results) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for i, hit := range results {
		location := hit.City
		if hit.State != "" {
			location += ", " + hit.State
		}
		fmt.Printf("  %d: '%s' (%s)[%0.3f]\n", i, hit.School.Name, location, hit.Score)
	}
}

// openEngine builds an Engine from the global flags. Index-maintenance
// commands require the catalog DSN; query commands do not.
func openEngine(c *cli.Context, needCatalog bool) (*typeahead.Engine, error) {
	dsn := c.String("postgres-dsn")
	if needCatalog && dsn == "" {
		return nil, fmt.Errorf("postgres-dsn is required")
	}

	engine, err := typeahead.NewEngine(typeahead.Config{
		RedisAddr:     c.String("redis-addr"),
		RedisPassword: c.String("redis-password"),
		RedisDB:       c.Int("redis-db"),
		PostgresDSN:   dsn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func setup(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
