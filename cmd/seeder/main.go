package main

import (
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/typeahead/core"

	_ "github.com/lib/pq"
)

// Sample geography: enough variety to exercise prefix overlap, country
// scoping and every school type.
type seedPlace struct {
	id         int64
	name       string
	population int64
	lat, lon   float64
	countryID  int64
	stateID    int64
}

type seedSchool struct {
	id        int64
	token     string
	name      string
	cityID    int64
	stateID   int64
	countryID int64
	lat, lon  float64
	size      int64
	kind      core.SchoolType
}

var countries = map[int64]string{
	840: "United States",
	124: "Canada",
}

var states = map[int64]string{
	6:  "California",
	41: "Oregon",
	59: "British Columbia",
}

var places = []seedPlace{
	{1, "San Jose", 1_000_000, 37.3382, -121.8863, 840, 6},
	{2, "San Francisco", 800_000, 37.7749, -122.4194, 840, 6},
	{3, "Santa Clara", 130_000, 37.3541, -121.9552, 840, 6},
	{4, "San Diego", 1_380_000, 32.7157, -117.1611, 840, 6},
	{5, "Sacramento", 525_000, 38.5816, -121.4944, 840, 6},
	{6, "Portland", 650_000, 45.5152, -122.6784, 840, 41},
	{7, "Salem", 180_000, 44.9429, -123.0351, 840, 41},
	{8, "Springfield", 62_000, 44.0462, -123.0220, 840, 41},
	{9, "Vancouver", 675_000, 49.2827, -123.1207, 124, 59},
	{10, "Victoria", 92_000, 48.4284, -123.3656, 124, 59},
	{11, "Surrey", 570_000, 49.1913, -122.8490, 124, 59},
	{12, "South Lake Tahoe", 22_000, 38.9399, -119.9772, 840, 6},
}

var schools = []seedSchool{
	{1, "us-ca-lincoln-hs", "Lincoln High School", 1, 6, 840, 37.3270, -121.9270, 1_800, core.SchoolTypeHigh},
	{2, "us-ca-lincoln-elem", "Lincoln Elementary", 1, 6, 840, 37.3300, -121.9000, 450, core.SchoolTypeGrade},
	{3, "us-ca-sjsu", "San Jose State University", 1, 6, 840, 37.3352, -121.8811, 33_000, core.SchoolTypeCollege},
	{4, "us-ca-sfsu", "San Francisco State University", 2, 6, 840, 37.7241, -122.4799, 27_000, core.SchoolTypeCollege},
	{5, "us-ca-mission-hs", "Mission High School", 2, 6, 840, 37.7625, -122.4270, 1_050, core.SchoolTypeHigh},
	{6, "us-or-psu", "Portland State University", 6, 41, 840, 45.5118, -122.6843, 22_000, core.SchoolTypeCollege},
	{7, "us-or-grant-hs", "Grant High School", 6, 41, 840, 45.5366, -122.6210, 1_600, core.SchoolTypeHigh},
	{8, "us-or-arts-academy", "Portland Arts Academy", 6, 41, 840, 45.5200, -122.6500, 300, core.SchoolTypeOther},
	{9, "ca-bc-ubc", "University of British Columbia", 9, 59, 124, 49.2606, -123.2460, 58_000, core.SchoolTypeCollege},
	{10, "ca-bc-kitsilano", "Kitsilano Secondary School", 9, 59, 124, 49.2570, -123.1630, 1_500, core.SchoolTypeHigh},
	{11, "ca-bc-lord-roberts", "Lord Roberts Elementary", 9, 59, 124, 49.2860, -123.1360, 500, core.SchoolTypeGrade},
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS countries (
		id   BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS states (
		id   BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id   BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS places (
		id         BIGINT PRIMARY KEY,
		name       TEXT NOT NULL,
		population BIGINT NOT NULL,
		lat        DOUBLE PRECISION NOT NULL,
		lon        DOUBLE PRECISION NOT NULL,
		country_id BIGINT NOT NULL,
		state_id   BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS schools (
		id          BIGINT,
		token       TEXT NOT NULL PRIMARY KEY,
		name        TEXT NOT NULL,
		city_id     BIGINT NOT NULL,
		state_id    BIGINT,
		country_id  BIGINT NOT NULL,
		lat         DOUBLE PRECISION,
		lon         DOUBLE PRECISION,
		size_metric BIGINT,
		type        TEXT NOT NULL,
		updated     BIGINT NOT NULL,
		deleted     BIGINT
	)`,
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "err", err)
	}

	dsn := flag.String("dsn", os.Getenv("TYPEAHEAD_POSTGRES_DSN"), "Postgres DSN of the canonical entity store")
	reset := flag.Bool("reset", false, "Truncate existing rows before seeding")
	flag.Parse()

	if *dsn == "" {
		slog.Error("a Postgres DSN is required (flag -dsn or TYPEAHEAD_POSTGRES_DSN)")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *dsn)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			slog.Error("failed to create schema", "err", err)
			os.Exit(1)
		}
	}

	if *reset {
		if _, err := db.Exec(`TRUNCATE countries, states, cities, places, schools`); err != nil {
			slog.Error("failed to truncate tables", "err", err)
			os.Exit(1)
		}
	}

	if err := seed(db); err != nil {
		slog.Error("seeding failed", "err", err)
		os.Exit(1)
	}

	slog.Info("seeded canonical store",
		"countries", len(countries), "states", len(states),
		"places", len(places), "schools", len(schools))
}

func seed(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id, name := range countries {
		if _, err := tx.Exec(`INSERT INTO countries (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name); err != nil {
			return err
		}
	}
	for id, name := range states {
		if _, err := tx.Exec(`INSERT INTO states (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, id, name); err != nil {
			return err
		}
	}

	// Cities share ids with places: every seeded place doubles as a city
	// schools can point at.
	for _, p := range places {
		if _, err := tx.Exec(`INSERT INTO cities (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, p.id, p.name); err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT INTO places (id, name, population, lat, lon, country_id, state_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, population = EXCLUDED.population,
				lat = EXCLUDED.lat, lon = EXCLUDED.lon,
				country_id = EXCLUDED.country_id, state_id = EXCLUDED.state_id`,
			p.id, p.name, p.population, p.lat, p.lon, p.countryID, p.stateID); err != nil {
			return err
		}
	}

	now := time.Now().Unix()
	for _, s := range schools {
		if _, err := tx.Exec(`INSERT INTO schools
			(id, token, name, city_id, state_id, country_id, lat, lon, size_metric, type, updated, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL)
			ON CONFLICT (token) DO UPDATE SET
				name = EXCLUDED.name, city_id = EXCLUDED.city_id,
				state_id = EXCLUDED.state_id, country_id = EXCLUDED.country_id,
				lat = EXCLUDED.lat, lon = EXCLUDED.lon,
				size_metric = EXCLUDED.size_metric, type = EXCLUDED.type,
				updated = EXCLUDED.updated, deleted = NULL`,
			s.id, s.token, s.name, s.cityID, s.stateID, s.countryID,
			s.lat, s.lon, s.size, s.kind.String(), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
