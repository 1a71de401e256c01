package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newLoggerApp() *cli.App {
	return &cli.App{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
			},
		},
		Before: setup,
		Action: func(c *cli.Context) error { return nil },
	}
}

func TestSetupLogLevels(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				err := newLoggerApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(level, func(t *testing.T) {
				err := newLoggerApp().Run([]string{"test", "--log-level", level})
				require.NoError(t, err)
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newLoggerApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestPlacesCommandRequiresQuery(t *testing.T) {
	app := &cli.App{
		Name: "typeahead",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379"},
			&cli.StringFlag{Name: "redis-password"},
			&cli.IntFlag{Name: "redis-db"},
			&cli.StringFlag{Name: "postgres-dsn"},
		},
		Commands: []*cli.Command{
			{
				Name:   "places",
				Action: placesCommand,
			},
		},
	}

	err := app.Run([]string{"typeahead", "places"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query argument is required")
}

func TestRebuildCommandRequiresDSN(t *testing.T) {
	app := &cli.App{
		Name: "typeahead",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "redis-addr", Value: "localhost:6379"},
			&cli.StringFlag{Name: "redis-password"},
			&cli.IntFlag{Name: "redis-db"},
			&cli.StringFlag{Name: "postgres-dsn"},
		},
		Commands: []*cli.Command{
			{
				Name:   "rebuild",
				Action: rebuildCommand,
			},
		},
	}

	err := app.Run([]string{"typeahead", "rebuild"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres-dsn is required")
}
