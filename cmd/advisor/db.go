package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/repository/csvsource"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/pkg/logger"
)

type ctxKey string

const dbKey ctxKey = "db"

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFromContext(c *cli.Context) (*sql.DB, error) {
	db, ok := c.Context.Value(dbKey).(*sql.DB)
	if !ok || db == nil {
		return nil, fmt.Errorf("database connection not initialized")
	}
	return db, nil
}

func runMigrate(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	if err := postgres.Migrate(c.Context, db); err != nil {
		return err
	}
	logger.Log.Info().Msg("schema applied")
	return nil
}

func runImport(c *cli.Context) error {
	db, err := dbFromContext(c)
	if err != nil {
		return err
	}

	snap, err := csvsource.NewDirSource(c.String("snapshot-dir")).LoadSnapshot(c.Context)
	if err != nil {
		return err
	}

	cfg := config.Load()
	repo := postgres.NewSnapshotRepository(postgres.Wrap(sqlx.NewDb(db, "pgx")), cfg.Intelligence.HistoryWindowDays)
	if err := repo.ImportSnapshot(c.Context, snap); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	logger.Log.Info().
		Int("products", len(snap.Products)).
		Int("locations", len(snap.Locations)).
		Int("history_rows", len(snap.SalesHistory)).
		Int("routes", len(snap.Routes)).
		Msg("snapshot imported")
	return nil
}
