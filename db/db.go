package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/racereg/config"
	"github.com/padraicbc/racereg/models"
)

// Setup opens a PostgreSQL connection using the provided config.
// DB_DRIVER=pgx routes bun through a pgx pool; anything else uses bun's pgdriver.
func Setup(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	var sqldb *sql.DB
	switch cfg.DBDriver {
	case config.DriverPGX:
		pcfg, err := pgxpool.ParseConfig(cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, pcfg)
		if err != nil {
			return nil, fmt.Errorf("pgxpool: %w", err)
		}
		sqldb = stdlib.OpenDBFromPool(pool)
	default:
		sqldb = sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.PostgresDSN())))
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Category)(nil),
		(*models.Event)(nil),
		(*models.EventCategory)(nil),
		(*models.Runner)(nil),
		(*models.Registration)(nil),
		(*models.TimingResult)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}

	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'registrations_bib_per_event') THEN ALTER TABLE registrations ADD CONSTRAINT registrations_bib_per_event UNIQUE (event_id, bib); END IF; END $$`,
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'registrations_runner_per_event') THEN ALTER TABLE registrations ADD CONSTRAINT registrations_runner_per_event UNIQUE (event_id, runner_id); END IF; END $$`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding registration constraint: %w", err)
		}
	}

	return nil
}
