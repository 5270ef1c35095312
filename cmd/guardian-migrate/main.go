package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"guardian/config"
	"guardian/internal/app"
	"guardian/internal/domain/lifecycle"
	"guardian/internal/errors"
	"guardian/internal/infra/persistence/migrations"
	"guardian/internal/infra/persistence/postgres"
	"guardian/internal/infra/persistence/sqlite"

	"go.uber.org/fx"
)

// Supported subcommands:
// - up:      apply every pending migration
// - down:    roll back the latest migration
// - version: print the current schema version

type migrationTarget struct {
	db      *sql.DB
	dialect migrations.Dialect
	up      func(ctx context.Context, logger *slog.Logger) error
}

type targetParams struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var (
		target *migrationTarget
		logger *slog.Logger
	)

	fxApp := fx.New(
		app.InfraModule(cfg),
		fx.Provide(newMigrationTarget),
		fx.Populate(&target, &logger),
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer cancel()

	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := runSubcommand(context.Background(), os.Args[1], target, logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), lifecycle.DefaultTimeout)
	defer stopCancel()

	if err := fxApp.Stop(stopCtx); err != nil {
		logger.Warn("Failed to stop cleanly", slog.Any("error", err))
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// newMigrationTarget opens the configured database without applying anything to it.
func newMigrationTarget(params targetParams) (*migrationTarget, error) {
	switch params.Config.Storage.Driver {
	case config.StorageDriverPostgres:
		gormDB, err := postgres.New(postgres.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return nil, err
		}

		db, err := gormDB.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
		}

		return &migrationTarget{
			db:      db,
			dialect: migrations.Postgres,
			up: func(ctx context.Context, logger *slog.Logger) error {
				return postgres.Migrate(ctx, gormDB, logger)
			},
		}, nil
	case config.StorageDriverSQLite:
		db, err := sqlite.Open(params.Config.Storage.SQLite.Path)
		if err != nil {
			return nil, err
		}
		params.Append(fx.StopHook(db.Close))

		return newSQLTarget(db, migrations.SQLite), nil
	default:
		return nil, errors.Errorf("storage driver %q has no schema to migrate", params.Config.Storage.Driver)
	}
}

func newSQLTarget(db *sql.DB, dialect migrations.Dialect) *migrationTarget {
	return &migrationTarget{
		db:      db,
		dialect: dialect,
		up: func(ctx context.Context, logger *slog.Logger) error {
			return migrations.Up(ctx, db, dialect, logger)
		},
	}
}

func runSubcommand(ctx context.Context, name string, target *migrationTarget, logger *slog.Logger) error {
	switch name {
	case "up":
		return target.up(ctx, logger)
	case "down":
		if err := migrations.Down(ctx, target.db, target.dialect); err != nil {
			return err
		}
		logger.Info("Rolled back latest migration")

		return nil
	case "version":
		version, err := migrations.Version(ctx, target.db, target.dialect)
		if err != nil {
			return err
		}
		fmt.Println(version)

		return nil
	default:
		printUsage()

		return errors.Errorf("unknown subcommand %q", name)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: guardian-migrate <up|down|version>")
	fmt.Fprintln(os.Stderr, "The storage driver and connection are read from config.yaml and the environment.")
}
