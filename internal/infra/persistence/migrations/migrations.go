// Package migrations embeds the SQL schema for every SQL storage driver and applies it with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"

	"guardian/internal/errors"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialect names a schema directory together with the goose dialect that runs it.
type Dialect struct {
	dir   string
	goose goose.Dialect
}

var (
	Postgres = Dialect{dir: "postgres", goose: goose.DialectPostgres}
	SQLite   = Dialect{dir: "sqlite", goose: goose.DialectSQLite3}
)

func newProvider(db *sql.DB, dialect Dialect) (*goose.Provider, error) {
	fsys, err := fs.Sub(files, dialect.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s migrations", dialect.dir)
	}

	provider, err := goose.NewProvider(dialect.goose, db, fsys)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s migration provider", dialect.dir)
	}

	return provider, nil
}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrapf(err, "apply %s migrations", dialect.dir)
	}

	for _, result := range results {
		logger.Info("Applied migration",
			slog.String("dialect", dialect.dir),
			slog.Int64("version", result.Source.Version),
			slog.Duration("duration", result.Duration),
		)
	}

	return nil
}

// Down rolls back the most recently applied migration.
func Down(ctx context.Context, db *sql.DB, dialect Dialect) error {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return err
	}

	if _, err := provider.Down(ctx); err != nil {
		return errors.Wrapf(err, "roll back %s migration", dialect.dir)
	}

	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s schema version", dialect.dir)
	}

	return version, nil
}
