// Package sqlite implements the persistence layer on an embedded SQLite database.
// All access goes through a single connection, so transactions are serialized and a
// row read inside a transaction cannot change until that transaction ends.
package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	_ "modernc.org/sqlite"

	"guardian/config"
	"guardian/internal/domain/lifecycle"
	"guardian/internal/errors"
	"guardian/internal/infra/persistence/migrations"
)

const memoryPath = ":memory:"

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the configured SQLite database and registers migrations and shutdown with the lifecycle.
func New(params Params) (*sql.DB, error) {
	db, err := Open(params.Config.Storage.SQLite.Path)
	if err != nil {
		return nil, err
	}

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping SQLite")
			}

			return migrations.Up(ctx, db, migrations.SQLite, params.Logger)
		},
		OnStop: func(_ context.Context) error {
			return db.Close()
		},
	})

	return db, nil
}

// Open opens path (or ":memory:") with foreign keys enforced and a single shared connection.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open SQLite database")
	}

	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return db, nil
}

func dsn(path string) string {
	// Transactions take the write lock at BEGIN so that a read for update in one
	// process cannot be overtaken by a writer in another.
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if path == "" || path == memoryPath {
		return "file::memory:?" + pragmas
	}

	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}

	return path + "?" + pragmas + "&_pragma=journal_mode(WAL)"
}
