package sqlite

import (
	"context"
	"database/sql"

	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/errors"
)

// sqlTransactionManager implements the domain's TransactionManager interface using database/sql.
type sqlTransactionManager struct {
	db *sql.DB
}

// sqlRepositoryFactory hands out repositories bound to a single *sql.Tx.
type sqlRepositoryFactory struct {
	tx *sql.Tx
}

func (f *sqlRepositoryFactory) NewAccountRepository() repository.AccountRepository {
	return NewAccountRepository(f.tx)
}

func (f *sqlRepositoryFactory) NewCredentialRepository() repository.CredentialRepository {
	return NewCredentialRepository(f.tx)
}

// NewTransactionManager is the constructor for sqlTransactionManager.
func NewTransactionManager(db *sql.DB) repository.TransactionManager {
	return &sqlTransactionManager{db: db}
}

// Execute runs fn within a single transaction.
// Only the repositories handed to fn may be used inside it: the pool holds one connection.
func (tm *sqlTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	tx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(&sqlRepositoryFactory{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "transaction rollback failed: %v", rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to commit transaction")
	}

	return nil
}
