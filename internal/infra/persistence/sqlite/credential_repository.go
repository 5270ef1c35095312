package sqlite

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/errors"
)

type credentialRepository struct {
	db DBTX
}

// NewCredentialRepository returns a CredentialRepository backed by db, which may be a *sql.DB or *sql.Tx.
func NewCredentialRepository(db DBTX) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

func (repo *credentialRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	var (
		credential               entity.Credential
		lastAttemptAt, updatedAt int64
	)

	err := repo.db.QueryRowContext(ctx,
		`SELECT account_id, password_hash, last_attempt_at, failure_count, updated_at FROM credentials WHERE account_id = ?`,
		accountID,
	).Scan(&credential.AccountID, &credential.PasswordHash, &lastAttemptAt, &credential.FailureCount, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find credential")
	}

	credential.LastAttemptAt = fromUnix(lastAttemptAt)
	credential.UpdatedAt = fromUnix(updatedAt)

	return &credential, nil
}

// FindByAccountIDForUpdate needs no explicit lock. Transactions begin IMMEDIATE,
// so the database write lock is already held when the row is read.
func (repo *credentialRepository) FindByAccountIDForUpdate(ctx context.Context, accountID uuid.UUID) (*entity.Credential, error) {
	return repo.FindByAccountID(ctx, accountID)
}

func (repo *credentialRepository) Create(ctx context.Context, credential *entity.Credential) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO credentials (account_id, password_hash, last_attempt_at, failure_count, updated_at) VALUES (?, ?, ?, ?, ?)`,
		credential.AccountID, credential.PasswordHash, toUnix(credential.LastAttemptAt), credential.FailureCount, toUnix(credential.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrAccountNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create credential")
	}

	return nil
}

func (repo *credentialRepository) Save(ctx context.Context, credential *entity.Credential) error {
	result, err := repo.db.ExecContext(ctx,
		`UPDATE credentials SET password_hash = ?, last_attempt_at = ?, failure_count = ?, updated_at = ? WHERE account_id = ?`,
		credential.PasswordHash, toUnix(credential.LastAttemptAt), credential.FailureCount, toUnix(credential.UpdatedAt), credential.AccountID,
	)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to save credential")
	}

	return requireAffected(result, repository.ErrCredentialNotFound)
}

func (repo *credentialRepository) Delete(ctx context.Context, accountID uuid.UUID) error {
	result, err := repo.db.ExecContext(ctx, `DELETE FROM credentials WHERE account_id = ?`, accountID)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete credential")
	}

	return requireAffected(result, repository.ErrCredentialNotFound)
}
