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

type accountRepository struct {
	db DBTX
}

// NewAccountRepository returns an AccountRepository backed by db, which may be a *sql.DB or *sql.Tx.
func NewAccountRepository(db DBTX) repository.AccountRepository {
	return &accountRepository{db: db}
}

const selectAccount = `SELECT id, name, email, created_at, updated_at FROM accounts`

func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, selectAccount+` WHERE id = ?`, id)
}

func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.findOne(ctx, selectAccount+` WHERE email = ?`, email)
}

func (repo *accountRepository) findOne(ctx context.Context, query string, arg any) (*entity.Account, error) {
	var (
		account              entity.Account
		createdAt, updatedAt int64
	)

	err := repo.db.QueryRowContext(ctx, query, arg).
		Scan(&account.ID, &account.Name, &account.Email, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find account")
	}

	account.CreatedAt = fromUnix(createdAt)
	account.UpdatedAt = fromUnix(updatedAt)

	return &account, nil
}

func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		account.ID, account.Name, account.Email, toUnix(account.CreatedAt), toUnix(account.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrAccountEmailTaken
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create account")
	}

	return nil
}

func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	result, err := repo.db.ExecContext(ctx,
		`UPDATE accounts SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		account.Name, account.Email, toUnix(account.UpdatedAt), account.ID,
	)
	if err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrAccountEmailTaken
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}

	return requireAffected(result, repository.ErrAccountNotFound)
}

func (repo *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := repo.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to delete account")
	}

	return requireAffected(result, repository.ErrAccountNotFound)
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to read affected rows")
	}
	if rows == 0 {
		return notFound
	}

	return nil
}
