package sqlite

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/infra/persistence/migrations"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(memoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db, migrations.SQLite, slog.New(slog.NewTextHandler(io.Discard, nil))))

	return db
}

func seedAccount(t *testing.T, db *sql.DB, email string) (*entity.Account, *entity.Credential) {
	t.Helper()

	now := time.Date(2024, 1, 1, 12, 0, 0, 123, time.UTC)
	account := &entity.Account{ID: uuid.New(), Name: "Alice", Email: email, CreatedAt: now, UpdatedAt: now}
	credential := entity.NewCredential(account.ID, "$2a$04$hash", now)

	ctx := context.Background()
	require.NoError(t, NewAccountRepository(db).Create(ctx, account))
	require.NoError(t, NewCredentialRepository(db).Create(ctx, credential))

	return account, credential
}

func TestAccountRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewAccountRepository(db)

	account, _ := seedAccount(t, db, "alice@example.com")

	found, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, found.Email)
	assert.True(t, account.CreatedAt.Equal(found.CreatedAt))

	found, err = repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	found.Name = "Alice B."
	found.Email = "alice.b@example.com"
	found.UpdatedAt = found.UpdatedAt.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, found))

	_, err = repo.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	updated, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", updated.Name)

	require.NoError(t, repo.Delete(ctx, account.ID))
	_, err = repo.FindByID(ctx, account.ID)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, account.ID), repository.ErrAccountNotFound)
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedAccount(t, db, "alice@example.com")

	now := time.Now()
	err := NewAccountRepository(db).Create(ctx, &entity.Account{ID: uuid.New(), Email: "alice@example.com", CreatedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, repository.ErrAccountEmailTaken)
}

func TestCredentialRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewCredentialRepository(db)
	account, credential := seedAccount(t, db, "alice@example.com")

	loaded, err := repo.FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, credential.PasswordHash, loaded.PasswordHash)
	assert.Equal(t, 0, loaded.FailureCount)
	assert.True(t, credential.LastAttemptAt.Equal(loaded.LastAttemptAt))

	later := credential.LastAttemptAt.Add(time.Minute)
	loaded.RecordAttempt(later, 15*time.Minute)
	loaded.ReplaceHash("$2a$04$other", later)
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.FindByAccountIDForUpdate(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$other", reloaded.PasswordHash)
	assert.Equal(t, 1, reloaded.FailureCount)
	assert.True(t, later.Equal(reloaded.LastAttemptAt))
}

func TestCredentialRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(newTestDB(t))
	missing := uuid.New()

	_, err := repo.FindByAccountID(ctx, missing)
	assert.ErrorIs(t, err, repository.ErrCredentialNotFound)

	err = repo.Save(ctx, &entity.Credential{AccountID: missing})
	assert.ErrorIs(t, err, repository.ErrCredentialNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, missing), repository.ErrCredentialNotFound)

	err = repo.Create(ctx, entity.NewCredential(missing, "hash", time.Now()))
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestTransactionManager_CommitAndRollback(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tm := NewTransactionManager(db)
	account, _ := seedAccount(t, db, "alice@example.com")

	errBoom := errors.New("boom")
	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		credential, err := f.NewCredentialRepository().FindByAccountIDForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}
		credential.FailureCount = 3
		if err := f.NewCredentialRepository().Save(ctx, credential); err != nil {
			return err
		}

		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	credential, err := NewCredentialRepository(db).FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, credential.FailureCount)

	err = tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		if err := f.NewCredentialRepository().Delete(ctx, account.ID); err != nil {
			return err
		}

		return f.NewAccountRepository().Delete(ctx, account.ID)
	})
	require.NoError(t, err)

	_, err = NewCredentialRepository(db).FindByAccountID(ctx, account.ID)
	assert.ErrorIs(t, err, repository.ErrCredentialNotFound)
}

func TestDatabaseErrorsMapToPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.Close())

	_, err := NewAccountRepository(db).FindByID(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrPersistenceFailed))

	err = NewTransactionManager(db).Execute(ctx, func(repository.RepositoryFactory) error { return nil })
	assert.True(t, errors.Is(err, domainerrors.ErrPersistenceFailed))
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate", dsn(":memory:"))
	assert.Equal(t, "guardian.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate&_pragma=journal_mode(WAL)", dsn("guardian.db"))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate", dsn("file:x.db?mode=rwc"))
}

func TestTransactionManager_SeparateConnectionsDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guardian.db")

	first, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })
	require.NoError(t, migrations.Up(ctx, first, migrations.SQLite, slog.New(slog.NewTextHandler(io.Discard, nil))))

	second, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	account, _ := seedAccount(t, first, "alice@example.com")

	const perConnection = 10

	var wg sync.WaitGroup
	for _, db := range []*sql.DB{first, second} {
		tm := NewTransactionManager(db)
		for range perConnection {
			wg.Add(1)
			go func() {
				defer wg.Done()

				err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
					repo := f.NewCredentialRepository()
					credential, err := repo.FindByAccountIDForUpdate(ctx, account.ID)
					if err != nil {
						return err
					}
					credential.FailureCount++

					return repo.Save(ctx, credential)
				})
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	credential, err := NewCredentialRepository(first).FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*perConnection, credential.FailureCount)
}
