package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/domain/entity"
	"guardian/internal/domain/repository"
)

func seed(t *testing.T, store *Store, email string) *entity.Account {
	t.Helper()

	now := time.Now()
	account := &entity.Account{ID: uuid.New(), Email: email, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewAccountRepository(store).Create(context.Background(), account))
	require.NoError(t, NewCredentialRepository(store).Create(context.Background(), entity.NewCredential(account.ID, "hash", now)))

	return account
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewAccountRepository(store)
	account := seed(t, store, "alice@example.com")

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	// Returned values are copies.
	found.Name = "mutated"
	again, err := repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Name)

	other := seed(t, store, "bob@example.com")
	other.Email = "alice@example.com"
	assert.ErrorIs(t, repo.Update(ctx, other), repository.ErrAccountEmailTaken)

	account.Email = "alice.new@example.com"
	require.NoError(t, repo.Update(ctx, account))
	_, err = repo.FindByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	require.NoError(t, repo.Delete(ctx, account.ID))
	_, err = NewCredentialRepository(store).FindByAccountID(ctx, account.ID)
	assert.ErrorIs(t, err, repository.ErrCredentialNotFound)
}

func TestCredentialRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewCredentialRepository(NewStore())

	_, err := repo.FindByAccountIDForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrCredentialNotFound)
	assert.ErrorIs(t, repo.Save(ctx, &entity.Credential{AccountID: uuid.New()}), repository.ErrCredentialNotFound)
	assert.ErrorIs(t, repo.Create(ctx, &entity.Credential{AccountID: uuid.New()}), repository.ErrAccountNotFound)
}

func TestTransactionManager_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	account := seed(t, store, "alice@example.com")

	errBoom := errors.New("boom")
	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		credential, err := f.NewCredentialRepository().FindByAccountIDForUpdate(ctx, account.ID)
		require.NoError(t, err)
		credential.FailureCount = 4
		require.NoError(t, f.NewCredentialRepository().Save(ctx, credential))

		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	credential, err := NewCredentialRepository(store).FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, credential.FailureCount)

	err = tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		credential, err := f.NewCredentialRepository().FindByAccountIDForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}
		credential.FailureCount = 2

		return f.NewCredentialRepository().Save(ctx, credential)
	})
	require.NoError(t, err)

	credential, err = NewCredentialRepository(store).FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, credential.FailureCount)
}

func TestTransactionManager_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewTransactionManager(NewStore()).Execute(ctx, func(repository.RepositoryFactory) error {
		called = true

		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTransactionManager_DifferentAccountsDoNotContend(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	alice := seed(t, store, "alice@example.com")
	bob := seed(t, store, "bob@example.com")

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			if _, err := f.NewCredentialRepository().FindByAccountIDForUpdate(ctx, alice.ID); err != nil {
				return err
			}
			close(locked)
			<-release

			return nil
		})
	}()
	<-locked
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			repo := f.NewCredentialRepository()
			credential, err := repo.FindByAccountIDForUpdate(ctx, bob.ID)
			if err != nil {
				return err
			}
			credential.FailureCount = 1

			return repo.Save(ctx, credential)
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("transaction on another account waited for a held row")
	}
}

func TestTransactionManager_SameAccountWaitsForHolder(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	alice := seed(t, store, "alice@example.com")

	locked := make(chan struct{})
	release := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			repo := f.NewCredentialRepository()
			credential, err := repo.FindByAccountIDForUpdate(ctx, alice.ID)
			if err != nil {
				return err
			}
			close(locked)
			<-release
			credential.FailureCount++

			return repo.Save(ctx, credential)
		})
	}()
	<-locked

	second := make(chan error, 1)
	go func() {
		second <- tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			repo := f.NewCredentialRepository()
			credential, err := repo.FindByAccountIDForUpdate(ctx, alice.ID)
			if err != nil {
				return err
			}
			credential.FailureCount++

			return repo.Save(ctx, credential)
		})
	}()

	select {
	case <-second:
		t.Fatal("second transaction ran while the row was held")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)

	credential, err := NewCredentialRepository(store).FindByAccountID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, credential.FailureCount)
}

func TestTransactionManager_WritesInvisibleUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	alice := seed(t, store, "alice@example.com")
	reader := NewCredentialRepository(store)

	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		repo := f.NewCredentialRepository()
		credential, err := repo.FindByAccountIDForUpdate(ctx, alice.ID)
		require.NoError(t, err)
		credential.FailureCount = 3
		require.NoError(t, repo.Save(ctx, credential))

		inside, err := repo.FindByAccountID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, inside.FailureCount)

		outside, err := reader.FindByAccountID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, outside.FailureCount)

		return nil
	})
	require.NoError(t, err)

	after, err := reader.FindByAccountID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.FailureCount)
}

func TestTransactionManager_EmailConflictFailsCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	now := time.Now()

	// Both transactions pass their own check before either commits.
	checked := make(chan struct{})
	proceed := make(chan struct{})
	first := make(chan error, 1)
	go func() {
		first <- tm.Execute(ctx, func(f repository.RepositoryFactory) error {
			err := f.NewAccountRepository().Create(ctx, &entity.Account{ID: uuid.New(), Email: "carol@example.com", CreatedAt: now})
			close(checked)
			<-proceed

			return err
		})
	}()
	<-checked

	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		return f.NewAccountRepository().Create(ctx, &entity.Account{ID: uuid.New(), Email: "carol@example.com", CreatedAt: now})
	})
	require.NoError(t, err)

	close(proceed)
	assert.ErrorIs(t, <-first, repository.ErrAccountEmailTaken)
}

func TestTransactionManager_SwapEmails(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	tm := NewTransactionManager(store)
	alice := seed(t, store, "alice@example.com")
	bob := seed(t, store, "bob@example.com")

	err := tm.Execute(ctx, func(f repository.RepositoryFactory) error {
		repo := f.NewAccountRepository()
		alice.Email = "swap@example.com"
		if err := repo.Update(ctx, alice); err != nil {
			return err
		}
		bob.Email = "alice@example.com"
		if err := repo.Update(ctx, bob); err != nil {
			return err
		}
		alice.Email = "bob@example.com"

		return repo.Update(ctx, alice)
	})
	require.NoError(t, err)

	repo := NewAccountRepository(store)
	found, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
	found, err = repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)
	_, err = repo.FindByEmail(ctx, "swap@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}
