package impl

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian/internal/infra/auth"
	"guardian/internal/infra/persistence/migrations"
	"guardian/internal/infra/persistence/sqlite"
	"guardian/internal/usecase"
)

// Two authenticators with their own lock tables stand in for two processes
// sharing one database; only the transactions keep their counts apart.
func TestAuthenticator_Login_ConcurrentFailuresAcrossInstancesOnSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(ctx, db, migrations.SQLite, newDiscardLogger()))

	cfg := newTestConfig()
	clock := newFakeClock()
	hasher := auth.NewBcryptHasherWithCost(cfg.Auth.BcryptCost)
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy.MinLength, cfg.PasswordPolicy.MaxLength)
	txManager := sqlite.NewTransactionManager(db)
	accountRepo := sqlite.NewAccountRepository(db)
	credRepo := sqlite.NewCredentialRepository(db)

	newStore := func() usecase.CredentialStore {
		return NewCredentialStore(CredentialStoreParams{
			TxManager:      txManager,
			CredentialRepo: credRepo,
			Hasher:         hasher,
			Policy:         policy,
			Clock:          clock,
			Logger:         newDiscardLogger(),
		})
	}
	newAuthenticator := func() usecase.Authenticator {
		return NewAuthenticator(AuthenticatorParams{
			TxManager:   txManager,
			AccountRepo: accountRepo,
			Store:       newStore(),
			Hasher:      hasher,
			Clock:       clock,
			Locks:       NewAccountLocks(),
			Config:      cfg,
			Logger:      newDiscardLogger(),
		})
	}

	accounts := NewAccountService(AccountServiceParams{
		TxManager:   txManager,
		AccountRepo: accountRepo,
		Store:       newStore(),
		Hasher:      hasher,
		Policy:      policy,
		Clock:       clock,
		Locks:       NewAccountLocks(),
		Config:      cfg,
		Logger:      newDiscardLogger(),
	})
	account, err := accounts.CreateAccount(ctx, usecase.CreateAccountInput{Name: "Alice", Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)

	instances := []usecase.Authenticator{newAuthenticator(), newAuthenticator()}

	const perInstance = 10

	var wg sync.WaitGroup
	for _, authenticator := range instances {
		for range perInstance {
			wg.Add(1)
			go func() {
				defer wg.Done()

				out, err := authenticator.Login(ctx, usecase.LoginInput{AccountID: account.ID, Password: "wrong-password"})
				if assert.NoError(t, err) {
					assert.NotEqual(t, usecase.LoginAccepted, out.Outcome)
				}
			}()
		}
	}
	wg.Wait()

	credential, err := credRepo.FindByAccountID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*perInstance, credential.FailureCount)
}
