package impl

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/errors"
	"guardian/internal/infra/auth"
	mockRepo "guardian/internal/mocks/repository"
	mockSvc "guardian/internal/mocks/service"
	"guardian/internal/usecase"
)

type mockFixture struct {
	txManager   *mockRepo.MockTransactionManager
	factory     *mockRepo.MockRepositoryFactory
	accountRepo *mockRepo.MockAccountRepository
	credRepo    *mockRepo.MockCredentialRepository
	hasher      *mockSvc.MockPasswordHasher
	clock       *fakeClock
	auth        usecase.Authenticator
	accounts    usecase.AccountUsecase
}

func newMockFixture(t *testing.T) *mockFixture {
	t.Helper()

	f := &mockFixture{
		txManager:   mockRepo.NewMockTransactionManager(t),
		factory:     mockRepo.NewMockRepositoryFactory(t),
		accountRepo: mockRepo.NewMockAccountRepository(t),
		credRepo:    mockRepo.NewMockCredentialRepository(t),
		hasher:      mockSvc.NewMockPasswordHasher(t),
		clock:       newFakeClock(),
	}

	cfg := newTestConfig()
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy.MinLength, cfg.PasswordPolicy.MaxLength)
	locks := NewAccountLocks()
	store := NewCredentialStore(CredentialStoreParams{
		TxManager:      f.txManager,
		CredentialRepo: f.credRepo,
		Hasher:         f.hasher,
		Policy:         policy,
		Clock:          f.clock,
		Logger:         newDiscardLogger(),
	})
	f.auth = NewAuthenticator(AuthenticatorParams{
		TxManager:   f.txManager,
		AccountRepo: f.accountRepo,
		Store:       store,
		Hasher:      f.hasher,
		Clock:       f.clock,
		Locks:       locks,
		Config:      cfg,
		Logger:      newDiscardLogger(),
	})
	f.accounts = NewAccountService(AccountServiceParams{
		TxManager:   f.txManager,
		AccountRepo: f.accountRepo,
		Store:       store,
		Hasher:      f.hasher,
		Policy:      policy,
		Clock:       f.clock,
		Locks:       locks,
		Config:      cfg,
		Logger:      newDiscardLogger(),
	})

	return f
}

// runTransactions makes Execute run the callback against the mock factory.
func (f *mockFixture) runTransactions() {
	f.txManager.EXPECT().Execute(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, fn func(repository.RepositoryFactory) error) error {
			return fn(f.factory)
		})
}

func TestAuthenticator_Login_PersistenceFailure(t *testing.T) {
	f := newMockFixture(t)
	accountID := uuid.New()
	dbError := errors.New("connection reset")

	f.runTransactions()
	f.factory.EXPECT().NewCredentialRepository().Return(f.credRepo)
	f.credRepo.EXPECT().FindByAccountIDForUpdate(mock.Anything, accountID).
		Return(entity.NewCredential(accountID, "hash", f.clock.Now()), nil)
	f.credRepo.EXPECT().Save(mock.Anything, mock.Anything).Return(dbError)

	out, err := f.auth.Login(context.Background(), usecase.LoginInput{AccountID: accountID, Password: testPassword})

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domainerrors.ErrPersistenceFailed))
	assert.ErrorIs(t, err, dbError)
}

func TestAuthenticator_Login_HashingFailure(t *testing.T) {
	f := newMockFixture(t)
	accountID := uuid.New()

	f.runTransactions()
	f.factory.EXPECT().NewCredentialRepository().Return(f.credRepo)
	f.credRepo.EXPECT().FindByAccountIDForUpdate(mock.Anything, accountID).
		Return(entity.NewCredential(accountID, "corrupt", f.clock.Now()), nil)
	f.credRepo.EXPECT().Save(mock.Anything, mock.Anything).Return(nil)
	f.hasher.EXPECT().Verify(testPassword, "corrupt").
		Return(false, domainerrors.ErrPasswordHashFailed.WithDetails("malformed hash"))

	out, err := f.auth.Login(context.Background(), usecase.LoginInput{AccountID: accountID, Password: testPassword})

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordHashFailed))
}

func TestAuthenticator_ChangePassword_LoadFailure(t *testing.T) {
	f := newMockFixture(t)
	accountID := uuid.New()

	f.credRepo.EXPECT().FindByAccountID(mock.Anything, accountID).Return(nil, errors.New("connection reset"))

	err := f.auth.ChangePassword(context.Background(), usecase.ChangePasswordInput{
		AccountID:   accountID,
		OldPassword: testPassword,
		NewPassword: "brand-new-password",
	})

	assert.True(t, errors.Is(err, domainerrors.ErrPersistenceFailed))
	assert.False(t, errors.Is(err, domainerrors.ErrAuthorizationFailed))
}

func TestAuthenticator_DeleteAccount_PersistenceFailure(t *testing.T) {
	f := newMockFixture(t)
	accountID := uuid.New()

	f.credRepo.EXPECT().FindByAccountID(mock.Anything, accountID).
		Return(entity.NewCredential(accountID, "hash", f.clock.Now()), nil)
	f.hasher.EXPECT().Verify(testPassword, "hash").Return(true, nil)

	f.runTransactions()
	f.factory.EXPECT().NewCredentialRepository().Return(f.credRepo)
	f.factory.EXPECT().NewAccountRepository().Return(f.accountRepo)
	f.credRepo.EXPECT().Delete(mock.Anything, accountID).Return(nil)
	f.accountRepo.EXPECT().Delete(mock.Anything, accountID).Return(errors.New("connection reset"))

	err := f.auth.DeleteAccount(context.Background(), usecase.DeleteAccountInput{AccountID: accountID, Password: testPassword})

	assert.True(t, errors.Is(err, domainerrors.ErrPersistenceFailed))
}

func TestAccountService_CreateAccount_HashingFailure(t *testing.T) {
	f := newMockFixture(t)

	f.hasher.EXPECT().Hash(testPassword).Return("", domainerrors.ErrPasswordHashFailed.WithDetails("out of memory"))

	account, err := f.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: testPassword,
	})

	assert.Nil(t, account)
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordHashFailed))
}

func TestLoginOutput_Err(t *testing.T) {
	tests := []struct {
		name    string
		output  usecase.LoginOutput
		wantErr error
	}{
		{name: "accepted", output: usecase.LoginOutput{Outcome: usecase.LoginAccepted}},
		{name: "rejected", output: usecase.LoginOutput{Outcome: usecase.LoginRejected}, wantErr: domainerrors.ErrInvalidCredentials},
		{name: "rate limited", output: usecase.LoginOutput{Outcome: usecase.LoginRateLimited, Message: "wait"}, wantErr: domainerrors.ErrTooManyAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.output.Err()
			if tt.wantErr == nil {
				assert.NoError(t, err)

				return
			}
			assert.True(t, errors.Is(err, tt.wantErr))
		})
	}
}

func TestPasswordVerifier_RetriesDummyHashAfterFailure(t *testing.T) {
	ctx := context.Background()
	hasher := mockSvc.NewMockPasswordHasher(t)
	verifier := newPasswordVerifier(nil, hasher, newDiscardLogger())

	hasher.EXPECT().Hash(dummyPassword).Return("", domainerrors.ErrPasswordHashFailed.WithDetails("no entropy")).Once()
	verifier.burn(ctx, testPassword)

	hasher.EXPECT().Hash(dummyPassword).Return("dummy-hash", nil).Once()
	hasher.EXPECT().Verify(testPassword, "dummy-hash").Return(false, nil).Twice()
	verifier.burn(ctx, testPassword)
	verifier.burn(ctx, testPassword)
}
