package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"guardian/config"
	"guardian/internal/domain/entity"
	"guardian/internal/domain/repository"
	"guardian/internal/domain/service"
	"guardian/internal/infra/auth"
	"guardian/internal/infra/persistence/memory"
	"guardian/internal/usecase"
)

const testPassword = "correct-horse"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.BcryptCost = bcrypt.MinCost

	return cfg
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// testEnv wires the services on top of the in-memory store.
type testEnv struct {
	cfg         *config.Config
	clock       *fakeClock
	hasher      service.PasswordHasher
	accountRepo repository.AccountRepository
	credRepo    repository.CredentialRepository
	store       usecase.CredentialStore
	auth        usecase.Authenticator
	accounts    usecase.AccountUsecase
}

func newTestEnv(t *testing.T, mutate ...func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := newTestConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	memStore := memory.NewStore()
	env := &testEnv{
		cfg:         cfg,
		clock:       newFakeClock(),
		hasher:      auth.NewBcryptHasherWithCost(cfg.Auth.BcryptCost),
		accountRepo: memory.NewAccountRepository(memStore),
		credRepo:    memory.NewCredentialRepository(memStore),
	}
	txManager := memory.NewTransactionManager(memStore)
	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy.MinLength, cfg.PasswordPolicy.MaxLength)
	locks := NewAccountLocks()

	env.store = NewCredentialStore(CredentialStoreParams{
		TxManager:      txManager,
		CredentialRepo: env.credRepo,
		Hasher:         env.hasher,
		Policy:         policy,
		Clock:          env.clock,
		Logger:         newDiscardLogger(),
	})
	env.auth = NewAuthenticator(AuthenticatorParams{
		TxManager:   txManager,
		AccountRepo: env.accountRepo,
		Store:       env.store,
		Hasher:      env.hasher,
		Clock:       env.clock,
		Locks:       locks,
		Config:      cfg,
		Logger:      newDiscardLogger(),
	})
	env.accounts = NewAccountService(AccountServiceParams{
		TxManager:   txManager,
		AccountRepo: env.accountRepo,
		Store:       env.store,
		Hasher:      env.hasher,
		Policy:      policy,
		Clock:       env.clock,
		Locks:       locks,
		Config:      cfg,
		Logger:      newDiscardLogger(),
	})

	return env
}

func (env *testEnv) createAccount(t *testing.T, email string) *entity.Account {
	t.Helper()

	account, err := env.accounts.CreateAccount(context.Background(), usecase.CreateAccountInput{
		Name:     "Test User",
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)

	return account
}

func (env *testEnv) credential(t *testing.T, accountID uuid.UUID) *entity.Credential {
	t.Helper()

	credential, err := env.credRepo.FindByAccountID(context.Background(), accountID)
	require.NoError(t, err)

	return credential
}

func (env *testEnv) login(t *testing.T, accountID uuid.UUID, password string) usecase.LoginOutcome {
	t.Helper()

	out, err := env.auth.Login(context.Background(), usecase.LoginInput{AccountID: accountID, Password: password})
	require.NoError(t, err)

	return out.Outcome
}
