package impl

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"guardian/config"
	"guardian/internal/domain/entity"
	domainerrors "guardian/internal/domain/errors"
	"guardian/internal/domain/repository"
	"guardian/internal/domain/service"
	"guardian/internal/errors"
	logs "guardian/internal/infra/log"
	"guardian/internal/usecase"
)

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager            repository.TransactionManager
	accountRepo          repository.AccountRepository
	hasher               service.PasswordHasher
	policy               service.PasswordPolicy
	clock                service.Clock
	locks                *AccountLocks
	verifier             *passwordVerifier
	requirePasswordEmail bool
	logger               *slog.Logger
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Store       usecase.CredentialStore
	Hasher      service.PasswordHasher
	Policy      service.PasswordPolicy
	Clock       service.Clock
	Locks       *AccountLocks
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		txManager:            params.TxManager,
		accountRepo:          params.AccountRepo,
		hasher:               params.Hasher,
		policy:               params.Policy,
		clock:                params.Clock,
		locks:                params.Locks,
		verifier:             newPasswordVerifier(params.Store, params.Hasher, params.Logger),
		requirePasswordEmail: params.Config.Auth.RequirePasswordForEmailChange,
		logger:               params.Logger,
	}
}

func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return logs.FromContext(ctx, srv.logger)
}

// CreateAccount stores a new account together with the hash of its initial password.
func (srv *accountService) CreateAccount(ctx context.Context, input usecase.CreateAccountInput) (*entity.Account, error) {
	email := entity.NormalizeEmail(input.Email)
	if email == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("email must not be empty"))
	}

	srv.log(ctx).Info("Creating account", slog.String("email", email))

	if err := srv.policy.Validate(input.Password); err != nil {
		srv.log(ctx).Warn("Password rejected by policy", slog.String("email", email), slog.Any("error", err))

		return nil, err
	}

	// Hash outside the transaction (bcrypt is CPU-bound).
	hash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during account creation", slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to hash password during account creation")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate account id")
	}

	now := srv.clock.Now()
	account := &entity.Account{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if err := repoFactory.NewAccountRepository().Create(ctx, account); err != nil {
			return err
		}

		return repoFactory.NewCredentialRepository().Create(ctx, entity.NewCredential(account.ID, hash, now))
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to create account", slog.String("email", email), slog.Any("error", err))

		return nil, persistenceError(err, "failed to create account")
	}

	srv.log(ctx).Debug("Account created", slog.Any("accountID", account.ID))

	return account, nil
}

// GetAccount returns the account record.
func (srv *accountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, persistenceError(err, "failed to get account")
	}

	return account, nil
}

// ChangeEmail stores a new, normalized e-mail address.
func (srv *accountService) ChangeEmail(ctx context.Context, input usecase.ChangeEmailInput) (*entity.Account, error) {
	email := entity.NormalizeEmail(input.Email)
	if email == "" {
		return nil, errors.WithStack(domainerrors.ErrValidationFailed.WithDetails("email must not be empty"))
	}

	if srv.requirePasswordEmail {
		unlock := srv.locks.Lock(input.AccountID)
		defer unlock()

		if err := srv.verifier.confirm(ctx, input.AccountID, input.Password); err != nil {
			srv.log(ctx).Warn("Email change denied", slog.Any("accountID", input.AccountID), slog.Any("error", err))

			return nil, errors.Wrap(err, "failed to confirm password")
		}
	}

	account, err := srv.updateAccount(ctx, input.AccountID, func(account *entity.Account) {
		account.Email = email
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to change email", slog.Any("accountID", input.AccountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to change email")
	}

	srv.log(ctx).Info("Email changed", slog.Any("accountID", input.AccountID))

	return account, nil
}

// ChangeName stores a new display name.
func (srv *accountService) ChangeName(ctx context.Context, input usecase.ChangeNameInput) (*entity.Account, error) {
	account, err := srv.updateAccount(ctx, input.AccountID, func(account *entity.Account) {
		account.Name = strings.TrimSpace(input.Name)
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to change name", slog.Any("accountID", input.AccountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to change name")
	}

	return account, nil
}

func (srv *accountService) updateAccount(ctx context.Context, accountID uuid.UUID, mutate func(*entity.Account)) (*entity.Account, error) {
	var updated *entity.Account

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.FindByID(ctx, accountID)
		if err != nil {
			return err
		}

		mutate(account)
		account.UpdatedAt = srv.clock.Now()
		if err := accountRepo.Update(ctx, account); err != nil {
			return err
		}
		updated = account

		return nil
	})
	if err != nil {
		return nil, persistenceError(err, "failed to update account")
	}

	return updated, nil
}
